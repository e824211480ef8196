package books

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/google/uuid"
)

// MemoryRepository is an in-memory implementation for tests and single-node setups.
type MemoryRepository struct {
	mu        sync.RWMutex
	books     map[uuid.UUID]*Book
	slugIndex map[string]uuid.UUID
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		books:     make(map[uuid.UUID]*Book),
		slugIndex: make(map[string]uuid.UUID),
	}
}

func (m *MemoryRepository) Create(_ context.Context, record *Book) (*Book, error) {
	if record == nil {
		return nil, fmt.Errorf("book repository: nil record")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := record.Clone()
	if copied.ID == uuid.Nil {
		copied.ID = uuid.New()
	}
	if _, exists := m.slugIndex[copied.Slug]; exists {
		return nil, fmt.Errorf("book repository: slug %q already exists", copied.Slug)
	}
	m.books[copied.ID] = copied
	m.slugIndex[copied.Slug] = copied.ID
	return copied.Clone(), nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.books[id]
	if !ok {
		return nil, &NotFoundError{Key: id.String()}
	}
	return record.Clone(), nil
}

func (m *MemoryRepository) GetBySlug(_ context.Context, slug string) (*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.slugIndex[slug]
	if !ok {
		return nil, &NotFoundError{Key: slug}
	}
	return m.books[id].Clone(), nil
}

func (m *MemoryRepository) ListStale(_ context.Context, status domain.Status, cutoff time.Time) ([]*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Book
	for _, record := range m.books {
		if record.Status == status && record.UpdatedAt.Before(cutoff) {
			out = append(out, record.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out, nil
}

// CheckVersion reports ErrVersionConflict when the stored version differs from expected.
func (m *MemoryRepository) CheckVersion(id uuid.UUID, expected int) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkVersionLocked(id, expected)
}

func (m *MemoryRepository) checkVersionLocked(id uuid.UUID, expected int) error {
	record, ok := m.books[id]
	if !ok || record.Version != expected {
		return fmt.Errorf("%w: book %s expected version %d", ErrVersionConflict, id, expected)
	}
	return nil
}

// Hold reports ErrVersionConflict when the stored book left status or version.
func (m *MemoryRepository) Hold(_ context.Context, id uuid.UUID, status domain.Status, version int) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkVersionLocked(id, version); err != nil {
		return err
	}
	if m.books[id].Status != status {
		return fmt.Errorf("%w: book %s is %s, not %s", ErrVersionConflict, id, m.books[id].Status, status)
	}
	return nil
}

// UpdateStatus satisfies Writer for callers that do not need transactional staging.
func (m *MemoryRepository) UpdateStatus(_ context.Context, update StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkVersionLocked(update.ID, update.ExpectedVersion); err != nil {
		return err
	}
	record := m.books[update.ID]
	record.Status = update.Status
	record.Version++
	record.IsPublished = update.IsPublished
	record.PublishedAt = nil
	if update.PublishedAt != nil {
		ts := *update.PublishedAt
		record.PublishedAt = &ts
	}
	if update.LastReviewComment != nil {
		record.LastReviewComment = *update.LastReviewComment
	}
	record.UpdatedAt = update.UpdatedAt
	return nil
}

// Touch overrides UpdatedAt, used to seed aged records.
func (m *MemoryRepository) Touch(id uuid.UUID, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.books[id]
	if !ok {
		return &NotFoundError{Key: id.String()}
	}
	record.UpdatedAt = updatedAt
	return nil
}

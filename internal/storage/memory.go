package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-publishing/internal/audit"
	"github.com/goliatone/go-publishing/internal/books"
	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/google/uuid"
)

// MemoryUnitOfWork serialises transactions over the in-memory repositories.
// Writes are staged and applied only when the callback returns nil.
type MemoryUnitOfWork struct {
	mu     sync.Mutex
	books  *books.MemoryRepository
	events *audit.MemoryStore
}

// NewMemoryUnitOfWork binds the in-memory book repository and audit store.
func NewMemoryUnitOfWork(bookRepo *books.MemoryRepository, events *audit.MemoryStore) *MemoryUnitOfWork {
	return &MemoryUnitOfWork{books: bookRepo, events: events}
}

func (u *MemoryUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	tx := &memoryTx{uow: u, versions: map[uuid.UUID]int{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for _, update := range tx.updates {
		if err := u.books.UpdateStatus(ctx, update); err != nil {
			return fmt.Errorf("storage: apply staged update: %w", err)
		}
	}
	for _, event := range tx.events {
		if err := u.events.Insert(ctx, event); err != nil {
			return fmt.Errorf("storage: apply staged event: %w", err)
		}
	}
	return nil
}

type memoryTx struct {
	uow      *MemoryUnitOfWork
	updates  []books.StatusUpdate
	events   []*audit.Event
	versions map[uuid.UUID]int
}

func (t *memoryTx) Books() books.Writer { return memoryBookWriter{t} }
func (t *memoryTx) Audit() audit.Writer { return memoryAuditWriter{t} }

type memoryBookWriter struct{ tx *memoryTx }

func (w memoryBookWriter) UpdateStatus(_ context.Context, update books.StatusUpdate) error {
	if staged, ok := w.tx.versions[update.ID]; ok {
		if staged != update.ExpectedVersion {
			return fmt.Errorf("%w: book %s expected version %d", books.ErrVersionConflict, update.ID, update.ExpectedVersion)
		}
	} else if err := w.tx.uow.books.CheckVersion(update.ID, update.ExpectedVersion); err != nil {
		return err
	}
	w.tx.updates = append(w.tx.updates, update)
	w.tx.versions[update.ID] = update.ExpectedVersion + 1
	return nil
}

func (w memoryBookWriter) Hold(ctx context.Context, id uuid.UUID, status domain.Status, version int) error {
	if _, staged := w.tx.versions[id]; staged {
		return fmt.Errorf("%w: book %s changed in this transaction", books.ErrVersionConflict, id)
	}
	return w.tx.uow.books.Hold(ctx, id, status, version)
}

type memoryAuditWriter struct{ tx *memoryTx }

func (w memoryAuditWriter) LatestForBook(ctx context.Context, bookID uuid.UUID) (*audit.Event, error) {
	for i := len(w.tx.events) - 1; i >= 0; i-- {
		event := w.tx.events[i]
		if event.BookID != nil && *event.BookID == bookID {
			return event.Clone(), nil
		}
	}
	return w.tx.uow.events.LatestForBook(ctx, bookID)
}

func (w memoryAuditWriter) Insert(_ context.Context, event *audit.Event) error {
	if event == nil {
		return audit.ErrEventRequired
	}
	w.tx.events = append(w.tx.events, event.Clone())
	return nil
}

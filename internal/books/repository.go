package books

import (
	"context"
	"time"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository exposes book reads and draft creation.
type Repository interface {
	Create(ctx context.Context, record *Book) (*Book, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Book, error)
	GetBySlug(ctx context.Context, slug string) (*Book, error)
	// ListStale returns books in status whose last update happened before cutoff.
	ListStale(ctx context.Context, status domain.Status, cutoff time.Time) ([]*Book, error)
}

// Writer applies version-checked status updates, usually inside a transaction.
type Writer interface {
	UpdateStatus(ctx context.Context, update StatusUpdate) error
	// Hold returns ErrVersionConflict unless the book is still at status and
	// version, and keeps the row from changing until the transaction ends.
	Hold(ctx context.Context, id uuid.UUID, status domain.Status, version int) error
}

// NewBookRepository builds the go-repository-bun repository for books.
func NewBookRepository(db *bun.DB) repository.Repository[*Book] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Book]{
		NewRecord: func() *Book { return &Book{} },
		GetID: func(b *Book) uuid.UUID {
			return b.ID
		},
		SetID: func(b *Book, id uuid.UUID) {
			b.ID = id
		},
		GetIdentifier: func() string {
			return "slug"
		},
		GetIdentifierValue: func(b *Book) string {
			return b.Slug
		},
	})
}

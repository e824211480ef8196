package audit

import (
	"context"

	"github.com/google/uuid"
)

// Writer appends events. Implementations are usually bound to the transaction
// that also writes the book status.
type Writer interface {
	// LatestForBook returns the most recent event in the book's chain, or nil.
	LatestForBook(ctx context.Context, bookID uuid.UUID) (*Event, error)
	Insert(ctx context.Context, event *Event) error
}

// Reader queries committed events.
type Reader interface {
	// Query returns one page ordered by timestamp descending plus the total match count.
	Query(ctx context.Context, filter Filter, limit, offset int) ([]*Event, int, error)
	// ListForBook returns the book's chain in append order.
	ListForBook(ctx context.Context, bookID uuid.UUID) ([]*Event, error)
	// List returns every match ordered by timestamp ascending.
	List(ctx context.Context, filter Filter) ([]*Event, error)
}

// Store reads and writes outside a transaction.
type Store interface {
	Reader
	Writer
}

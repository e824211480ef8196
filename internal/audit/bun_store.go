package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewEventRepository builds the go-repository-bun repository for audit events.
func NewEventRepository(db *bun.DB) repository.Repository[*Event] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Event]{
		NewRecord: func() *Event { return &Event{} },
		GetID: func(e *Event) uuid.UUID {
			return e.ID
		},
		SetID: func(e *Event, id uuid.UUID) {
			e.ID = id
		},
		GetIdentifier: func() string {
			return "checksum"
		},
		GetIdentifierValue: func(e *Event) string {
			return e.Checksum
		},
	})
}

// BunStore reads committed events through go-repository-bun and writes through
// the wrapped database handle.
type BunStore struct {
	repo   repository.Repository[*Event]
	writer *BunWriter
}

// NewBunStore creates a Store backed by db.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{
		repo:   NewEventRepository(db),
		writer: NewBunWriter(db),
	}
}

func (s *BunStore) LatestForBook(ctx context.Context, bookID uuid.UUID) (*Event, error) {
	return s.writer.LatestForBook(ctx, bookID)
}

func (s *BunStore) Insert(ctx context.Context, event *Event) error {
	return s.writer.Insert(ctx, event)
}

func (s *BunStore) Query(ctx context.Context, filter Filter, limit, offset int) ([]*Event, int, error) {
	records, total, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return applyFilter(q, filter).OrderExpr("?TableAlias.occurred_at DESC")
		}),
		repository.SelectPaginate(limit, offset),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("audit store: query: %w", err)
	}
	return records, total, nil
}

func (s *BunStore) ListForBook(ctx context.Context, bookID uuid.UUID) ([]*Event, error) {
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.book_id = ?", bookID).
				OrderExpr("?TableAlias.sequence ASC")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("audit store: list for book: %w", err)
	}
	return records, nil
}

func (s *BunStore) List(ctx context.Context, filter Filter) ([]*Event, error) {
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return applyFilter(q, filter).OrderExpr("?TableAlias.occurred_at ASC")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("audit store: list: %w", err)
	}
	return records, nil
}

func applyFilter(q *bun.SelectQuery, filter Filter) *bun.SelectQuery {
	if filter.BookID != nil {
		q = q.Where("?TableAlias.book_id = ?", *filter.BookID)
	}
	if filter.ActorID != "" {
		q = q.Where("?TableAlias.actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		q = q.Where("?TableAlias.action = ?", filter.Action)
	}
	if filter.FromStatus != "" {
		q = q.Where("?TableAlias.from_status = ?", filter.FromStatus)
	}
	if filter.ToStatus != "" {
		q = q.Where("?TableAlias.to_status = ?", filter.ToStatus)
	}
	if filter.EventType != "" {
		q = q.Where("?TableAlias.event_type = ?", filter.EventType)
	}
	if filter.TemplateID != "" {
		q = q.Where("?TableAlias.template_id = ?", filter.TemplateID)
	}
	if filter.FromDate != nil {
		q = q.Where("?TableAlias.occurred_at >= ?", filter.FromDate.UTC())
	}
	if filter.ToDate != nil {
		q = q.Where("?TableAlias.occurred_at <= ?", filter.ToDate.UTC())
	}
	return q
}

// BunWriter appends events through any bun handle, including transactions.
type BunWriter struct {
	db bun.IDB
}

// NewBunWriter wraps a bun.DB or bun.Tx.
func NewBunWriter(db bun.IDB) *BunWriter {
	return &BunWriter{db: db}
}

func (w *BunWriter) LatestForBook(ctx context.Context, bookID uuid.UUID) (*Event, error) {
	event := new(Event)
	err := w.db.NewSelect().
		Model(event).
		Where("?TableAlias.book_id = ?", bookID).
		OrderExpr("?TableAlias.sequence DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit store: latest for book: %w", err)
	}
	return event, nil
}

func (w *BunWriter) Insert(ctx context.Context, event *Event) error {
	if event == nil {
		return ErrEventRequired
	}
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}
	if _, err := w.db.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("audit store: insert: %w", err)
	}
	return nil
}

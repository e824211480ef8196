package storage

import (
	"context"

	"github.com/goliatone/go-publishing/internal/audit"
	"github.com/goliatone/go-publishing/internal/books"
	"github.com/uptrace/bun"
)

// BunUnitOfWork runs callbacks inside bun transactions.
type BunUnitOfWork struct {
	db *bun.DB
}

// NewBunUnitOfWork wraps db.
func NewBunUnitOfWork(db *bun.DB) *BunUnitOfWork {
	return &BunUnitOfWork{db: db}
}

func (u *BunUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return u.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &bunTx{
			books: books.NewBunWriter(tx),
			audit: audit.NewBunWriter(tx),
		})
	})
}

type bunTx struct {
	books *books.BunWriter
	audit *audit.BunWriter
}

func (t *bunTx) Books() books.Writer { return t.books }
func (t *bunTx) Audit() audit.Writer { return t.audit }

package books

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-publishing/internal/domain"
	repository "github.com/goliatone/go-repository-bun"
	cache "github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const bookNamespace = "book"

// BunRepository persists books with bun. Transition loads always read through the
// uncached repository; the optional cache only serves slug lookups.
type BunRepository struct {
	repo         repository.Repository[*Book]
	cached       repository.Repository[*Book]
	cacheService cache.CacheService
	cachePrefix  string
}

// NewBunRepository creates a book repository without caching.
func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

// NewBunRepositoryWithCache creates a book repository with read caching for slug lookups.
func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunRepository {
	base := NewBookRepository(db)
	r := &BunRepository{repo: base, cached: base}
	if cacheService != nil && serializer != nil {
		r.cached = repositorycache.New(base, cacheService, serializer)
		r.cacheService = cacheService
		r.cachePrefix = bookNamespace + cache.KeySeparator
	}
	return r
}

func (r *BunRepository) Create(ctx context.Context, record *Book) (*Book, error) {
	created, err := r.repo.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("book repository: create: %w", err)
	}
	return created, nil
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Book, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id.String())
	}
	return record, nil
}

func (r *BunRepository) GetBySlug(ctx context.Context, slug string) (*Book, error) {
	record, err := r.cached.GetByIdentifier(ctx, slug)
	if err != nil {
		return nil, mapRepositoryError(err, slug)
	}
	return record, nil
}

func (r *BunRepository) ListStale(ctx context.Context, status domain.Status, cutoff time.Time) ([]*Book, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.status = ?", status).
				Where("?TableAlias.updated_at < ?", cutoff)
		}),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.updated_at ASC")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("book repository: list stale: %w", err)
	}
	return records, nil
}

// InvalidateCache drops cached book lookups after a committed transition.
func (r *BunRepository) InvalidateCache(ctx context.Context) error {
	if r.cacheService == nil || r.cachePrefix == "" {
		return nil
	}
	return r.cacheService.DeleteByPrefix(ctx, r.cachePrefix)
}

// BunWriter applies status updates through any bun handle, including transactions.
type BunWriter struct {
	db bun.IDB
}

// NewBunWriter wraps a bun.DB or bun.Tx.
func NewBunWriter(db bun.IDB) *BunWriter {
	return &BunWriter{db: db}
}

// UpdateStatus bumps the version by one only when the stored version still matches.
func (w *BunWriter) UpdateStatus(ctx context.Context, update StatusUpdate) error {
	query := w.db.NewUpdate().
		Model((*Book)(nil)).
		Set("status = ?", update.Status).
		Set("version = version + 1").
		Set("is_published = ?", update.IsPublished).
		Set("published_at = ?", update.PublishedAt).
		Set("updated_at = ?", update.UpdatedAt)
	if update.LastReviewComment != nil {
		query = query.Set("last_review_comment = ?", *update.LastReviewComment)
	}
	result, err := query.
		Where("id = ?", update.ID).
		Where("version = ?", update.ExpectedVersion).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("book repository: update status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("book repository: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: book %s expected version %d", ErrVersionConflict, update.ID, update.ExpectedVersion)
	}
	return nil
}

// Hold issues a guarded no-op UPDATE so postgres takes the row lock and sqlite the
// write lock before anything else is written in the transaction.
func (w *BunWriter) Hold(ctx context.Context, id uuid.UUID, status domain.Status, version int) error {
	result, err := w.db.NewUpdate().
		Model((*Book)(nil)).
		Set("version = version").
		Where("id = ?", id).
		Where("version = ?", version).
		Where("status = ?", status).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("book repository: hold: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("book repository: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: book %s no longer %s at version %d", ErrVersionConflict, id, status, version)
	}
	return nil
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Key: key}
	}
	return fmt.Errorf("book repository: %w", err)
}

package books_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goliatone/go-publishing/internal/books"
	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func newSQLiteDB(t *testing.T, name string) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open("sqlite3", "file:"+name+"?mode=memory&cache=shared&_fk=1")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.NewCreateTable().Model((*books.Book)(nil)).IfNotExists().Exec(context.Background()); err != nil {
		t.Fatalf("create books table: %v", err)
	}
	return db
}

func draft(t *testing.T, title string, now time.Time) *books.Book {
	t.Helper()
	record, err := books.NewDraft(books.DraftInput{
		AuthorID: "author-1",
		Fields:   map[string]any{"title": title, "authorName": "A", "content": "C"},
	}, now)
	if err != nil {
		t.Fatalf("NewDraft: %v", err)
	}
	return record
}

func TestNewDraftDerivesSlug(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	record := draft(t, "The Lion and the Moon", now)

	if record.Status != domain.StatusDraft || record.Version != 1 {
		t.Fatalf("expected DRAFT v1, got %s v%d", record.Status, record.Version)
	}
	if !strings.HasPrefix(record.Slug, "the-lion-and-the-moon-") {
		t.Fatalf("unexpected slug %q", record.Slug)
	}
	if record.PublishedAt != nil || record.IsPublished {
		t.Fatal("expected draft to be unpublished")
	}
}

func TestNewDraftValidatesInput(t *testing.T) {
	_, err := books.NewDraft(books.DraftInput{Fields: map[string]any{"title": "T"}}, time.Now())
	if !errors.Is(err, books.ErrAuthorRequired) {
		t.Fatalf("expected author error, got %v", err)
	}
	_, err = books.NewDraft(books.DraftInput{AuthorID: "a"}, time.Now())
	if !errors.Is(err, books.ErrTitleRequired) {
		t.Fatalf("expected title error, got %v", err)
	}
}

func TestMemoryRepositoryUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := books.NewMemoryRepository()
	now := time.Now().UTC()

	created, err := repo.Create(ctx, draft(t, "Memory", now))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	comment := "looks good"
	err = repo.UpdateStatus(ctx, books.StatusUpdate{
		ID:                created.ID,
		ExpectedVersion:   1,
		Status:            domain.StatusPending,
		LastReviewComment: &comment,
		UpdatedAt:         now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}

	err = repo.UpdateStatus(ctx, books.StatusUpdate{ID: created.ID, ExpectedVersion: 1, Status: domain.StatusArchived})
	if !errors.Is(err, books.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	stored, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.StatusPending || stored.Version != 2 || stored.LastReviewComment != comment {
		t.Fatalf("unexpected stored book %+v", stored)
	}
}

func TestMemoryRepositoryNotFound(t *testing.T) {
	_, err := books.NewMemoryRepository().GetByID(context.Background(), uuid.New())
	if !books.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBunRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t, "books_roundtrip")
	repo := books.NewBunRepository(db)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	created, err := repo.Create(ctx, draft(t, "Bun Book", now))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	published := now.Add(2 * time.Hour)
	writer := books.NewBunWriter(db)
	if err := writer.UpdateStatus(ctx, books.StatusUpdate{
		ID:              created.ID,
		ExpectedVersion: 1,
		Status:          domain.StatusPublished,
		IsPublished:     true,
		PublishedAt:     &published,
		UpdatedAt:       published,
	}); err != nil {
		t.Fatalf("update status: %v", err)
	}

	err = writer.UpdateStatus(ctx, books.StatusUpdate{ID: created.ID, ExpectedVersion: 1, Status: domain.StatusArchived, UpdatedAt: published})
	if !errors.Is(err, books.ErrVersionConflict) {
		t.Fatalf("expected version conflict on stale write, got %v", err)
	}

	stored, err := repo.GetBySlug(ctx, created.Slug)
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if stored.Status != domain.StatusPublished || stored.Version != 2 || !stored.IsPublished {
		t.Fatalf("unexpected stored book %+v", stored)
	}
	if stored.PublishedAt == nil || !stored.PublishedAt.Equal(published) {
		t.Fatalf("expected published_at %v, got %v", published, stored.PublishedAt)
	}
	if stored.Fields["title"] != "Bun Book" {
		t.Fatalf("expected fields to round trip, got %v", stored.Fields)
	}

	_, err = repo.GetByID(ctx, uuid.New())
	if !books.IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestBunRepositoryListStale(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t, "books_stale")
	repo := books.NewBunRepository(db)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	old := draft(t, "Old Pending", now.Add(-50*time.Hour))
	old.Status = domain.StatusPending
	fresh := draft(t, "Fresh Pending", now.Add(-47*time.Hour))
	fresh.Status = domain.StatusPending
	for _, record := range []*books.Book{old, fresh} {
		if _, err := repo.Create(ctx, record); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	stale, err := repo.ListStale(ctx, domain.StatusPending, now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != old.ID {
		t.Fatalf("expected only the 50h old book, got %+v", stale)
	}
}

func TestBunWriterReportsConflictOnPostgres(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	mock.ExpectExec(`UPDATE "books"`).WillReturnResult(sqlmock.NewResult(0, 0))

	err = books.NewBunWriter(db).UpdateStatus(context.Background(), books.StatusUpdate{
		ID:              uuid.New(),
		ExpectedVersion: 3,
		Status:          domain.StatusApproved,
		UpdatedAt:       time.Now().UTC(),
	})
	if !errors.Is(err, books.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBunWriterHoldReportsConflictOnPostgres(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE "books".* SET version = version WHERE .*'` + id.String() + `'.*version = 4.*status = 'PENDING'`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = books.NewBunWriter(db).Hold(context.Background(), id, domain.StatusPending, 4)
	if !errors.Is(err, books.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

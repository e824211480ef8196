package manager_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-publishing/internal/audit"
	"github.com/goliatone/go-publishing/internal/books"
	"github.com/goliatone/go-publishing/internal/domain"
	pubscheduler "github.com/goliatone/go-publishing/internal/scheduler"
	"github.com/goliatone/go-publishing/internal/storage"
	"github.com/goliatone/go-publishing/internal/workflow"
	"github.com/goliatone/go-publishing/internal/workflow/manager"
	"github.com/goliatone/go-publishing/pkg/testsupport"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func openSQLite(t *testing.T, name string) *bun.DB {
	return testsupport.NewSQLiteDB(t, name)
}

func newBunService(db *bun.DB, opts ...manager.ServiceOption) (manager.Service, *audit.Ledger, *audit.BunStore) {
	store := audit.NewBunStore(db)
	ledger := audit.NewLedger(store)
	svc := manager.NewService(
		workflow.MustDefaultCatalog(),
		books.NewBunRepository(db),
		storage.NewBunUnitOfWork(db),
		ledger,
		opts...,
	)
	return svc, ledger, store
}

func TestBunTransitionCommitsStateAndAuditTogether(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t, "manager_commit")
	sched := pubscheduler.NewInMemory()
	svc, ledger, _ := newBunService(db, manager.WithScheduler(sched))

	book, err := svc.CreateDraft(ctx, books.DraftInput{AuthorID: "author-1", Fields: authoredFields()})
	require.NoError(t, err)

	result, err := svc.ExecuteTransition(ctx, submit(book.ID))
	require.NoError(t, err)
	require.True(t, result.Success, result.Errors)

	stored, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, stored.Status)
	require.Equal(t, 2, stored.Version)

	report, err := ledger.VerifyAuditIntegrity(ctx, book.ID)
	require.NoError(t, err)
	require.True(t, report.Valid, report.Issues)
	require.Len(t, report.Events, 1)
	require.Equal(t, *result.AuditEventID, report.Events[0].ID)
	require.Len(t, sched.Pending(), 1)
}

func TestBunTransitionRollsBackOnSchedulingFailure(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t, "manager_rollback")
	boom := errors.New("queue unavailable")
	svc, _, store := newBunService(db, manager.WithScheduler(failingScheduler{Scheduler: pubscheduler.NewDisabled(), err: boom}))

	book, err := svc.CreateDraft(ctx, books.DraftInput{AuthorID: "author-1", Fields: authoredFields()})
	require.NoError(t, err)

	result, err := svc.ExecuteTransition(ctx, submit(book.ID))
	require.ErrorIs(t, err, boom)
	require.Equal(t, manager.FailureInternal, result.Failure)

	stored, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, stored.Status)
	require.Equal(t, 1, stored.Version)

	events, err := store.ListForBook(ctx, book.ID)
	require.NoError(t, err)
	require.Empty(t, events)
}

// staleReads serves a snapshot taken before a concurrent writer committed.
type staleReads struct {
	books.Repository
	snapshot *books.Book
}

func (s staleReads) GetByID(context.Context, uuid.UUID) (*books.Book, error) {
	return s.snapshot.Clone(), nil
}

func TestBunStaleVersionIsReportedAsConflict(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t, "manager_conflict")
	repo := books.NewBunRepository(db)
	store := audit.NewBunStore(db)

	draft, err := books.NewDraft(books.DraftInput{AuthorID: "author-1", Fields: authoredFields()}, time.Now().UTC())
	require.NoError(t, err)
	book, err := repo.Create(ctx, draft)
	require.NoError(t, err)

	// Another writer bumps the version after the snapshot was read.
	require.NoError(t, books.NewBunWriter(db).UpdateStatus(ctx, books.StatusUpdate{
		ID: book.ID, ExpectedVersion: 1, Status: domain.StatusDraft, UpdatedAt: time.Now().UTC(),
	}))

	svc := manager.NewService(
		workflow.MustDefaultCatalog(),
		staleReads{Repository: repo, snapshot: book},
		storage.NewBunUnitOfWork(db),
		audit.NewLedger(store),
	)
	result, err := svc.ExecuteTransition(ctx, submit(book.ID))
	require.NoError(t, err)
	require.False(t, result.Success)
	require.True(t, result.IsConflict())
	require.Equal(t, []string{workflow.MessageVersionMismatch}, result.Errors)

	live, err := repo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, live.Status)
	require.Equal(t, 2, live.Version)

	events, err := store.ListForBook(ctx, book.ID)
	require.NoError(t, err)
	require.Empty(t, events)
}

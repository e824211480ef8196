package testsupport

import (
	"context"
	"testing"

	"github.com/goliatone/go-publishing/internal/storage"
	"github.com/uptrace/bun"
)

// NewSQLiteDB opens a named shared in-memory SQLite database with the publishing
// schema applied. The database is closed when the test finishes.
func NewSQLiteDB(tb testing.TB, name string) *bun.DB {
	tb.Helper()
	db, err := storage.Open(storage.DriverSQLite, "file:"+name+"?mode=memory&cache=shared&_fk=1")
	if err != nil {
		tb.Fatalf("open sqlite %s: %v", name, err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	if err := storage.CreateSchema(context.Background(), db); err != nil {
		tb.Fatalf("create schema: %v", err)
	}
	return db
}

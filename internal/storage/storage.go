package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-publishing/internal/audit"
	"github.com/goliatone/go-publishing/internal/books"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnsupportedDriver indicates an unknown storage driver name.
var ErrUnsupportedDriver = errors.New("storage: unsupported driver")

// Tx exposes the writers bound to one transaction.
type Tx interface {
	Books() books.Writer
	Audit() audit.Writer
}

// UnitOfWork runs fn inside a transaction. Returning an error from fn rolls back
// every write made through the Tx.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Open connects to the configured database and wraps it with the matching bun dialect.
func Open(driver, dsn string) (*bun.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("storage: dsn is required")
	}
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite, "sqlite3":
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: open sqlite: %w", err)
		}
		// sqlite allows one writer; a single connection turns lock errors into waits.
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case DriverPostgres, "postgresql":
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// CreateSchema creates the books and audit tables when missing.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*books.Book)(nil),
		(*audit.Event)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("storage: create table: %w", err)
		}
	}

	indexes := []struct {
		name    string
		model   any
		columns []string
		unique  bool
	}{
		{name: "idx_books_status_updated_at", model: (*books.Book)(nil), columns: []string{"status", "updated_at"}},
		{name: "idx_audit_events_book_sequence", model: (*audit.Event)(nil), columns: []string{"book_id", "sequence"}, unique: true},
		{name: "idx_audit_events_occurred_at", model: (*audit.Event)(nil), columns: []string{"occurred_at"}},
	}
	for _, idx := range indexes {
		query := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists()
		if idx.unique {
			query = query.Unique()
		}
		if _, err := query.Exec(ctx); err != nil {
			return fmt.Errorf("storage: create index %s: %w", idx.name, err)
		}
	}
	return nil
}

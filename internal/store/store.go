// Package store provides the SQLite-backed executor consumed by the
// lifecycle runner.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/benarmston/sequel/internal/lifecycle"
)

// Store executes compiled SQL against a SQLite database.
// Uses WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path. Use ":memory:"
// for an in-memory database.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1) // Single writer to avoid SQLITE_BUSY errors
	db.SetMaxIdleConns(1) // Keep one connection ready

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Exec runs a statement and reports rows affected. Implements
// lifecycle.Executor.
func (s *Store) Exec(ctx context.Context, query string, params []any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Begin opens a transaction scope. Implements lifecycle.Executor.
func (s *Store) Begin(ctx context.Context) (lifecycle.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &storeTx{tx: tx}, nil
}

// Query executes a query and returns the resulting rows.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, params ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, params...)
}

// storeTx adapts *sql.Tx to the lifecycle transaction scope.
type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) Exec(ctx context.Context, query string, params []any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *storeTx) Commit() error   { return t.tx.Commit() }
func (t *storeTx) Rollback() error { return t.tx.Rollback() }

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}
	return nil
}

// CreateTableSQL builds a CREATE TABLE statement for a model's columns.
// Used by the conformance harness to materialize scenario tables.
func CreateTableSQL(table string, columns []string, primaryKey string) string {
	stmt := "CREATE TABLE IF NOT EXISTS " + quote(table) + " ("
	for i, col := range columns {
		if i > 0 {
			stmt += ", "
		}
		stmt += quote(col)
		if col == primaryKey {
			stmt += " PRIMARY KEY"
		}
	}
	return stmt + ")"
}

func quote(name string) string {
	return `"` + name + `"`
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/budgeteer-dev/budgeteer/internal/model"
	"github.com/budgeteer-dev/budgeteer/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// dbtx is the query surface shared by *sql.DB and *sql.Tx. Entity helpers
// are written against it so the same code serves both the storage methods
// and the unit-of-work wrapper.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Foreign keys enforce the restrict/cascade/set-null wiring between
	// splits, accounts, envelopes, and reconciliations.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single-writer, synchronous use; SQLite doesn't benefit from more.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Init idempotently seeds the rows the ledger cannot operate without: the
// default currency (id 1, "USD") and the root account and envelope trees
// (id 1, "root").
func (s *SQLiteStorage) Init(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.execTx(ctx, func(tx *sql.Tx) error {
		return initLedger(ctx, tx)
	})
}

func initLedger(ctx context.Context, q dbtx) error {
	seeds := []struct {
		query string
		args  []any
	}{
		{`INSERT OR IGNORE INTO currency (id, code, ext_id) VALUES (?, ?, '')`,
			[]any{model.DefaultCurrencyID, model.DefaultCurrencyCode}},
		{`INSERT OR IGNORE INTO account (id, name, currency_id, archived, ext_id, parent_id)
			VALUES (?, 'root', ?, 0, '', NULL)`,
			[]any{model.RootAccountID, model.DefaultCurrencyID}},
		{`INSERT OR IGNORE INTO envelope (id, name, currency_id, archived, ext_id, parent_id)
			VALUES (?, 'root', ?, 0, '', NULL)`,
			[]any{model.RootEnvelopeID, model.DefaultCurrencyID}},
	}
	for _, seed := range seeds {
		if _, err := q.ExecContext(ctx, seed.query, seed.args...); err != nil {
			return fmt.Errorf("failed to seed ledger: %w", err)
		}
	}
	return nil
}

// execTx runs fn inside a database transaction, committing on success and
// rolling back every partial change on failure.
func (s *SQLiteStorage) execTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// BeginTx starts a new unit of work against the store.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{tx: tx}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction. Entity
// methods delegate to the shared helpers with the transaction handle; they
// live alongside the storage methods in the per-entity files.
type sqliteTransaction struct {
	tx *sql.Tx
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) Init(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return initLedger(ctx, t.tx)
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial ledger schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS currency (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					code TEXT NOT NULL,
					ext_id TEXT NOT NULL DEFAULT ''
				)`,

				// The root of each tree carries a NULL parent; every other
				// node references exactly one parent in the same table.
				`CREATE TABLE IF NOT EXISTS account (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					currency_id INTEGER NOT NULL DEFAULT 1 REFERENCES currency(id),
					archived BOOLEAN NOT NULL DEFAULT 0,
					ext_id TEXT NOT NULL DEFAULT '',
					parent_id INTEGER REFERENCES account(id)
				)`,
				`CREATE INDEX idx_account_parent ON account(parent_id)`,
				`CREATE INDEX idx_account_currency ON account(currency_id)`,

				`CREATE TABLE IF NOT EXISTS envelope (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					currency_id INTEGER NOT NULL DEFAULT 1 REFERENCES currency(id),
					archived BOOLEAN NOT NULL DEFAULT 0,
					ext_id TEXT NOT NULL DEFAULT '',
					parent_id INTEGER REFERENCES envelope(id)
				)`,
				`CREATE INDEX idx_envelope_parent ON envelope(parent_id)`,
				`CREATE INDEX idx_envelope_currency ON envelope(currency_id)`,

				`CREATE TABLE IF NOT EXISTS transaction_entry (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					date DATETIME NOT NULL,
					payee TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX idx_transaction_entry_date ON transaction_entry(date)`,

				`CREATE TABLE IF NOT EXISTS reconciliation (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					account_id INTEGER NOT NULL REFERENCES account(id) ON DELETE CASCADE,
					beginning_balance INTEGER NOT NULL,
					beginning_date DATETIME NOT NULL,
					ending_balance INTEGER NOT NULL,
					ending_date DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_reconciliation_account ON reconciliation(account_id)`,

				// Amounts are stored scaled to 1/10000 of a unit. Deleting a
				// transaction cascades to its splits; deleting an account or
				// envelope referenced by a split is restricted.
				`CREATE TABLE IF NOT EXISTS account_transaction (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_entry_id INTEGER NOT NULL REFERENCES transaction_entry(id) ON DELETE CASCADE,
					account_id INTEGER NOT NULL REFERENCES account(id) ON DELETE RESTRICT,
					amount INTEGER NOT NULL,
					memo TEXT NOT NULL DEFAULT '',
					cleared BOOLEAN NOT NULL DEFAULT 0,
					reconciliation_id INTEGER REFERENCES reconciliation(id) ON DELETE SET NULL
				)`,
				`CREATE INDEX idx_account_transaction_entry ON account_transaction(transaction_entry_id)`,
				`CREATE INDEX idx_account_transaction_account ON account_transaction(account_id)`,
				`CREATE INDEX idx_account_transaction_reconciliation ON account_transaction(reconciliation_id)`,

				`CREATE TABLE IF NOT EXISTS envelope_transaction (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_entry_id INTEGER NOT NULL REFERENCES transaction_entry(id) ON DELETE CASCADE,
					envelope_id INTEGER NOT NULL REFERENCES envelope(id) ON DELETE RESTRICT,
					amount INTEGER NOT NULL,
					memo TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX idx_envelope_transaction_entry ON envelope_transaction(transaction_entry_id)`,
				`CREATE INDEX idx_envelope_transaction_envelope ON envelope_transaction(envelope_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Index cleared account splits for cleared-only balance queries",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_account_transaction_cleared
				ON account_transaction(account_id, cleared)`)
			return err
		},
	},
}

// SchemaVersion reports the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

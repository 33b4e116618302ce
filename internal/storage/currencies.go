package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/budgeteer-dev/budgeteer/internal/common"
	"github.com/budgeteer-dev/budgeteer/internal/model"
)

func getCurrency(ctx context.Context, q dbtx, id int64) (*model.Currency, error) {
	var cur model.Currency
	err := q.QueryRowContext(ctx,
		`SELECT id, code, ext_id FROM currency WHERE id = ?`, id).
		Scan(&cur.ID, &cur.Code, &cur.ExternalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("currency %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query currency: %w", err)
	}
	return &cur, nil
}

func listCurrencies(ctx context.Context, q dbtx) ([]model.Currency, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, code, ext_id FROM currency ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query currencies: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", "error", err)
		}
	}()

	var currencies []model.Currency
	for rows.Next() {
		var cur model.Currency
		if err := rows.Scan(&cur.ID, &cur.Code, &cur.ExternalID); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		currencies = append(currencies, cur)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating currencies: %w", err)
	}
	return currencies, nil
}

func insertCurrency(ctx context.Context, q dbtx, currency *model.Currency) error {
	result, err := q.ExecContext(ctx,
		`INSERT INTO currency (code, ext_id) VALUES (?, ?)`,
		currency.Code, currency.ExternalID)
	if err != nil {
		return fmt.Errorf("failed to create currency: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get currency ID: %w", err)
	}
	currency.ID = id
	return nil
}

func updateCurrency(ctx context.Context, q dbtx, currency *model.Currency) error {
	result, err := q.ExecContext(ctx,
		`UPDATE currency SET code = ?, ext_id = ? WHERE id = ?`,
		currency.Code, currency.ExternalID, currency.ID)
	if err != nil {
		return fmt.Errorf("failed to update currency: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("currency %d: %w", currency.ID, common.ErrNotFound)
	}
	return nil
}

// deleteCurrency removes the currency after reassigning every account and
// envelope that references it to the system default. The default currency
// itself can never be deleted.
func deleteCurrency(ctx context.Context, q dbtx, id int64) error {
	if id == model.DefaultCurrencyID {
		return common.ErrDefaultCurrency
	}
	if _, err := getCurrency(ctx, q, id); err != nil {
		return err
	}

	for _, table := range []string{"account", "envelope"} {
		query := fmt.Sprintf(`UPDATE %s SET currency_id = ? WHERE currency_id = ?`, table)
		if _, err := q.ExecContext(ctx, query, model.DefaultCurrencyID, id); err != nil {
			return fmt.Errorf("failed to reassign %s currencies: %w", table, err)
		}
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM currency WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete currency: %w", err)
	}
	return nil
}

// GetCurrency returns the currency with the given identifier.
func (s *SQLiteStorage) GetCurrency(ctx context.Context, id int64) (*model.Currency, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}
	return getCurrency(ctx, s.db, id)
}

// GetCurrencies returns all currencies.
func (s *SQLiteStorage) GetCurrencies(ctx context.Context) ([]model.Currency, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listCurrencies(ctx, s.db)
}

// CreateCurrency persists a new currency and assigns its identifier.
func (s *SQLiteStorage) CreateCurrency(ctx context.Context, currency *model.Currency) error {
	if err := validateCurrencyParam(ctx, currency); err != nil {
		return err
	}
	return insertCurrency(ctx, s.db, currency)
}

// UpdateCurrency applies an administrative edit to a currency.
func (s *SQLiteStorage) UpdateCurrency(ctx context.Context, currency *model.Currency) error {
	if err := validateCurrencyParam(ctx, currency); err != nil {
		return err
	}
	return updateCurrency(ctx, s.db, currency)
}

// DeleteCurrency removes a currency, reassigning its accounts and
// envelopes to the default currency in the same atomic unit.
func (s *SQLiteStorage) DeleteCurrency(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	return s.execTx(ctx, func(tx *sql.Tx) error {
		return deleteCurrency(ctx, tx, id)
	})
}

func validateCurrencyParam(ctx context.Context, currency *model.Currency) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if currency == nil {
		return fmt.Errorf("%w: currency", ErrNilParameter)
	}
	return validateString(currency.Code, "currency code")
}

// Unit-of-work delegates.

func (t *sqliteTransaction) GetCurrency(ctx context.Context, id int64) (*model.Currency, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getCurrency(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetCurrencies(ctx context.Context) ([]model.Currency, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listCurrencies(ctx, t.tx)
}

func (t *sqliteTransaction) CreateCurrency(ctx context.Context, currency *model.Currency) error {
	if err := validateCurrencyParam(ctx, currency); err != nil {
		return err
	}
	return insertCurrency(ctx, t.tx, currency)
}

func (t *sqliteTransaction) UpdateCurrency(ctx context.Context, currency *model.Currency) error {
	if err := validateCurrencyParam(ctx, currency); err != nil {
		return err
	}
	return updateCurrency(ctx, t.tx, currency)
}

func (t *sqliteTransaction) DeleteCurrency(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return deleteCurrency(ctx, t.tx, id)
}

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

func scanReconciliation(ctx context.Context, q dbtx, row interface{ Scan(...any) error }) (*model.Reconciliation, error) {
	var (
		rec       model.Reconciliation
		beginning int64
		ending    int64
	)
	err := row.Scan(&rec.ID, &rec.AccountID, &beginning, &rec.BeginningDate, &ending, &rec.EndingDate)
	if err != nil {
		return nil, err
	}
	code, err := accountCurrency(ctx, q, rec.AccountID)
	if err != nil {
		return nil, err
	}
	rec.BeginningBalance = model.NewMoney(beginning, code)
	rec.EndingBalance = model.NewMoney(ending, code)
	return &rec, nil
}

const reconciliationColumns = `id, account_id, beginning_balance, beginning_date, ending_balance, ending_date`

func getReconciliation(ctx context.Context, q dbtx, id int64) (*model.Reconciliation, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+reconciliationColumns+` FROM reconciliation WHERE id = ?`, id)
	rec, err := scanReconciliation(ctx, q, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reconciliation %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliation: %w", err)
	}
	return rec, nil
}

func listReconciliations(ctx context.Context, q dbtx, accountID int64) ([]model.Reconciliation, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+reconciliationColumns+` FROM reconciliation
		 WHERE account_id = ? ORDER BY beginning_date, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", "error", err)
		}
	}()

	// Collect raw rows first: scanReconciliation issues its own currency
	// lookup and SQLite serves one statement at a time per connection.
	type rawRec struct {
		rec       model.Reconciliation
		beginning int64
		ending    int64
	}
	var raw []rawRec
	for rows.Next() {
		var r rawRec
		if err := rows.Scan(&r.rec.ID, &r.rec.AccountID, &r.beginning,
			&r.rec.BeginningDate, &r.ending, &r.rec.EndingDate); err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation: %w", err)
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reconciliations: %w", err)
	}

	var recs []model.Reconciliation
	for _, r := range raw {
		code, err := accountCurrency(ctx, q, r.rec.AccountID)
		if err != nil {
			return nil, err
		}
		r.rec.BeginningBalance = model.NewMoney(r.beginning, code)
		r.rec.EndingBalance = model.NewMoney(r.ending, code)
		recs = append(recs, r.rec)
	}
	return recs, nil
}

func insertReconciliation(ctx context.Context, q dbtx, rec *model.Reconciliation) error {
	// Statement balances are bound to the account currency.
	code, err := accountCurrency(ctx, q, rec.AccountID)
	if err != nil {
		return err
	}
	for _, balance := range []model.Money{rec.BeginningBalance, rec.EndingBalance} {
		if balance.Currency() != "" && balance.Currency() != code {
			return &model.ValidationError{
				Reason:  model.ReasonCurrencyConversion,
				Message: "currency conversion would be required but is not supported",
			}
		}
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO reconciliation
			(account_id, beginning_balance, beginning_date, ending_balance, ending_date)
		VALUES (?, ?, ?, ?, ?)`,
		rec.AccountID, rec.BeginningBalance.ScaledAmount(), model.Day(rec.BeginningDate),
		rec.EndingBalance.ScaledAmount(), model.Day(rec.EndingDate))
	if err != nil {
		return fmt.Errorf("failed to create reconciliation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get reconciliation ID: %w", err)
	}
	rec.ID = id
	rec.BeginningBalance = model.NewMoney(rec.BeginningBalance.ScaledAmount(), code)
	rec.EndingBalance = model.NewMoney(rec.EndingBalance.ScaledAmount(), code)
	rec.BeginningDate = model.Day(rec.BeginningDate)
	rec.EndingDate = model.Day(rec.EndingDate)
	return nil
}

// deleteReconciliation nulls out the link on any splits referencing the
// statement before removing it; the splits themselves survive.
func deleteReconciliation(ctx context.Context, q dbtx, id int64) error {
	if _, err := getReconciliation(ctx, q, id); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE account_transaction SET reconciliation_id = NULL WHERE reconciliation_id = ?`,
		id); err != nil {
		return fmt.Errorf("failed to unlink account splits: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM reconciliation WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete reconciliation: %w", err)
	}
	return nil
}

// linkAccountTransaction sets the split's reconciliation reference and
// cleared flag together; reconciliationID 0 unlinks and unclears.
func linkAccountTransaction(ctx context.Context, q dbtx, splitID, reconciliationID int64) error {
	var (
		rec     any
		cleared bool
	)
	if reconciliationID != 0 {
		if _, err := getReconciliation(ctx, q, reconciliationID); err != nil {
			return err
		}
		rec = reconciliationID
		cleared = true
	}
	result, err := q.ExecContext(ctx,
		`UPDATE account_transaction SET reconciliation_id = ?, cleared = ? WHERE id = ?`,
		rec, cleared, splitID)
	if err != nil {
		return fmt.Errorf("failed to link account split: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account split %d: %w", splitID, common.ErrNotFound)
	}
	return nil
}

// GetReconciliation returns the reconciliation with the given identifier.
func (s *SQLiteStorage) GetReconciliation(ctx context.Context, id int64) (*model.Reconciliation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}
	return getReconciliation(ctx, s.db, id)
}

// GetReconciliations returns all statement periods recorded for an account.
func (s *SQLiteStorage) GetReconciliations(ctx context.Context, accountID int64) ([]model.Reconciliation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(accountID, "accountID"); err != nil {
		return nil, err
	}
	return listReconciliations(ctx, s.db, accountID)
}

// CreateReconciliation records a statement period against an account.
func (s *SQLiteStorage) CreateReconciliation(ctx context.Context, rec *model.Reconciliation) error {
	if err := validateReconciliationParam(ctx, rec); err != nil {
		return err
	}
	return insertReconciliation(ctx, s.db, rec)
}

// DeleteReconciliation removes a statement period, nulling out the link on
// splits that reference it.
func (s *SQLiteStorage) DeleteReconciliation(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	return s.execTx(ctx, func(tx *sql.Tx) error {
		return deleteReconciliation(ctx, tx, id)
	})
}

// LinkAccountTransaction sets or clears a split's reconciliation link and
// cleared flag together.
func (s *SQLiteStorage) LinkAccountTransaction(ctx context.Context, splitID, reconciliationID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(splitID, "splitID"); err != nil {
		return err
	}
	return linkAccountTransaction(ctx, s.db, splitID, reconciliationID)
}

func validateReconciliationParam(ctx context.Context, rec *model.Reconciliation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: reconciliation", ErrNilParameter)
	}
	if err := validateID(rec.AccountID, "rec.AccountID"); err != nil {
		return err
	}
	if rec.BeginningDate.IsZero() || rec.EndingDate.IsZero() {
		return fmt.Errorf("%w: reconciliation dates", ErrNilParameter)
	}
	return nil
}

// Unit-of-work delegates.

func (t *sqliteTransaction) GetReconciliation(ctx context.Context, id int64) (*model.Reconciliation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getReconciliation(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetReconciliations(ctx context.Context, accountID int64) ([]model.Reconciliation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listReconciliations(ctx, t.tx, accountID)
}

func (t *sqliteTransaction) CreateReconciliation(ctx context.Context, rec *model.Reconciliation) error {
	if err := validateReconciliationParam(ctx, rec); err != nil {
		return err
	}
	return insertReconciliation(ctx, t.tx, rec)
}

func (t *sqliteTransaction) DeleteReconciliation(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return deleteReconciliation(ctx, t.tx, id)
}

func (t *sqliteTransaction) LinkAccountTransaction(ctx context.Context, splitID, reconciliationID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return linkAccountTransaction(ctx, t.tx, splitID, reconciliationID)
}

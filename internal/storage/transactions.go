package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/budgeteer-dev/budgeteer/internal/common"
	"github.com/budgeteer-dev/budgeteer/internal/model"
)

// accountCurrency resolves the currency code an account's splits are bound
// to; envelopeCurrency does the same for envelopes.
func accountCurrency(ctx context.Context, q dbtx, accountID int64) (string, error) {
	var code string
	err := q.QueryRowContext(ctx, `
		SELECT c.code FROM account a
		JOIN currency c ON c.id = a.currency_id
		WHERE a.id = ?`, accountID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("account %d: %w", accountID, common.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve account currency: %w", err)
	}
	return code, nil
}

func envelopeCurrency(ctx context.Context, q dbtx, envelopeID int64) (string, error) {
	var code string
	err := q.QueryRowContext(ctx, `
		SELECT c.code FROM envelope e
		JOIN currency c ON c.id = e.currency_id
		WHERE e.id = ?`, envelopeID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("envelope %d: %w", envelopeID, common.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve envelope currency: %w", err)
	}
	return code, nil
}

// bindSplitCurrencies ties every split's amount to its target entity's
// currency. A split constructed without a currency adopts the entity's; a
// split carrying a different currency is rejected, since persisting it
// would require a conversion.
func bindSplitCurrencies(ctx context.Context, q dbtx, txn *model.Transaction) error {
	for i := range txn.AccountSplits {
		split := &txn.AccountSplits[i]
		code, err := accountCurrency(ctx, q, split.AccountID)
		if err != nil {
			return err
		}
		switch split.Amount.Currency() {
		case "":
			split.Amount = model.NewMoney(split.Amount.ScaledAmount(), code)
		case code:
		default:
			return &model.ValidationError{
				Reason:  model.ReasonCurrencyConversion,
				Message: "currency conversion would be required but is not supported",
			}
		}
	}
	for i := range txn.EnvelopeSplits {
		split := &txn.EnvelopeSplits[i]
		code, err := envelopeCurrency(ctx, q, split.EnvelopeID)
		if err != nil {
			return err
		}
		switch split.Amount.Currency() {
		case "":
			split.Amount = model.NewMoney(split.Amount.ScaledAmount(), code)
		case code:
		default:
			return &model.ValidationError{
				Reason:  model.ReasonCurrencyConversion,
				Message: "currency conversion would be required but is not supported",
			}
		}
	}
	return nil
}

func insertSplits(ctx context.Context, q dbtx, txn *model.Transaction) error {
	for i := range txn.AccountSplits {
		split := &txn.AccountSplits[i]
		var rec any
		if split.ReconciliationID != nil {
			rec = *split.ReconciliationID
		}
		result, err := q.ExecContext(ctx, `
			INSERT INTO account_transaction
				(transaction_entry_id, account_id, amount, memo, cleared, reconciliation_id)
			VALUES (?, ?, ?, ?, ?, ?)`,
			txn.ID, split.AccountID, split.Amount.ScaledAmount(), split.Memo, split.Cleared, rec)
		if err != nil {
			return fmt.Errorf("failed to insert account split: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get account split ID: %w", err)
		}
		split.ID = id
		split.TransactionID = txn.ID
	}
	for i := range txn.EnvelopeSplits {
		split := &txn.EnvelopeSplits[i]
		result, err := q.ExecContext(ctx, `
			INSERT INTO envelope_transaction (transaction_entry_id, envelope_id, amount, memo)
			VALUES (?, ?, ?, ?)`,
			txn.ID, split.EnvelopeID, split.Amount.ScaledAmount(), split.Memo)
		if err != nil {
			return fmt.Errorf("failed to insert envelope split: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get envelope split ID: %w", err)
		}
		split.ID = id
		split.TransactionID = txn.ID
	}
	return nil
}

// insertTransaction validates and persists a transaction with all of its
// splits. The caller supplies the enclosing unit of work.
func insertTransaction(ctx context.Context, q dbtx, txn *model.Transaction) error {
	if err := bindSplitCurrencies(ctx, q, txn); err != nil {
		return err
	}
	if err := model.Validate(txn); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO transaction_entry (date, payee) VALUES (?, ?)`,
		model.Day(txn.Date), txn.Payee)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction ID: %w", err)
	}
	txn.ID = id
	txn.Date = model.Day(txn.Date)

	return insertSplits(ctx, q, txn)
}

// replaceTransaction keeps the transaction's identity but swaps its splits
// wholesale: delete-all-then-reinsert after re-validation.
func replaceTransaction(ctx context.Context, q dbtx, txn *model.Transaction) error {
	if _, err := getTransactionHeader(ctx, q, txn.ID); err != nil {
		return err
	}
	if err := bindSplitCurrencies(ctx, q, txn); err != nil {
		return err
	}
	if err := model.Validate(txn); err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx,
		`UPDATE transaction_entry SET date = ?, payee = ? WHERE id = ?`,
		model.Day(txn.Date), txn.Payee, txn.ID); err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	txn.Date = model.Day(txn.Date)

	for _, table := range []string{"account_transaction", "envelope_transaction"} {
		query := fmt.Sprintf(`DELETE FROM %s WHERE transaction_entry_id = ?`, table)
		if _, err := q.ExecContext(ctx, query, txn.ID); err != nil {
			return fmt.Errorf("failed to clear %s splits: %w", table, err)
		}
	}
	return insertSplits(ctx, q, txn)
}

func deleteTransaction(ctx context.Context, q dbtx, id int64) error {
	if _, err := getTransactionHeader(ctx, q, id); err != nil {
		return err
	}
	for _, table := range []string{"account_transaction", "envelope_transaction"} {
		query := fmt.Sprintf(`DELETE FROM %s WHERE transaction_entry_id = ?`, table)
		if _, err := q.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("failed to delete %s splits: %w", table, err)
		}
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM transaction_entry WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

func getTransactionHeader(ctx context.Context, q dbtx, id int64) (*model.Transaction, error) {
	var txn model.Transaction
	err := q.QueryRowContext(ctx,
		`SELECT id, date, payee FROM transaction_entry WHERE id = ?`, id).
		Scan(&txn.ID, &txn.Date, &txn.Payee)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return &txn, nil
}

// loadSplits attaches both split collections, each amount reconstructed in
// its entity's currency.
func loadSplits(ctx context.Context, q dbtx, txn *model.Transaction) error {
	rows, err := q.QueryContext(ctx, `
		SELECT s.id, s.account_id, s.amount, s.memo, s.cleared, s.reconciliation_id, c.code
		FROM account_transaction s
		JOIN account a ON a.id = s.account_id
		JOIN currency c ON c.id = a.currency_id
		WHERE s.transaction_entry_id = ?
		ORDER BY s.id`, txn.ID)
	if err != nil {
		return fmt.Errorf("failed to query account splits: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var (
			split  model.AccountTransaction
			amount int64
			rec    sql.NullInt64
			code   string
		)
		if err := rows.Scan(&split.ID, &split.AccountID, &amount, &split.Memo,
			&split.Cleared, &rec, &code); err != nil {
			return fmt.Errorf("failed to scan account split: %w", err)
		}
		split.TransactionID = txn.ID
		split.Amount = model.NewMoney(amount, code)
		if rec.Valid {
			split.ReconciliationID = &rec.Int64
		}
		txn.AccountSplits = append(txn.AccountSplits, split)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating account splits: %w", err)
	}

	envRows, err := q.QueryContext(ctx, `
		SELECT s.id, s.envelope_id, s.amount, s.memo, c.code
		FROM envelope_transaction s
		JOIN envelope e ON e.id = s.envelope_id
		JOIN currency c ON c.id = e.currency_id
		WHERE s.transaction_entry_id = ?
		ORDER BY s.id`, txn.ID)
	if err != nil {
		return fmt.Errorf("failed to query envelope splits: %w", err)
	}
	defer func() {
		if err := envRows.Close(); err != nil {
			slog.Warn("failed to close rows", "error", err)
		}
	}()

	for envRows.Next() {
		var (
			split  model.EnvelopeTransaction
			amount int64
			code   string
		)
		if err := envRows.Scan(&split.ID, &split.EnvelopeID, &amount, &split.Memo, &code); err != nil {
			return fmt.Errorf("failed to scan envelope split: %w", err)
		}
		split.TransactionID = txn.ID
		split.Amount = model.NewMoney(amount, code)
		txn.EnvelopeSplits = append(txn.EnvelopeSplits, split)
	}
	if err := envRows.Err(); err != nil {
		return fmt.Errorf("error iterating envelope splits: %w", err)
	}
	return nil
}

func getTransaction(ctx context.Context, q dbtx, id int64) (*model.Transaction, error) {
	txn, err := getTransactionHeader(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if err := loadSplits(ctx, q, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func listTransactions(ctx context.Context, q dbtx, from, to time.Time) ([]model.Transaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, date, payee FROM transaction_entry
		WHERE date >= ? AND date <= ?
		ORDER BY date, id`, model.Day(from), model.Day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", "error", err)
		}
	}()

	var txns []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		if err := rows.Scan(&txn.ID, &txn.Date, &txn.Payee); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	for i := range txns {
		if err := loadSplits(ctx, q, &txns[i]); err != nil {
			return nil, err
		}
	}
	return txns, nil
}

// GetTransaction returns the transaction with the given identifier,
// including both split collections.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}
	return getTransaction(ctx, s.db, id)
}

// GetTransactions returns all transactions dated within [from, to].
func (s *SQLiteStorage) GetTransactions(ctx context.Context, from, to time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(from, to); err != nil {
		return nil, err
	}
	return listTransactions(ctx, s.db, from, to)
}

// CreateTransaction validates the transaction and persists it with all of
// its splits as one atomic write.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateTransactionParam(ctx, txn); err != nil {
		return err
	}
	return s.execTx(ctx, func(tx *sql.Tx) error {
		return insertTransaction(ctx, tx, txn)
	})
}

// ReplaceTransaction re-validates the transaction and replaces its splits
// wholesale, keeping its identity.
func (s *SQLiteStorage) ReplaceTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateTransactionParam(ctx, txn); err != nil {
		return err
	}
	if err := validateID(txn.ID, "txn.ID"); err != nil {
		return err
	}
	return s.execTx(ctx, func(tx *sql.Tx) error {
		return replaceTransaction(ctx, tx, txn)
	})
}

// DeleteTransaction removes the transaction, cascading to its splits.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	return s.execTx(ctx, func(tx *sql.Tx) error {
		return deleteTransaction(ctx, tx, id)
	})
}

func validateDateRange(from, to time.Time) error {
	if to.Before(from) {
		return fmt.Errorf("invalid date range: %s after %s",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return nil
}

func validateTransactionParam(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: transaction date", ErrNilParameter)
	}
	return nil
}

// Unit-of-work delegates.

func (t *sqliteTransaction) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getTransaction(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetTransactions(ctx context.Context, from, to time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(from, to); err != nil {
		return nil, err
	}
	return listTransactions(ctx, t.tx, from, to)
}

func (t *sqliteTransaction) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateTransactionParam(ctx, txn); err != nil {
		return err
	}
	return insertTransaction(ctx, t.tx, txn)
}

func (t *sqliteTransaction) ReplaceTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateTransactionParam(ctx, txn); err != nil {
		return err
	}
	return replaceTransaction(ctx, t.tx, txn)
}

func (t *sqliteTransaction) DeleteTransaction(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return deleteTransaction(ctx, t.tx, id)
}

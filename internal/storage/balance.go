package storage

import (
	"context"
	"fmt"

	"github.com/budgeteer-dev/budgeteer/internal/model"
	"github.com/budgeteer-dev/budgeteer/internal/service"
)

// getBalance computes a point-in-time balance with a single SQL aggregate.
// Balances are always computed fresh from the full split history; nothing
// is cached or materialized here.
func getBalance(ctx context.Context, q dbtx, query service.BalanceQuery) (model.Money, error) {
	asOf := model.Day(query.AsOf)

	switch {
	case query.AccountID != 0:
		code, err := accountCurrency(ctx, q, query.AccountID)
		if err != nil {
			return model.Money{}, err
		}
		sql := `
			SELECT COALESCE(SUM(s.amount), 0)
			FROM account_transaction s
			JOIN transaction_entry t ON t.id = s.transaction_entry_id
			WHERE s.account_id = ? AND t.date <= ?`
		args := []any{query.AccountID, asOf}
		if query.Cleared != nil {
			sql += ` AND s.cleared = ?`
			args = append(args, *query.Cleared)
		}
		return sumBalance(ctx, q, sql, args, code)

	case query.EnvelopeID != 0:
		// Envelopes have no clearing concept; the cleared filter is
		// ignored on this side.
		code, err := envelopeCurrency(ctx, q, query.EnvelopeID)
		if err != nil {
			return model.Money{}, err
		}
		sql := `
			SELECT COALESCE(SUM(s.amount), 0)
			FROM envelope_transaction s
			JOIN transaction_entry t ON t.id = s.transaction_entry_id
			WHERE s.envelope_id = ? AND t.date <= ?`
		return sumBalance(ctx, q, sql, []any{query.EnvelopeID, asOf}, code)

	default:
		currencyID := query.CurrencyID
		if currencyID == 0 {
			currencyID = model.DefaultCurrencyID
		}
		currency, err := getCurrency(ctx, q, currencyID)
		if err != nil {
			return model.Money{}, err
		}
		sql := `
			SELECT COALESCE(SUM(s.amount), 0)
			FROM account_transaction s
			JOIN transaction_entry t ON t.id = s.transaction_entry_id
			JOIN account a ON a.id = s.account_id
			WHERE a.currency_id = ? AND t.date <= ?`
		args := []any{currencyID, asOf}
		if query.Cleared != nil {
			sql += ` AND s.cleared = ?`
			args = append(args, *query.Cleared)
		}
		return sumBalance(ctx, q, sql, args, currency.Code)
	}
}

func sumBalance(ctx context.Context, q dbtx, query string, args []any, currency string) (model.Money, error) {
	var scaled int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&scaled); err != nil {
		return model.Money{}, fmt.Errorf("failed to compute balance: %w", err)
	}
	return model.NewMoney(scaled, currency), nil
}

// GetBalance computes the balance as of the query's date, inclusive, for
// an account, an envelope, or all accounts of a currency. A date with no
// matching splits yields zero in the relevant currency, not an error.
func (s *SQLiteStorage) GetBalance(ctx context.Context, query service.BalanceQuery) (model.Money, error) {
	if err := validateBalanceQuery(ctx, query); err != nil {
		return model.Money{}, err
	}
	return getBalance(ctx, s.db, query)
}

func validateBalanceQuery(ctx context.Context, query service.BalanceQuery) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if query.AsOf.IsZero() {
		return fmt.Errorf("%w: query.AsOf", ErrNilParameter)
	}
	if query.AccountID != 0 && query.EnvelopeID != 0 {
		return fmt.Errorf("balance query cannot name both an account and an envelope")
	}
	return nil
}

func (t *sqliteTransaction) GetBalance(ctx context.Context, query service.BalanceQuery) (model.Money, error) {
	if err := validateBalanceQuery(ctx, query); err != nil {
		return model.Money{}, err
	}
	return getBalance(ctx, t.tx, query)
}

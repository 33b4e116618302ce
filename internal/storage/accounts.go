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

const accountColumns = `id, name, currency_id, archived, ext_id, COALESCE(parent_id, 0)`

func scanAccount(row interface{ Scan(...any) error }) (*model.Account, error) {
	var acct model.Account
	err := row.Scan(&acct.ID, &acct.Name, &acct.CurrencyID, &acct.Archived,
		&acct.ExternalID, &acct.ParentID)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func getAccount(ctx context.Context, q dbtx, id int64) (*model.Account, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM account WHERE id = ?`, id)
	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return acct, nil
}

func queryAccounts(ctx context.Context, q dbtx, query string, args ...any) ([]model.Account, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", "error", err)
		}
	}()

	var accounts []model.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

func listAccounts(ctx context.Context, q dbtx) ([]model.Account, error) {
	return queryAccounts(ctx, q, `SELECT `+accountColumns+` FROM account ORDER BY id`)
}

// leafAccounts finds all accounts with no children using a left-join
// exclusion: join each account against its would-be children and keep only
// the rows where no child matched. One pass, no tree walk in memory.
func leafAccounts(ctx context.Context, q dbtx) ([]model.Account, error) {
	query := `
		SELECT a.id, a.name, a.currency_id, a.archived, a.ext_id, COALESCE(a.parent_id, 0)
		FROM account a
		LEFT JOIN account child ON child.parent_id = a.id
		WHERE child.id IS NULL
		ORDER BY a.id`
	return queryAccounts(ctx, q, query)
}

func insertAccount(ctx context.Context, q dbtx, acct *model.Account) error {
	if acct.CurrencyID == 0 {
		acct.CurrencyID = model.DefaultCurrencyID
	}
	if acct.ParentID == 0 {
		acct.ParentID = model.RootAccountID
	}
	result, err := q.ExecContext(ctx,
		`INSERT INTO account (name, currency_id, archived, ext_id, parent_id)
		 VALUES (?, ?, ?, ?, ?)`,
		acct.Name, acct.CurrencyID, acct.Archived, acct.ExternalID, acct.ParentID)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get account ID: %w", err)
	}
	acct.ID = id
	return nil
}

// validateAccountParent rejects reparenting an account under itself or any
// of its descendants, which would detach the subtree from the root and make
// recursive walks over it non-terminating.
func validateAccountParent(ctx context.Context, q dbtx, id, parentID int64) error {
	if parentID <= 0 || parentID == model.RootAccountID {
		return nil
	}
	var inSubtree int
	err := q.QueryRowContext(ctx, `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM account WHERE id = ?
			UNION ALL
			SELECT a.id FROM account a JOIN subtree s ON a.parent_id = s.id
		)
		SELECT COUNT(*) FROM subtree WHERE id = ?`, id, parentID).Scan(&inSubtree)
	if err != nil {
		return fmt.Errorf("failed to check account parent: %w", err)
	}
	if inSubtree > 0 {
		return fmt.Errorf("account %d cannot be moved under its own subtree: %w",
			id, common.ErrConstraintViolation)
	}
	return nil
}

func updateAccount(ctx context.Context, q dbtx, acct *model.Account) error {
	if err := validateAccountParent(ctx, q, acct.ID, acct.ParentID); err != nil {
		return err
	}
	var parent any
	if acct.ParentID > 0 {
		parent = acct.ParentID
	}
	result, err := q.ExecContext(ctx,
		`UPDATE account SET name = ?, currency_id = ?, archived = ?, ext_id = ?, parent_id = ?
		 WHERE id = ?`,
		acct.Name, acct.CurrencyID, acct.Archived, acct.ExternalID, parent, acct.ID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account %d: %w", acct.ID, common.ErrNotFound)
	}
	return nil
}

// deleteAccountTree removes the account and every descendant. A pre-check
// collects the whole subtree and refuses the delete if any collected node
// is referenced by a transaction split, keeping the failure atomic and
// reportable instead of relying on store-level cascade triggers.
func deleteAccountTree(ctx context.Context, q dbtx, id int64) error {
	if id == model.RootAccountID {
		return fmt.Errorf("account %d: %w", id, common.ErrRootNode)
	}
	if _, err := getAccount(ctx, q, id); err != nil {
		return err
	}

	subtree := `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM account WHERE id = ?
			UNION ALL
			SELECT a.id FROM account a JOIN subtree s ON a.parent_id = s.id
		)`

	var referenced int
	err := q.QueryRowContext(ctx, subtree+`
		SELECT COUNT(*) FROM account_transaction
		WHERE account_id IN (SELECT id FROM subtree)`, id).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("failed to check account references: %w", err)
	}
	if referenced > 0 {
		return fmt.Errorf("account %d subtree is referenced by %d transaction splits: %w",
			id, referenced, common.ErrConstraintViolation)
	}

	// Children first so the parent foreign key never dangles mid-delete.
	_, err = q.ExecContext(ctx, subtree+`
		DELETE FROM account WHERE id IN (SELECT id FROM subtree)
		AND id != ?`, id, id)
	if err != nil {
		return fmt.Errorf("failed to delete account subtree: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM account WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// GetAccount returns the account with the given identifier.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}
	return getAccount(ctx, s.db, id)
}

// GetRootAccount returns the well-known root of the account tree.
func (s *SQLiteStorage) GetRootAccount(ctx context.Context) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getAccount(ctx, s.db, model.RootAccountID)
}

// GetAccounts returns all accounts.
func (s *SQLiteStorage) GetAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listAccounts(ctx, s.db)
}

// GetLeafAccounts returns all accounts with no children.
func (s *SQLiteStorage) GetLeafAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return leafAccounts(ctx, s.db)
}

// CreateAccount persists a new account under its parent (the root when no
// parent is given) and assigns its identifier.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateAccountParam(ctx, account); err != nil {
		return err
	}
	return insertAccount(ctx, s.db, account)
}

// UpdateAccount renames, archives, or reparents an account.
func (s *SQLiteStorage) UpdateAccount(ctx context.Context, account *model.Account) error {
	if err := validateAccountParam(ctx, account); err != nil {
		return err
	}
	return updateAccount(ctx, s.db, account)
}

// DeleteAccount removes an account and its entire subtree atomically,
// failing if any descendant is referenced by a transaction split.
func (s *SQLiteStorage) DeleteAccount(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	return s.execTx(ctx, func(tx *sql.Tx) error {
		return deleteAccountTree(ctx, tx, id)
	})
}

func validateAccountParam(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	return validateString(account.Name, "name")
}

// Unit-of-work delegates.

func (t *sqliteTransaction) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getAccount(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetRootAccount(ctx context.Context) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getAccount(ctx, t.tx, model.RootAccountID)
}

func (t *sqliteTransaction) GetAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listAccounts(ctx, t.tx)
}

func (t *sqliteTransaction) GetLeafAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return leafAccounts(ctx, t.tx)
}

func (t *sqliteTransaction) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateAccountParam(ctx, account); err != nil {
		return err
	}
	return insertAccount(ctx, t.tx, account)
}

func (t *sqliteTransaction) UpdateAccount(ctx context.Context, account *model.Account) error {
	if err := validateAccountParam(ctx, account); err != nil {
		return err
	}
	return updateAccount(ctx, t.tx, account)
}

func (t *sqliteTransaction) DeleteAccount(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return deleteAccountTree(ctx, t.tx, id)
}

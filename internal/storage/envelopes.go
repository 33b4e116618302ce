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

const envelopeColumns = `id, name, currency_id, archived, ext_id, COALESCE(parent_id, 0)`

func scanEnvelope(row interface{ Scan(...any) error }) (*model.Envelope, error) {
	var env model.Envelope
	err := row.Scan(&env.ID, &env.Name, &env.CurrencyID, &env.Archived,
		&env.ExternalID, &env.ParentID)
	if err != nil {
		return nil, err
	}
	return &env, nil
}

func getEnvelope(ctx context.Context, q dbtx, id int64) (*model.Envelope, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+envelopeColumns+` FROM envelope WHERE id = ?`, id)
	env, err := scanEnvelope(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("envelope %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query envelope: %w", err)
	}
	return env, nil
}

func queryEnvelopes(ctx context.Context, q dbtx, query string, args ...any) ([]model.Envelope, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query envelopes: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", "error", err)
		}
	}()

	var envelopes []model.Envelope
	for rows.Next() {
		env, err := scanEnvelope(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan envelope: %w", err)
		}
		envelopes = append(envelopes, *env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating envelopes: %w", err)
	}
	return envelopes, nil
}

func listEnvelopes(ctx context.Context, q dbtx) ([]model.Envelope, error) {
	return queryEnvelopes(ctx, q, `SELECT `+envelopeColumns+` FROM envelope ORDER BY id`)
}

// leafEnvelopes mirrors leafAccounts: a left-join exclusion keeps only the
// envelopes no other envelope names as its parent.
func leafEnvelopes(ctx context.Context, q dbtx) ([]model.Envelope, error) {
	query := `
		SELECT e.id, e.name, e.currency_id, e.archived, e.ext_id, COALESCE(e.parent_id, 0)
		FROM envelope e
		LEFT JOIN envelope child ON child.parent_id = e.id
		WHERE child.id IS NULL
		ORDER BY e.id`
	return queryEnvelopes(ctx, q, query)
}

func insertEnvelope(ctx context.Context, q dbtx, env *model.Envelope) error {
	if env.CurrencyID == 0 {
		env.CurrencyID = model.DefaultCurrencyID
	}
	if env.ParentID == 0 {
		env.ParentID = model.RootEnvelopeID
	}
	result, err := q.ExecContext(ctx,
		`INSERT INTO envelope (name, currency_id, archived, ext_id, parent_id)
		 VALUES (?, ?, ?, ?, ?)`,
		env.Name, env.CurrencyID, env.Archived, env.ExternalID, env.ParentID)
	if err != nil {
		return fmt.Errorf("failed to create envelope: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get envelope ID: %w", err)
	}
	env.ID = id
	return nil
}

// validateEnvelopeParent mirrors validateAccountParent for the envelope
// tree: a node can never become its own ancestor.
func validateEnvelopeParent(ctx context.Context, q dbtx, id, parentID int64) error {
	if parentID <= 0 || parentID == model.RootEnvelopeID {
		return nil
	}
	var inSubtree int
	err := q.QueryRowContext(ctx, `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM envelope WHERE id = ?
			UNION ALL
			SELECT e.id FROM envelope e JOIN subtree s ON e.parent_id = s.id
		)
		SELECT COUNT(*) FROM subtree WHERE id = ?`, id, parentID).Scan(&inSubtree)
	if err != nil {
		return fmt.Errorf("failed to check envelope parent: %w", err)
	}
	if inSubtree > 0 {
		return fmt.Errorf("envelope %d cannot be moved under its own subtree: %w",
			id, common.ErrConstraintViolation)
	}
	return nil
}

func updateEnvelope(ctx context.Context, q dbtx, env *model.Envelope) error {
	if err := validateEnvelopeParent(ctx, q, env.ID, env.ParentID); err != nil {
		return err
	}
	var parent any
	if env.ParentID > 0 {
		parent = env.ParentID
	}
	result, err := q.ExecContext(ctx,
		`UPDATE envelope SET name = ?, currency_id = ?, archived = ?, ext_id = ?, parent_id = ?
		 WHERE id = ?`,
		env.Name, env.CurrencyID, env.Archived, env.ExternalID, parent, env.ID)
	if err != nil {
		return fmt.Errorf("failed to update envelope: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("envelope %d: %w", env.ID, common.ErrNotFound)
	}
	return nil
}

// deleteEnvelopeTree removes the envelope and every descendant, refusing
// when any collected node is referenced by an envelope split. Same
// pre-check pattern as deleteAccountTree.
func deleteEnvelopeTree(ctx context.Context, q dbtx, id int64) error {
	if id == model.RootEnvelopeID {
		return fmt.Errorf("envelope %d: %w", id, common.ErrRootNode)
	}
	if _, err := getEnvelope(ctx, q, id); err != nil {
		return err
	}

	subtree := `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM envelope WHERE id = ?
			UNION ALL
			SELECT e.id FROM envelope e JOIN subtree s ON e.parent_id = s.id
		)`

	var referenced int
	err := q.QueryRowContext(ctx, subtree+`
		SELECT COUNT(*) FROM envelope_transaction
		WHERE envelope_id IN (SELECT id FROM subtree)`, id).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("failed to check envelope references: %w", err)
	}
	if referenced > 0 {
		return fmt.Errorf("envelope %d subtree is referenced by %d transaction splits: %w",
			id, referenced, common.ErrConstraintViolation)
	}

	_, err = q.ExecContext(ctx, subtree+`
		DELETE FROM envelope WHERE id IN (SELECT id FROM subtree)
		AND id != ?`, id, id)
	if err != nil {
		return fmt.Errorf("failed to delete envelope subtree: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM envelope WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete envelope: %w", err)
	}
	return nil
}

// GetEnvelope returns the envelope with the given identifier.
func (s *SQLiteStorage) GetEnvelope(ctx context.Context, id int64) (*model.Envelope, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}
	return getEnvelope(ctx, s.db, id)
}

// GetRootEnvelope returns the well-known root of the envelope tree.
func (s *SQLiteStorage) GetRootEnvelope(ctx context.Context) (*model.Envelope, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getEnvelope(ctx, s.db, model.RootEnvelopeID)
}

// GetEnvelopes returns all envelopes.
func (s *SQLiteStorage) GetEnvelopes(ctx context.Context) ([]model.Envelope, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listEnvelopes(ctx, s.db)
}

// GetLeafEnvelopes returns all envelopes with no children.
func (s *SQLiteStorage) GetLeafEnvelopes(ctx context.Context) ([]model.Envelope, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return leafEnvelopes(ctx, s.db)
}

// CreateEnvelope persists a new envelope under its parent (the root when
// no parent is given) and assigns its identifier.
func (s *SQLiteStorage) CreateEnvelope(ctx context.Context, envelope *model.Envelope) error {
	if err := validateEnvelopeParam(ctx, envelope); err != nil {
		return err
	}
	return insertEnvelope(ctx, s.db, envelope)
}

// UpdateEnvelope renames, archives, or reparents an envelope.
func (s *SQLiteStorage) UpdateEnvelope(ctx context.Context, envelope *model.Envelope) error {
	if err := validateEnvelopeParam(ctx, envelope); err != nil {
		return err
	}
	return updateEnvelope(ctx, s.db, envelope)
}

// DeleteEnvelope removes an envelope and its entire subtree atomically,
// failing if any descendant is referenced by a transaction split.
func (s *SQLiteStorage) DeleteEnvelope(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	return s.execTx(ctx, func(tx *sql.Tx) error {
		return deleteEnvelopeTree(ctx, tx, id)
	})
}

func validateEnvelopeParam(ctx context.Context, envelope *model.Envelope) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if envelope == nil {
		return fmt.Errorf("%w: envelope", ErrNilParameter)
	}
	return validateString(envelope.Name, "name")
}

// Unit-of-work delegates.

func (t *sqliteTransaction) GetEnvelope(ctx context.Context, id int64) (*model.Envelope, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getEnvelope(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetRootEnvelope(ctx context.Context) (*model.Envelope, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getEnvelope(ctx, t.tx, model.RootEnvelopeID)
}

func (t *sqliteTransaction) GetEnvelopes(ctx context.Context) ([]model.Envelope, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listEnvelopes(ctx, t.tx)
}

func (t *sqliteTransaction) GetLeafEnvelopes(ctx context.Context) ([]model.Envelope, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return leafEnvelopes(ctx, t.tx)
}

func (t *sqliteTransaction) CreateEnvelope(ctx context.Context, envelope *model.Envelope) error {
	if err := validateEnvelopeParam(ctx, envelope); err != nil {
		return err
	}
	return insertEnvelope(ctx, t.tx, envelope)
}

func (t *sqliteTransaction) UpdateEnvelope(ctx context.Context, envelope *model.Envelope) error {
	if err := validateEnvelopeParam(ctx, envelope); err != nil {
		return err
	}
	return updateEnvelope(ctx, t.tx, envelope)
}

func (t *sqliteTransaction) DeleteEnvelope(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return deleteEnvelopeTree(ctx, t.tx, id)
}

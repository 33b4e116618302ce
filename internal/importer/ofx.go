package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/budgeteer-dev/budgeteer/internal/model"
	"github.com/budgeteer-dev/budgeteer/internal/ofx"
	"github.com/budgeteer-dev/budgeteer/internal/service"
)

// OFXOptions controls how parsed statements map onto the ledger.
type OFXOptions struct {
	// AccountID forces every statement into one ledger account. When
	// zero, each statement is matched to the account whose external ID
	// equals the statement's institution account number.
	AccountID int64
	// EnvelopeID is the counter envelope for every imported entry.
	EnvelopeID int64
	// MarkCleared records the account splits as cleared. Statement
	// entries have already posted at the institution.
	MarkCleared bool
	// Progress, when set, is invoked once per processed entry.
	Progress func()
	// DryRun validates and maps entries without committing anything.
	DryRun bool
}

// OFXImporter turns parsed OFX statements into ledger transactions: one
// account split per statement entry with a counter split against the
// chosen envelope.
type OFXImporter struct {
	storage service.Storage
}

// NewOFXImporter creates an OFX importer backed by the given store.
func NewOFXImporter(storage service.Storage) *OFXImporter {
	return &OFXImporter{storage: storage}
}

// Import persists all statement entries inside a single unit of work.
func (i *OFXImporter) Import(ctx context.Context, statements []ofx.Statement, opts OFXOptions) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if opts.EnvelopeID == 0 {
		return nil, fmt.Errorf("envelope is required for OFX import")
	}

	tx, err := i.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.GetEnvelope(ctx, opts.EnvelopeID); err != nil {
		return nil, fmt.Errorf("envelope %d: %w", opts.EnvelopeID, err)
	}

	result := &Result{}
	line := 0
	for _, stmt := range statements {
		accountID, err := i.resolveAccount(ctx, tx, stmt, opts)
		if err != nil {
			// Without a target account every entry in the statement is
			// unmappable; skip the statement as a block.
			for range stmt.Entries {
				line++
				result.Skipped++
				result.Errors = append(result.Errors, RowError{Line: line, Err: err})
			}
			slog.Warn("skipping statement", "account", stmt.AccountID, "error", err)
			continue
		}

		for _, entry := range stmt.Entries {
			line++
			if opts.Progress != nil {
				opts.Progress()
			}
			txn := entryTransaction(entry, accountID, opts)
			if err := tx.CreateTransaction(ctx, txn); err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, RowError{Line: line, Err: err})
				slog.Warn("skipping statement entry",
					"payee", entry.Payee, "error", err)
				continue
			}
			result.Imported++
		}
	}

	if opts.DryRun {
		return result, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	committed = true

	slog.Info("OFX import complete",
		"imported", result.Imported,
		"skipped", result.Skipped)
	return result, nil
}

func (i *OFXImporter) resolveAccount(ctx context.Context, s service.Storage,
	stmt ofx.Statement, opts OFXOptions) (int64, error) {
	if opts.AccountID != 0 {
		if _, err := s.GetAccount(ctx, opts.AccountID); err != nil {
			return 0, err
		}
		return opts.AccountID, nil
	}

	accounts, err := s.GetAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	for _, a := range accounts {
		if a.ExternalID != "" && a.ExternalID == stmt.AccountID {
			return a.ID, nil
		}
	}
	return 0, fmt.Errorf("no account with external ID %q", stmt.AccountID)
}

func entryTransaction(entry ofx.Entry, accountID int64, opts OFXOptions) *model.Transaction {
	memo := entry.Memo
	if entry.CheckNum != "" {
		if memo != "" {
			memo += " "
		}
		memo += "check #" + strings.TrimSpace(entry.CheckNum)
	}
	return &model.Transaction{
		Date:  entry.Date,
		Payee: entry.Payee,
		AccountSplits: []model.AccountTransaction{
			{AccountID: accountID, Amount: entry.Amount, Memo: memo, Cleared: opts.MarkCleared},
		},
		EnvelopeSplits: []model.EnvelopeTransaction{
			{EnvelopeID: opts.EnvelopeID, Amount: entry.Amount},
		},
	}
}

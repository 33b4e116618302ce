// Package importer loads bulk transaction data into the ledger. Each
// source format is mapped onto the same unit of work so an import lands
// atomically or not at all.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/budgeteer-dev/budgeteer/internal/model"
	"github.com/budgeteer-dev/budgeteer/internal/service"
)

// Result summarizes an import run.
type Result struct {
	Imported int
	Skipped  int
	Errors   []RowError
}

// RowError records why a row was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Options controls an import run.
type Options struct {
	// Progress, when set, is invoked once per processed row.
	Progress func()
	// DryRun validates and maps rows without committing anything.
	DryRun bool
}

// CSVImporter reads transaction rows in the format
// date,payee,account,envelope,amount,memo,cleared and persists them.
// Accounts and envelopes are created under the root on first reference.
type CSVImporter struct {
	storage service.Storage
}

// NewCSVImporter creates a CSV importer backed by the given store.
func NewCSVImporter(storage service.Storage) *CSVImporter {
	return &CSVImporter{storage: storage}
}

const csvFieldCount = 7

// Import reads all rows from reader and persists them inside a single
// unit of work. Rows that fail to parse or validate are skipped and
// reported; they never abort the rows around them.
func (i *CSVImporter) Import(ctx context.Context, reader io.Reader, opts Options) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) > 0 && isHeaderRow(records[0]) {
		records = records[1:]
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

	accounts, err := nameIndexAccounts(ctx, tx)
	if err != nil {
		return nil, err
	}
	envelopes, err := nameIndexEnvelopes(ctx, tx)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for n, record := range records {
		line := n + 1
		if opts.Progress != nil {
			opts.Progress()
		}

		txn, err := i.mapRow(ctx, tx, record, accounts, envelopes)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Line: line, Err: err})
			slog.Warn("skipping import row", "line", line, "error", err)
			continue
		}
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Line: line, Err: err})
			slog.Warn("skipping import row", "line", line, "error", err)
			continue
		}
		result.Imported++
	}

	if opts.DryRun {
		return result, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	committed = true

	slog.Info("CSV import complete",
		"imported", result.Imported,
		"skipped", result.Skipped)
	return result, nil
}

func (i *CSVImporter) mapRow(ctx context.Context, tx service.Transaction, record []string,
	accounts, envelopes map[string]int64) (*model.Transaction, error) {
	if len(record) < 5 {
		return nil, fmt.Errorf("expected at least 5 fields, got %d", len(record))
	}
	for len(record) < csvFieldCount {
		record = append(record, "")
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(record[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", record[0], err)
	}

	payee := strings.TrimSpace(record[1])
	if payee == "" {
		return nil, fmt.Errorf("payee cannot be empty")
	}

	accountName := strings.TrimSpace(record[2])
	if accountName == "" {
		return nil, fmt.Errorf("account cannot be empty")
	}
	accountID, ok := accounts[accountName]
	if !ok {
		acct := &model.Account{Name: accountName}
		if err := tx.CreateAccount(ctx, acct); err != nil {
			return nil, fmt.Errorf("failed to create account %q: %w", accountName, err)
		}
		accounts[accountName] = acct.ID
		accountID = acct.ID
	}

	envelopeName := strings.TrimSpace(record[3])
	if envelopeName == "" {
		return nil, fmt.Errorf("envelope cannot be empty")
	}
	envelopeID, ok := envelopes[envelopeName]
	if !ok {
		env := &model.Envelope{Name: envelopeName}
		if err := tx.CreateEnvelope(ctx, env); err != nil {
			return nil, fmt.Errorf("failed to create envelope %q: %w", envelopeName, err)
		}
		envelopes[envelopeName] = env.ID
		envelopeID = env.ID
	}

	amount, err := model.ParseMoney(strings.TrimSpace(record[4]), "")
	if err != nil {
		return nil, err
	}

	memo := strings.TrimSpace(record[5])

	cleared := false
	if raw := strings.TrimSpace(record[6]); raw != "" {
		cleared, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid cleared flag %q: %w", record[6], err)
		}
	}

	return &model.Transaction{
		Date:  date,
		Payee: payee,
		AccountSplits: []model.AccountTransaction{
			{AccountID: accountID, Amount: amount, Memo: memo, Cleared: cleared},
		},
		EnvelopeSplits: []model.EnvelopeTransaction{
			{EnvelopeID: envelopeID, Amount: amount},
		},
	}, nil
}

func isHeaderRow(record []string) bool {
	if len(record) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(record[0]), "date")
}

func nameIndexAccounts(ctx context.Context, s service.Storage) (map[string]int64, error) {
	accounts, err := s.GetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	index := make(map[string]int64, len(accounts))
	for _, a := range accounts {
		if a.IsRoot() {
			continue
		}
		index[a.Name] = a.ID
	}
	return index, nil
}

func nameIndexEnvelopes(ctx context.Context, s service.Storage) (map[string]int64, error) {
	envelopes, err := s.GetEnvelopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list envelopes: %w", err)
	}
	index := make(map[string]int64, len(envelopes))
	for _, e := range envelopes {
		if e.IsRoot() {
			continue
		}
		index[e.Name] = e.ID
	}
	return index, nil
}

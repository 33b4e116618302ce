// Package testutil provides test fixtures for the ledger: in-memory
// databases seeded with the default currency and root trees.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/budgeteer-dev/budgeteer/internal/model"
	"github.com/budgeteer-dev/budgeteer/internal/service"
	"github.com/budgeteer-dev/budgeteer/internal/storage"
)

// TestLedger wraps an in-memory store with helpers for seeding entities.
type TestLedger struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestLedger creates a migrated, initialized in-memory ledger. The
// default currency and both root nodes exist; cleanup is automatic.
func SetupTestLedger(t *testing.T) *TestLedger {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize ledger: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestLedger{Storage: store, t: t}
}

// MustCreateCurrency seeds a currency or fails the test.
func (l *TestLedger) MustCreateCurrency(code string) *model.Currency {
	l.t.Helper()
	cur := &model.Currency{Code: code}
	if err := l.Storage.CreateCurrency(context.Background(), cur); err != nil {
		l.t.Fatalf("failed to create currency %q: %v", code, err)
	}
	return cur
}

// MustCreateAccount seeds an account under the root, bound to the given
// currency (the default when zero), or fails the test.
func (l *TestLedger) MustCreateAccount(name string, currencyID int64) *model.Account {
	l.t.Helper()
	acct := &model.Account{Name: name, CurrencyID: currencyID}
	if err := l.Storage.CreateAccount(context.Background(), acct); err != nil {
		l.t.Fatalf("failed to create account %q: %v", name, err)
	}
	return acct
}

// MustCreateEnvelope seeds an envelope under the root, bound to the given
// currency (the default when zero), or fails the test.
func (l *TestLedger) MustCreateEnvelope(name string, currencyID int64) *model.Envelope {
	l.t.Helper()
	env := &model.Envelope{Name: name, CurrencyID: currencyID}
	if err := l.Storage.CreateEnvelope(context.Background(), env); err != nil {
		l.t.Fatalf("failed to create envelope %q: %v", name, err)
	}
	return env
}

// MustCreateTransaction persists a transaction or fails the test.
func (l *TestLedger) MustCreateTransaction(txn *model.Transaction) *model.Transaction {
	l.t.Helper()
	if err := l.Storage.CreateTransaction(context.Background(), txn); err != nil {
		l.t.Fatalf("failed to create transaction %q: %v", txn.Payee, err)
	}
	return txn
}

// ReferenceScenario holds the entities of the canonical four-transaction
// fixture used by the balance tests.
type ReferenceScenario struct {
	Bank      *model.Account
	Credit    *model.Account
	Food      *model.Envelope
	Utilities *model.Envelope
}

// SeedReferenceScenario populates the ledger with the canonical fixture:
// a cleared paycheck into "bank" budgeted across "food" and "utilities",
// a grocery charge on "credit card", an electric bill from "bank", and a
// credit card payment transfer.
func (l *TestLedger) SeedReferenceScenario() ReferenceScenario {
	l.t.Helper()

	s := ReferenceScenario{
		Bank:      l.MustCreateAccount("bank", 0),
		Credit:    l.MustCreateAccount("credit card", 0),
		Food:      l.MustCreateEnvelope("food", 0),
		Utilities: l.MustCreateEnvelope("utilities", 0),
	}

	l.MustCreateTransaction(&model.Transaction{
		Date:  time.Date(2018, 8, 31, 0, 0, 0, 0, time.UTC),
		Payee: "paycheck",
		AccountSplits: []model.AccountTransaction{
			{AccountID: s.Bank.ID, Amount: model.NewMoney(1000000, "USD"), Cleared: true},
		},
		EnvelopeSplits: []model.EnvelopeTransaction{
			{EnvelopeID: s.Food.ID, Amount: model.NewMoney(600000, "USD")},
			{EnvelopeID: s.Utilities.ID, Amount: model.NewMoney(400000, "USD")},
		},
	})
	l.MustCreateTransaction(&model.Transaction{
		Date:  time.Date(2018, 9, 1, 0, 0, 0, 0, time.UTC),
		Payee: "grocer",
		AccountSplits: []model.AccountTransaction{
			{AccountID: s.Credit.ID, Amount: model.NewMoney(-127500, "USD")},
		},
		EnvelopeSplits: []model.EnvelopeTransaction{
			{EnvelopeID: s.Food.ID, Amount: model.NewMoney(-127500, "USD")},
		},
	})
	l.MustCreateTransaction(&model.Transaction{
		Date:  time.Date(2018, 9, 2, 0, 0, 0, 0, time.UTC),
		Payee: "electric",
		AccountSplits: []model.AccountTransaction{
			{AccountID: s.Bank.ID, Amount: model.NewMoney(-389700, "USD")},
		},
		EnvelopeSplits: []model.EnvelopeTransaction{
			{EnvelopeID: s.Utilities.ID, Amount: model.NewMoney(-389700, "USD")},
		},
	})
	l.MustCreateTransaction(&model.Transaction{
		Date:  time.Date(2018, 9, 3, 0, 0, 0, 0, time.UTC),
		Payee: "credit card payment",
		AccountSplits: []model.AccountTransaction{
			{AccountID: s.Bank.ID, Amount: model.NewMoney(-120000, "USD")},
			{AccountID: s.Credit.ID, Amount: model.NewMoney(120000, "USD")},
		},
	})

	return s
}

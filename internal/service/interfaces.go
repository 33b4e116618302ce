// Package service defines the contracts between the ledger core and its
// persistence layer.
package service

import (
	"context"
	"time"

	"github.com/budgeteer-dev/budgeteer/internal/model"
)

// BalanceQuery selects which point-in-time balance to compute. Exactly one
// of AccountID or EnvelopeID may be set; when neither is set the overall
// balance across all accounts of CurrencyID is computed (defaulting to the
// system default currency). Cleared, when non-nil, restricts account
// splits by their cleared flag; it is ignored for envelope balances.
type BalanceQuery struct {
	AsOf       time.Time
	Cleared    *bool
	AccountID  int64
	EnvelopeID int64
	CurrencyID int64
}

// Storage is the persistence contract for the ledger core. Every mutating
// operation executes as one atomic unit against the backing store; a
// failure partway through rolls back every partial change.
type Storage interface {
	// Currency operations
	GetCurrency(ctx context.Context, id int64) (*model.Currency, error)
	GetCurrencies(ctx context.Context) ([]model.Currency, error)
	CreateCurrency(ctx context.Context, currency *model.Currency) error
	UpdateCurrency(ctx context.Context, currency *model.Currency) error
	// DeleteCurrency reassigns every account and envelope using the
	// currency to the system default before removing it. The default
	// currency itself cannot be deleted.
	DeleteCurrency(ctx context.Context, id int64) error

	// Account tree operations
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	GetRootAccount(ctx context.Context) (*model.Account, error)
	GetAccounts(ctx context.Context) ([]model.Account, error)
	GetLeafAccounts(ctx context.Context) ([]model.Account, error)
	CreateAccount(ctx context.Context, account *model.Account) error
	UpdateAccount(ctx context.Context, account *model.Account) error
	// DeleteAccount removes the account and its entire subtree. It fails
	// with a constraint violation if any descendant is referenced by a
	// transaction split.
	DeleteAccount(ctx context.Context, id int64) error

	// Envelope tree operations
	GetEnvelope(ctx context.Context, id int64) (*model.Envelope, error)
	GetRootEnvelope(ctx context.Context) (*model.Envelope, error)
	GetEnvelopes(ctx context.Context) ([]model.Envelope, error)
	GetLeafEnvelopes(ctx context.Context) ([]model.Envelope, error)
	CreateEnvelope(ctx context.Context, envelope *model.Envelope) error
	UpdateEnvelope(ctx context.Context, envelope *model.Envelope) error
	DeleteEnvelope(ctx context.Context, id int64) error

	// Transaction operations
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	GetTransactions(ctx context.Context, from, to time.Time) ([]model.Transaction, error)
	// CreateTransaction validates the transaction and persists it with all
	// of its splits in one atomic write.
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	// ReplaceTransaction re-validates and replaces the transaction's splits
	// wholesale, keeping its identity.
	ReplaceTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error

	// Balance engine
	GetBalance(ctx context.Context, query BalanceQuery) (model.Money, error)

	// Reconciliation operations
	GetReconciliation(ctx context.Context, id int64) (*model.Reconciliation, error)
	GetReconciliations(ctx context.Context, accountID int64) ([]model.Reconciliation, error)
	CreateReconciliation(ctx context.Context, rec *model.Reconciliation) error
	// DeleteReconciliation nulls out the reconciliation link on any account
	// splits that reference it; the splits themselves survive.
	DeleteReconciliation(ctx context.Context, id int64) error
	// LinkAccountTransaction sets the split's reconciliation reference and
	// cleared flag together; a zero reconciliationID unlinks and unclears.
	LinkAccountTransaction(ctx context.Context, splitID, reconciliationID int64) error

	// Database management
	Migrate(ctx context.Context) error
	// Init idempotently seeds the default currency and the root account
	// and envelope in a freshly opened store.
	Init(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction is a unit of work against the backing store. It exposes the
// full Storage surface; either Commit or Rollback must be called.
type Transaction interface {
	Commit() error
	Rollback() error
	Storage
}

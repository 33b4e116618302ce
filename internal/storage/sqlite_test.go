package storage_test

import (
	"context"
	"testing"

	"github.com/budgeteer-dev/budgeteer/internal/model"
	"github.com/budgeteer-dev/budgeteer/internal/service"
	"github.com/budgeteer-dev/budgeteer/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteStorage_RejectsEmptyPath(t *testing.T) {
	_, err := storage.NewSQLiteStorage("")
	assert.Error(t, err)
}

func TestInit_Idempotent(t *testing.T) {
	ledger := newRawStore(t)
	ctx := context.Background()

	require.NoError(t, ledger.Init(ctx))
	require.NoError(t, ledger.Init(ctx))

	currencies, err := ledger.GetCurrencies(ctx)
	require.NoError(t, err)
	assert.Len(t, currencies, 1)

	accounts, err := ledger.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.Equal(t, model.RootAccountID, accounts[0].ID)
}

func TestMigrate_Idempotent(t *testing.T) {
	ledger := newRawStore(t)

	require.NoError(t, ledger.Migrate(context.Background()))
}

func newRawStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBeginTx_CommitPersists(t *testing.T) {
	ledger := newRawStore(t)
	ctx := context.Background()
	require.NoError(t, ledger.Init(ctx))

	tx, err := ledger.BeginTx(ctx)
	require.NoError(t, err)

	acct := &model.Account{Name: "checking"}
	require.NoError(t, tx.CreateAccount(ctx, acct))
	require.NoError(t, tx.Commit())

	_, err = ledger.GetAccount(ctx, acct.ID)
	assert.NoError(t, err)
}

func TestBeginTx_RollbackDiscards(t *testing.T) {
	ledger := newRawStore(t)
	ctx := context.Background()
	require.NoError(t, ledger.Init(ctx))

	tx, err := ledger.BeginTx(ctx)
	require.NoError(t, err)

	acct := &model.Account{Name: "checking"}
	require.NoError(t, tx.CreateAccount(ctx, acct))
	require.NoError(t, tx.Rollback())

	_, err = ledger.GetAccount(ctx, acct.ID)
	assert.Error(t, err)
}

func TestBeginTx_AtomicMultiEntity(t *testing.T) {
	ledger := newRawStore(t)
	ctx := context.Background()
	require.NoError(t, ledger.Init(ctx))

	// An import-style unit of work: entities and transactions land
	// together or not at all.
	tx, err := ledger.BeginTx(ctx)
	require.NoError(t, err)

	bank := &model.Account{Name: "bank"}
	require.NoError(t, tx.CreateAccount(ctx, bank))
	food := &model.Envelope{Name: "food"}
	require.NoError(t, tx.CreateEnvelope(ctx, food))
	require.NoError(t, tx.CreateTransaction(ctx, &model.Transaction{
		Date:  day(2018, 9, 1),
		Payee: "grocer",
		AccountSplits: []model.AccountTransaction{
			{AccountID: bank.ID, Amount: model.NewMoney(-127500, "USD")},
		},
		EnvelopeSplits: []model.EnvelopeTransaction{
			{EnvelopeID: food.ID, Amount: model.NewMoney(-127500, "USD")},
		},
	}))
	require.NoError(t, tx.Commit())

	bal, err := ledger.GetBalance(ctx, service.BalanceQuery{AsOf: day(2018, 9, 30)})
	require.NoError(t, err)
	assert.True(t, usd("-12.75").Equal(bal), "got %s", bal)
}

var _ service.Storage = (*storage.SQLiteStorage)(nil)

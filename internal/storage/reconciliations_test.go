package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/budgeteer-dev/budgeteer/internal/common"
	"github.com/budgeteer-dev/budgeteer/internal/model"
	"github.com/budgeteer-dev/budgeteer/internal/service"
	"github.com/budgeteer-dev/budgeteer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReconciliation(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	s := ledger.SeedReferenceScenario()
	ctx := context.Background()

	rec := &model.Reconciliation{
		AccountID:        s.Bank.ID,
		BeginningDate:    day(2018, 8, 1),
		BeginningBalance: usd("0"),
		EndingDate:       day(2018, 8, 31),
		EndingBalance:    usd("100"),
	}
	require.NoError(t, ledger.Storage.CreateReconciliation(ctx, rec))
	require.NotZero(t, rec.ID)

	got, err := ledger.Storage.GetReconciliation(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Bank.ID, got.AccountID)
	assert.True(t, usd("100").Equal(got.EndingBalance))
	assert.True(t, got.BeginningDate.Equal(day(2018, 8, 1)))
}

func TestCreateReconciliation_NormalizesDates(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	s := ledger.SeedReferenceScenario()
	ctx := context.Background()

	rec := &model.Reconciliation{
		AccountID:        s.Bank.ID,
		BeginningDate:    time.Date(2018, 8, 1, 14, 30, 5, 0, time.UTC),
		BeginningBalance: usd("0"),
		EndingDate:       time.Date(2018, 8, 31, 9, 15, 0, 0, time.UTC),
		EndingBalance:    usd("100"),
	}
	require.NoError(t, ledger.Storage.CreateReconciliation(ctx, rec))

	// The caller's struct reflects what was persisted: day precision.
	assert.True(t, rec.BeginningDate.Equal(day(2018, 8, 1)))
	assert.True(t, rec.EndingDate.Equal(day(2018, 8, 31)))

	got, err := ledger.Storage.GetReconciliation(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.BeginningDate.Equal(rec.BeginningDate))
	assert.True(t, got.EndingDate.Equal(rec.EndingDate))
}

func TestCreateReconciliation_RejectsForeignCurrencyBalances(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	s := ledger.SeedReferenceScenario()

	rec := &model.Reconciliation{
		AccountID:        s.Bank.ID,
		BeginningDate:    day(2018, 8, 1),
		BeginningBalance: model.NewMoney(0, "UAH"),
		EndingDate:       day(2018, 8, 31),
		EndingBalance:    model.NewMoney(1000000, "UAH"),
	}
	var verr *model.ValidationError
	err := ledger.Storage.CreateReconciliation(context.Background(), rec)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, model.ReasonCurrencyConversion, verr.Reason)
}

func TestGetReconciliations_ByAccount(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	s := ledger.SeedReferenceScenario()
	ctx := context.Background()

	for _, rec := range []*model.Reconciliation{
		{AccountID: s.Bank.ID, BeginningDate: day(2018, 8, 1), EndingDate: day(2018, 8, 31),
			BeginningBalance: usd("0"), EndingBalance: usd("100")},
		{AccountID: s.Bank.ID, BeginningDate: day(2018, 9, 1), EndingDate: day(2018, 9, 30),
			BeginningBalance: usd("100"), EndingBalance: usd("49.03")},
		{AccountID: s.Credit.ID, BeginningDate: day(2018, 9, 1), EndingDate: day(2018, 9, 30),
			BeginningBalance: usd("0"), EndingBalance: usd("-0.75")},
	} {
		require.NoError(t, ledger.Storage.CreateReconciliation(ctx, rec))
	}

	recs, err := ledger.Storage.GetReconciliations(ctx, s.Bank.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.True(t, recs[0].BeginningDate.Before(recs[1].BeginningDate))

	recs, err = ledger.Storage.GetReconciliations(ctx, s.Credit.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestLinkAccountTransaction_SetsClearedWithLink(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	s := ledger.SeedReferenceScenario()
	ctx := context.Background()

	rec := &model.Reconciliation{
		AccountID:        s.Bank.ID,
		BeginningDate:    day(2018, 9, 1),
		BeginningBalance: usd("100"),
		EndingDate:       day(2018, 9, 30),
		EndingBalance:    usd("49.03"),
	}
	require.NoError(t, ledger.Storage.CreateReconciliation(ctx, rec))

	// The electric bill split starts unlinked and uncleared.
	txns, err := ledger.Storage.GetTransactions(ctx, day(2018, 9, 2), day(2018, 9, 2))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	split := txns[0].AccountSplits[0]
	require.False(t, split.Cleared)
	require.Nil(t, split.ReconciliationID)

	require.NoError(t, ledger.Storage.LinkAccountTransaction(ctx, split.ID, rec.ID))

	txns, err = ledger.Storage.GetTransactions(ctx, day(2018, 9, 2), day(2018, 9, 2))
	require.NoError(t, err)
	linked := txns[0].AccountSplits[0]
	assert.True(t, linked.Cleared)
	require.NotNil(t, linked.ReconciliationID)
	assert.Equal(t, rec.ID, *linked.ReconciliationID)

	// Linking moves the cleared balance.
	bal, err := ledger.Storage.GetBalance(ctx, service.BalanceQuery{
		AsOf: day(2018, 9, 30), AccountID: s.Bank.ID, Cleared: boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, usd("61.03").Equal(bal), "got %s", bal)
}

func TestLinkAccountTransaction_ZeroUnlinksAndUnclears(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	s := ledger.SeedReferenceScenario()
	ctx := context.Background()

	// The paycheck split is cleared from the start.
	txns, err := ledger.Storage.GetTransactions(ctx, day(2018, 8, 31), day(2018, 8, 31))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	split := txns[0].AccountSplits[0]
	require.True(t, split.Cleared)

	require.NoError(t, ledger.Storage.LinkAccountTransaction(ctx, split.ID, 0))

	txns, err = ledger.Storage.GetTransactions(ctx, day(2018, 8, 31), day(2018, 8, 31))
	require.NoError(t, err)
	unlinked := txns[0].AccountSplits[0]
	assert.False(t, unlinked.Cleared)
	assert.Nil(t, unlinked.ReconciliationID)

	bal, err := ledger.Storage.GetBalance(ctx, service.BalanceQuery{
		AsOf: day(2018, 9, 30), AccountID: s.Bank.ID, Cleared: boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, usd("0").Equal(bal), "got %s", bal)
}

func TestLinkAccountTransaction_UnknownSplit(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	s := ledger.SeedReferenceScenario()
	ctx := context.Background()

	rec := &model.Reconciliation{
		AccountID:        s.Bank.ID,
		BeginningDate:    day(2018, 9, 1),
		BeginningBalance: usd("100"),
		EndingDate:       day(2018, 9, 30),
		EndingBalance:    usd("49.03"),
	}
	require.NoError(t, ledger.Storage.CreateReconciliation(ctx, rec))

	err := ledger.Storage.LinkAccountTransaction(ctx, 999, rec.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteReconciliation_UnlinksSplits(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	s := ledger.SeedReferenceScenario()
	ctx := context.Background()

	rec := &model.Reconciliation{
		AccountID:        s.Bank.ID,
		BeginningDate:    day(2018, 9, 1),
		BeginningBalance: usd("100"),
		EndingDate:       day(2018, 9, 30),
		EndingBalance:    usd("49.03"),
	}
	require.NoError(t, ledger.Storage.CreateReconciliation(ctx, rec))

	txns, err := ledger.Storage.GetTransactions(ctx, day(2018, 9, 2), day(2018, 9, 2))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	splitID := txns[0].AccountSplits[0].ID
	require.NoError(t, ledger.Storage.LinkAccountTransaction(ctx, splitID, rec.ID))

	require.NoError(t, ledger.Storage.DeleteReconciliation(ctx, rec.ID))

	_, err = ledger.Storage.GetReconciliation(ctx, rec.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// The split survives with its link nulled; cleared status is kept.
	txns, err = ledger.Storage.GetTransactions(ctx, day(2018, 9, 2), day(2018, 9, 2))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Nil(t, txns[0].AccountSplits[0].ReconciliationID)
	assert.True(t, txns[0].AccountSplits[0].Cleared)
}

package storage_test

import (
	"context"
	"testing"

	"github.com/budgeteer-dev/budgeteer/internal/common"
	"github.com/budgeteer-dev/budgeteer/internal/model"
	"github.com/budgeteer-dev/budgeteer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccount_DefaultsToRootAndUSD(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	ctx := context.Background()

	acct := ledger.MustCreateAccount("checking", 0)
	require.NotZero(t, acct.ID)

	got, err := ledger.Storage.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "checking", got.Name)
	assert.Equal(t, model.RootAccountID, got.ParentID)
	assert.Equal(t, model.DefaultCurrencyID, got.CurrencyID)
	assert.False(t, got.Archived)
}

func TestGetRootAccount(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)

	root, err := ledger.Storage.GetRootAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RootAccountID, root.ID)
	assert.True(t, root.IsRoot())
	assert.Zero(t, root.ParentID)
}

func TestGetAccount_NotFound(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)

	_, err := ledger.Storage.GetAccount(context.Background(), 999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateAccount(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	ctx := context.Background()

	parent := ledger.MustCreateAccount("assets", 0)
	acct := ledger.MustCreateAccount("checking", 0)

	acct.Name = "primary checking"
	acct.ParentID = parent.ID
	acct.Archived = true
	require.NoError(t, ledger.Storage.UpdateAccount(ctx, acct))

	got, err := ledger.Storage.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "primary checking", got.Name)
	assert.Equal(t, parent.ID, got.ParentID)
	assert.True(t, got.Archived)
}

func TestUpdateAccount_RejectsCycle(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	ctx := context.Background()

	parent := ledger.MustCreateAccount("assets", 0)
	child := ledger.MustCreateAccount("checking", 0)
	child.ParentID = parent.ID
	require.NoError(t, ledger.Storage.UpdateAccount(ctx, child))

	// A node can never be its own parent.
	parent.ParentID = parent.ID
	err := ledger.Storage.UpdateAccount(ctx, parent)
	assert.ErrorIs(t, err, common.ErrConstraintViolation)

	// Nor can it move under one of its descendants.
	parent.ParentID = child.ID
	err = ledger.Storage.UpdateAccount(ctx, parent)
	assert.ErrorIs(t, err, common.ErrConstraintViolation)

	// The tree stayed intact: the subtree still walks and deletes.
	got, err := ledger.Storage.GetAccount(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RootAccountID, got.ParentID)
	require.NoError(t, ledger.Storage.DeleteAccount(ctx, parent.ID))
}

func TestGetLeafAccounts(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	ctx := context.Background()

	assets := ledger.MustCreateAccount("assets", 0)
	checking := ledger.MustCreateAccount("checking", 0)
	checking.ParentID = assets.ID
	require.NoError(t, ledger.Storage.UpdateAccount(ctx, checking))
	savings := ledger.MustCreateAccount("savings", 0)
	savings.ParentID = assets.ID
	require.NoError(t, ledger.Storage.UpdateAccount(ctx, savings))

	leaves, err := ledger.Storage.GetLeafAccounts(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(leaves))
	for _, a := range leaves {
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{"checking", "savings"}, names)
}

func TestDeleteAccount_CascadesToSubtree(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	ctx := context.Background()

	assets := ledger.MustCreateAccount("assets", 0)
	checking := ledger.MustCreateAccount("checking", 0)
	checking.ParentID = assets.ID
	require.NoError(t, ledger.Storage.UpdateAccount(ctx, checking))
	other := ledger.MustCreateAccount("unrelated", 0)

	require.NoError(t, ledger.Storage.DeleteAccount(ctx, assets.ID))

	_, err := ledger.Storage.GetAccount(ctx, assets.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = ledger.Storage.GetAccount(ctx, checking.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Siblings outside the subtree survive.
	_, err = ledger.Storage.GetAccount(ctx, other.ID)
	assert.NoError(t, err)
}

func TestDeleteAccount_RestrictedByTransactions(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	s := ledger.SeedReferenceScenario()
	ctx := context.Background()

	err := ledger.Storage.DeleteAccount(ctx, s.Bank.ID)
	assert.ErrorIs(t, err, common.ErrConstraintViolation)

	// The restriction applies anywhere in the subtree, so deleting an
	// ancestor of a referenced account fails too.
	parent := ledger.MustCreateAccount("cards", 0)
	s.Credit.ParentID = parent.ID
	require.NoError(t, ledger.Storage.UpdateAccount(ctx, s.Credit))

	err = ledger.Storage.DeleteAccount(ctx, parent.ID)
	assert.ErrorIs(t, err, common.ErrConstraintViolation)

	// Nothing was deleted by the failed attempts.
	_, err = ledger.Storage.GetAccount(ctx, s.Credit.ID)
	assert.NoError(t, err)
}

func TestDeleteAccount_RefusesRoot(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)

	err := ledger.Storage.DeleteAccount(context.Background(), model.RootAccountID)
	assert.ErrorIs(t, err, common.ErrRootNode)
}

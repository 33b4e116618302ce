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

func TestCreateEnvelope_DefaultsToRootAndUSD(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	ctx := context.Background()

	env := ledger.MustCreateEnvelope("groceries", 0)
	require.NotZero(t, env.ID)

	got, err := ledger.Storage.GetEnvelope(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, "groceries", got.Name)
	assert.Equal(t, model.RootEnvelopeID, got.ParentID)
	assert.Equal(t, model.DefaultCurrencyID, got.CurrencyID)
}

func TestGetRootEnvelope(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)

	root, err := ledger.Storage.GetRootEnvelope(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RootEnvelopeID, root.ID)
	assert.True(t, root.IsRoot())
}

func TestGetLeafEnvelopes(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	ctx := context.Background()

	monthly := ledger.MustCreateEnvelope("monthly", 0)
	rent := ledger.MustCreateEnvelope("rent", 0)
	rent.ParentID = monthly.ID
	require.NoError(t, ledger.Storage.UpdateEnvelope(ctx, rent))
	ledger.MustCreateEnvelope("fun money", 0)

	leaves, err := ledger.Storage.GetLeafEnvelopes(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(leaves))
	for _, e := range leaves {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"rent", "fun money"}, names)
}

func TestUpdateEnvelope_RejectsCycle(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	ctx := context.Background()

	monthly := ledger.MustCreateEnvelope("monthly", 0)
	rent := ledger.MustCreateEnvelope("rent", 0)
	rent.ParentID = monthly.ID
	require.NoError(t, ledger.Storage.UpdateEnvelope(ctx, rent))

	monthly.ParentID = monthly.ID
	err := ledger.Storage.UpdateEnvelope(ctx, monthly)
	assert.ErrorIs(t, err, common.ErrConstraintViolation)

	monthly.ParentID = rent.ID
	err = ledger.Storage.UpdateEnvelope(ctx, monthly)
	assert.ErrorIs(t, err, common.ErrConstraintViolation)

	got, err := ledger.Storage.GetEnvelope(ctx, monthly.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RootEnvelopeID, got.ParentID)
	require.NoError(t, ledger.Storage.DeleteEnvelope(ctx, monthly.ID))
}

func TestDeleteEnvelope_CascadesToSubtree(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	ctx := context.Background()

	monthly := ledger.MustCreateEnvelope("monthly", 0)
	rent := ledger.MustCreateEnvelope("rent", 0)
	rent.ParentID = monthly.ID
	require.NoError(t, ledger.Storage.UpdateEnvelope(ctx, rent))

	require.NoError(t, ledger.Storage.DeleteEnvelope(ctx, monthly.ID))

	_, err := ledger.Storage.GetEnvelope(ctx, monthly.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = ledger.Storage.GetEnvelope(ctx, rent.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteEnvelope_RestrictedByTransactions(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)
	s := ledger.SeedReferenceScenario()
	ctx := context.Background()

	err := ledger.Storage.DeleteEnvelope(ctx, s.Food.ID)
	assert.ErrorIs(t, err, common.ErrConstraintViolation)

	_, err = ledger.Storage.GetEnvelope(ctx, s.Food.ID)
	assert.NoError(t, err)
}

func TestDeleteEnvelope_RefusesRoot(t *testing.T) {
	ledger := testutil.SetupTestLedger(t)

	err := ledger.Storage.DeleteEnvelope(context.Background(), model.RootEnvelopeID)
	assert.ErrorIs(t, err, common.ErrRootNode)
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acctSplit(accountID int64, amount, currency string) AccountTransaction {
	m, err := ParseMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return AccountTransaction{AccountID: accountID, Amount: m}
}

func envSplit(envelopeID int64, amount, currency string) EnvelopeTransaction {
	m, err := ParseMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return EnvelopeTransaction{EnvelopeID: envelopeID, Amount: m}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		txn        *Transaction
		name       string
		wantReason ValidationReason
	}{
		{
			name:       "no splits",
			txn:        &Transaction{},
			wantReason: ReasonNoSplits,
		},
		{
			name: "multiple splits on both sides",
			txn: &Transaction{
				AccountSplits:  []AccountTransaction{acctSplit(2, "10", "USD"), acctSplit(3, "10", "USD")},
				EnvelopeSplits: []EnvelopeTransaction{envSplit(2, "10", "USD"), envSplit(3, "10", "USD")},
			},
			wantReason: ReasonMultipleSplits,
		},
		{
			name: "mixed account currencies",
			txn: &Transaction{
				AccountSplits: []AccountTransaction{acctSplit(2, "10", "USD"), acctSplit(3, "-10", "UAH")},
			},
			wantReason: ReasonCurrencyConversion,
		},
		{
			name: "mixed envelope currencies",
			txn: &Transaction{
				EnvelopeSplits: []EnvelopeTransaction{envSplit(2, "10", "USD"), envSplit(3, "-10", "UAH")},
			},
			wantReason: ReasonCurrencyConversion,
		},
		{
			name: "envelope currency differs from account currency",
			txn: &Transaction{
				AccountSplits:  []AccountTransaction{acctSplit(2, "10", "USD")},
				EnvelopeSplits: []EnvelopeTransaction{envSplit(2, "10", "UAH")},
			},
			wantReason: ReasonCurrencyConversion,
		},
		{
			name: "sum not zero",
			txn: &Transaction{
				AccountSplits:  []AccountTransaction{acctSplit(2, "100", "USD")},
				EnvelopeSplits: []EnvelopeTransaction{envSplit(2, "99", "USD")},
			},
			wantReason: ReasonUnbalanced,
		},
		{
			name: "cross-currency failure is reported even when amounts sum to zero",
			txn: &Transaction{
				AccountSplits: []AccountTransaction{acctSplit(2, "10", "USD"), acctSplit(3, "-10", "UAH")},
			},
			wantReason: ReasonCurrencyConversion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.txn)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantReason, verr.Reason)
		})
	}
}

func TestValidate_Valid(t *testing.T) {
	tests := []struct {
		txn  *Transaction
		name string
	}{
		{
			name: "single account and envelope split",
			txn: &Transaction{
				AccountSplits:  []AccountTransaction{acctSplit(2, "100", "USD")},
				EnvelopeSplits: []EnvelopeTransaction{envSplit(2, "100", "USD")},
			},
		},
		{
			name: "one account split against many envelope splits",
			txn: &Transaction{
				AccountSplits: []AccountTransaction{acctSplit(2, "100", "USD")},
				EnvelopeSplits: []EnvelopeTransaction{
					envSplit(2, "60", "USD"),
					envSplit(3, "40", "USD"),
				},
			},
		},
		{
			name: "account-only transfer",
			txn: &Transaction{
				AccountSplits: []AccountTransaction{acctSplit(2, "-12", "USD"), acctSplit(3, "12", "USD")},
			},
		},
		{
			name: "envelope-only reallocation",
			txn: &Transaction{
				EnvelopeSplits: []EnvelopeTransaction{envSplit(2, "-25", "USD"), envSplit(3, "25", "USD")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, Validate(tt.txn))
		})
	}
}

func TestTransaction_Copy(t *testing.T) {
	orig := &Transaction{
		ID:    7,
		Payee: "grocer",
		AccountSplits: []AccountTransaction{
			{ID: 11, TransactionID: 7, AccountID: 3, Amount: NewMoney(-127500, "USD"), Cleared: true},
		},
		EnvelopeSplits: []EnvelopeTransaction{
			{ID: 12, TransactionID: 7, EnvelopeID: 2, Amount: NewMoney(-127500, "USD"), Memo: "weekly"},
		},
	}

	c := orig.Copy()
	assert.Zero(t, c.ID)
	require.Len(t, c.AccountSplits, 1)
	require.Len(t, c.EnvelopeSplits, 1)
	assert.Zero(t, c.AccountSplits[0].ID)
	assert.Zero(t, c.AccountSplits[0].TransactionID)
	assert.True(t, c.AccountSplits[0].Cleared)
	assert.Equal(t, orig.AccountSplits[0].Amount, c.AccountSplits[0].Amount)
	assert.Equal(t, "weekly", c.EnvelopeSplits[0].Memo)

	// Mutating the copy must not touch the original.
	c.AccountSplits[0].Memo = "changed"
	assert.Empty(t, orig.AccountSplits[0].Memo)
}

package model

import "time"

// Transaction is a double-entry transaction grouping one or more account
// splits and/or envelope splits. A valid transaction is balanced: the
// account split sum minus the envelope split sum equals zero.
type Transaction struct {
	Date           time.Time
	Payee          string
	AccountSplits  []AccountTransaction
	EnvelopeSplits []EnvelopeTransaction
	ID             int64
}

// AccountTransaction is one leg of a transaction against a single account.
type AccountTransaction struct {
	Amount           Money
	Memo             string
	ReconciliationID *int64
	ID               int64
	TransactionID    int64
	AccountID        int64
	Cleared          bool
}

// EnvelopeTransaction is one leg of a transaction against a single envelope.
// Envelopes have no clearing concept, so there is no cleared flag.
type EnvelopeTransaction struct {
	Amount        Money
	Memo          string
	ID            int64
	TransactionID int64
	EnvelopeID    int64
}

// Copy returns a detached copy of the transaction with all identifiers
// cleared, suitable for a copy-then-replace edit or re-entry of a similar
// transaction.
func (t *Transaction) Copy() *Transaction {
	c := &Transaction{Date: t.Date, Payee: t.Payee}
	for _, split := range t.AccountSplits {
		c.AccountSplits = append(c.AccountSplits, AccountTransaction{
			AccountID: split.AccountID,
			Amount:    split.Amount,
			Memo:      split.Memo,
			Cleared:   split.Cleared,
		})
	}
	for _, split := range t.EnvelopeSplits {
		c.EnvelopeSplits = append(c.EnvelopeSplits, EnvelopeTransaction{
			EnvelopeID: split.EnvelopeID,
			Amount:     split.Amount,
			Memo:       split.Memo,
		})
	}
	return c
}

// Day normalizes a timestamp to midnight UTC. Transactions carry day
// precision; normalizing before persistence keeps date comparisons exact.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

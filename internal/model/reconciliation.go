package model

import "time"

// Reconciliation records a statement period against an account: the
// statement's beginning and ending balances and dates. It is a
// user-asserted checkpoint; the core never verifies it against actual
// split sums. Account splits confirmed against the statement link to it
// through their ReconciliationID.
type Reconciliation struct {
	BeginningDate    time.Time
	EndingDate       time.Time
	BeginningBalance Money
	EndingBalance    Money
	ID               int64
	AccountID        int64
}

package model

// RootAccountID is the identifier of the well-known root account.
const RootAccountID int64 = 1

// Account is cash on hand or a real-world bank, credit card, or loan
// account. Accounts form a single tree rooted at RootAccountID; every
// non-root account has exactly one parent.
type Account struct {
	Name       string
	ExternalID string
	ID         int64
	CurrencyID int64
	ParentID   int64
	Archived   bool
}

// IsRoot reports whether this is the root of the account tree.
func (a Account) IsRoot() bool { return a.ID == RootAccountID }

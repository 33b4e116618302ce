package model

const (
	// DefaultCurrencyID is the identifier of the system default currency.
	// It always exists and cannot be deleted.
	DefaultCurrencyID int64 = 1
	// DefaultCurrencyCode is the code of the system default currency.
	DefaultCurrencyCode = "USD"
)

// Currency is a monetary currency referenced by accounts and envelopes.
type Currency struct {
	Code       string
	ExternalID string
	ID         int64
}

// IsDefault reports whether this is the system default currency.
func (c Currency) IsDefault() bool { return c.ID == DefaultCurrencyID }

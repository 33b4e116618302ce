package model

// RootEnvelopeID is the identifier of the well-known root envelope.
const RootEnvelopeID int64 = 1

// Envelope is a designated portion of available funds, independent of any
// real account balance. Envelopes form their own tree, parallel to but
// never merged with the account tree.
type Envelope struct {
	Name       string
	ExternalID string
	ID         int64
	CurrencyID int64
	ParentID   int64
	Archived   bool
}

// IsRoot reports whether this is the root of the envelope tree.
func (e Envelope) IsRoot() bool { return e.ID == RootEnvelopeID }

// Package model defines the core ledger entities: exact monetary values,
// account and envelope hierarchies, double-entry transactions, and
// reconciliation records.
package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places amounts are stored with.
// All arithmetic happens on int64 values in 1/10000 of a unit.
const MoneyScale = 4

// ErrCurrencyMismatch indicates arithmetic across two different currencies.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money is an exact fixed-point monetary amount bound to a currency code.
// The zero value is 0.0000 with an empty currency code; use Zero to get a
// zero amount bound to a real currency.
type Money struct {
	currency string
	amount   int64
}

// NewMoney creates a Money from an amount already scaled to 1/10000 units.
func NewMoney(scaled int64, currency string) Money {
	return Money{amount: scaled, currency: currency}
}

// Zero returns a zero amount bound to the given currency.
func Zero(currency string) Money {
	return Money{currency: currency}
}

// MoneyFromDecimal converts a decimal amount to the fixed-point scale using
// banker's rounding. Round-half-even avoids the systematic bias that plain
// truncation would introduce on repeated imports.
func MoneyFromDecimal(d decimal.Decimal, currency string) Money {
	scaled := d.Shift(MoneyScale).RoundBank(0).IntPart()
	return Money{amount: scaled, currency: currency}
}

// ParseMoney parses a decimal string such as "-12.75" into a Money.
func ParseMoney(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return MoneyFromDecimal(d, currency), nil
}

// ScaledAmount returns the raw amount in 1/10000 units.
func (m Money) ScaledAmount() int64 { return m.amount }

// Currency returns the currency code the amount is bound to.
func (m Money) Currency() string { return m.currency }

// Decimal returns the exact decimal value of the amount.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.amount, -MoneyScale)
}

// Add returns m + other, failing if the currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// Sub returns m - other, failing if the currencies differ.
func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount - other.amount, currency: m.currency}, nil
}

// Neg returns the negated amount in the same currency.
func (m Money) Neg() Money {
	return Money{amount: -m.amount, currency: m.currency}
}

// Cmp compares two amounts, returning -1, 0, or 1. Currencies must match;
// comparing across currencies is an error.
func (m Money) Cmp(other Money) (int, error) {
	if m.currency != other.currency {
		return 0, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	switch {
	case m.amount < other.amount:
		return -1, nil
	case m.amount > other.amount:
		return 1, nil
	}
	return 0, nil
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.amount == 0 }

// Equal reports whether both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}

// String formats the amount for logs and errors. Display formatting for
// users is the caller's concern, not the model's.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Decimal().StringFixed(MoneyScale), m.currency)
}

package model

// ValidationReason identifies which double-entry invariant a transaction
// violates.
type ValidationReason string

// Validation failure reasons, in the order they are checked.
const (
	ReasonNoSplits           ValidationReason = "no_splits"
	ReasonMultipleSplits     ValidationReason = "multiple_splits_both_sides"
	ReasonCurrencyConversion ValidationReason = "currency_conversion"
	ReasonUnbalanced         ValidationReason = "unbalanced"
)

// ValidationError describes why a transaction is not a valid double-entry
// transaction. It is an expected, user-correctable condition.
type ValidationError struct {
	Message string
	Reason  ValidationReason
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(reason ValidationReason, message string) *ValidationError {
	return &ValidationError{Reason: reason, Message: message}
}

// Validate verifies that the given transaction is a valid double-entry
// transaction. Rules are checked in order and the first failure wins:
//
//  1. at least one split must exist
//  2. only one side may carry multiple splits
//  3. every split must share the transaction's currency (taken from the
//     first account split, or the first envelope split if there are no
//     account splits)
//  4. the account split sum minus the envelope split sum must be zero
//
// Validate is pure: it neither mutates nor persists anything. Callers must
// invoke it before committing a create or update and abort on failure.
// Split amounts are bound to their entity's currency at persistence time,
// so the amount currencies checked here are the entity currencies.
func Validate(t *Transaction) error {
	numAcct := len(t.AccountSplits)
	numEnv := len(t.EnvelopeSplits)

	if numAcct == 0 && numEnv == 0 {
		return invalid(ReasonNoSplits, "no account or envelope splits defined")
	}
	if numAcct > 1 && numEnv > 1 {
		return invalid(ReasonMultipleSplits, "multiple account and multiple envelope splits defined")
	}

	var currency string
	if numAcct > 0 {
		currency = t.AccountSplits[0].Amount.Currency()
	} else {
		currency = t.EnvelopeSplits[0].Amount.Currency()
	}

	acctTotal := Zero(currency)
	envTotal := Zero(currency)

	for _, split := range t.AccountSplits {
		sum, err := acctTotal.Add(split.Amount)
		if err != nil {
			return invalid(ReasonCurrencyConversion, "currency conversion would be required but is not supported")
		}
		acctTotal = sum
	}
	for _, split := range t.EnvelopeSplits {
		sum, err := envTotal.Add(split.Amount)
		if err != nil {
			return invalid(ReasonCurrencyConversion, "currency conversion would be required but is not supported")
		}
		envTotal = sum
	}

	diff, err := acctTotal.Sub(envTotal)
	if err != nil || !diff.IsZero() {
		return invalid(ReasonUnbalanced, "account split sum less the envelope split sum must equal zero")
	}
	return nil
}

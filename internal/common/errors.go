// Package common provides shared utilities and types used across the
// application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// ErrNotFound indicates a lookup by identifier matched no row.
	ErrNotFound = errors.New("not found")
	// ErrConstraintViolation indicates an attempted delete of an entity
	// still referenced by a restrict-linked transaction split.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrDefaultCurrency indicates an attempt to delete the system default
	// currency.
	ErrDefaultCurrency = errors.New("default currency cannot be deleted")
	// ErrRootNode indicates an attempt to delete the root of a hierarchy.
	ErrRootNode = errors.New("root node cannot be deleted")

	// ErrInvalidConfig indicates a malformed configuration value.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user. All
// ledger failures are reported synchronously; nothing is retried.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

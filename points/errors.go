/*
errors.go - Centralized error types for the points engine

ERROR CATEGORIES:
  1. Validation errors - Malformed credit/debit input, nothing mutated
  2. Insufficient total - Debit larger than the total balance, nothing mutated
  3. Invariant violations - Ledger and balances disagree; a bug, never a
     client error

USAGE:
  changes, err := engine.Debit(500)
  var short *points.InsufficientTotalError
  if errors.As(err, &short) {
      fmt.Printf("only %d available\n", short.Available)
  }

SEE ALSO:
  - engine.go: Returns these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package points

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when a credit or debit request is malformed.
	ErrValidation = errors.New("invalid request")

	// ErrInsufficientTotal is returned when a debit exceeds the total balance.
	ErrInsufficientTotal = errors.New("insufficient points")

	// ErrEmptyLedger is returned when the oldest transaction is requested from
	// an empty ledger. During a spend this means the ledger and the balances
	// have drifted apart.
	ErrEmptyLedger = errors.New("ledger is empty")

	// ErrLedgerDesync is returned when a reduction would overdraw the oldest
	// transaction, or the invariant check fails.
	ErrLedgerDesync = errors.New("ledger and balances out of sync")

	// ErrAccountNotFound is returned for reads on an account never credited.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountClosed is returned by Account.Do once the account has been
	// reset. Accounts.Do retries on a fresh account instead.
	ErrAccountClosed = errors.New("account closed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// InsufficientTotalError provides details about a points shortage.
type InsufficientTotalError struct {
	Requested int64
	Available int64
}

func (e *InsufficientTotalError) Error() string {
	return fmt.Sprintf("insufficient points: requested %d, available %d",
		e.Requested, e.Available)
}

func (e *InsufficientTotalError) Unwrap() error {
	return ErrInsufficientTotal
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the request was rejected without mutation.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientTotal)
}

// IsInvariantViolation returns true for errors that indicate a bug.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrEmptyLedger) ||
		errors.Is(err, ErrLedgerDesync)
}

package ledger

import (
	"errors"
	"fmt"

	"conti/internal/core"
)

// Ledger errors. Every operation that returns one of these has left all
// involved balances unchanged.
var (
	// ErrAccountNotFound is returned when a referenced account does not exist
	ErrAccountNotFound = errors.New("ledger: account not found")

	// ErrTransactionNotFound is returned when a transaction id is unknown
	ErrTransactionNotFound = errors.New("ledger: transaction not found")

	// ErrBalanceRuleViolation is returned when applying would leave a
	// non-credit account negative
	ErrBalanceRuleViolation = errors.New("ledger: balance rule violation")

	// ErrAlreadyApplied is returned when the same transaction is applied twice
	ErrAlreadyApplied = errors.New("ledger: transaction already applied")

	// ErrAlreadyCancelled is returned when reversing (or applying) a
	// cancelled transaction
	ErrAlreadyCancelled = errors.New("ledger: transaction already cancelled")

	// ErrNotApplied is returned when reversing a transaction that never
	// reached the ledger
	ErrNotApplied = errors.New("ledger: transaction not applied")

	// ErrInvalidTransactionShape is the core shape error, re-exported so
	// callers can match every ledger rejection from one package.
	ErrInvalidTransactionShape = core.ErrInvalidTransactionShape
)

// ClassifyError returns a short label for metrics and logs.
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}

	switch {
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrTransactionNotFound):
		return "transaction_not_found"
	case errors.Is(err, ErrBalanceRuleViolation):
		return "balance_rule_violation"
	case errors.Is(err, ErrAlreadyApplied):
		return "already_applied"
	case errors.Is(err, ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, ErrNotApplied):
		return "not_applied"
	case errors.Is(err, ErrInvalidTransactionShape):
		return "invalid_shape"
	default:
		return "other"
	}
}

// balanceViolation reports which account would have gone negative.
func balanceViolation(a core.Account, after core.Money) error {
	return fmt.Errorf("%w: %s account %s would end at %s", ErrBalanceRuleViolation, a.Kind, a.ID, after)
}

package ledger

import (
	"context"

	"conti/internal/core"
)

// Store is the persistence boundary. Update runs fn as one all-or-nothing
// unit of work: if fn returns an error nothing it saved becomes visible.
type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
}

// Tx is the view of the store inside a unit of work.
type Tx interface {
	// LoadAccount returns ErrAccountNotFound for unknown ids.
	LoadAccount(ctx context.Context, id string) (core.Account, error)
	SaveAccount(ctx context.Context, a core.Account) error

	// LoadTransaction returns ErrTransactionNotFound for unknown ids.
	LoadTransaction(ctx context.Context, id string) (core.Transaction, error)
	SaveTransaction(ctx context.Context, t core.Transaction) error

	ListTransactions(ctx context.Context, f Filter) ([]core.Transaction, error)
}

// Filter selects transactions. Zero fields match everything; From and To
// are inclusive.
type Filter struct {
	AccountID string
	Category  string
	From      core.Date
	To        core.Date

	// AppliedOnly keeps applied, non-reversed, non-reversal entries.
	AppliedOnly bool
	// TemplatesOnly keeps active recurring templates.
	TemplatesOnly bool
}

// Match reports whether t passes the filter. Stores may use it to filter
// in memory or push the same conditions into a query.
func (f Filter) Match(t core.Transaction) bool {
	if f.AccountID != "" && t.AccountID != f.AccountID && t.CounterpartyID != f.AccountID {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if !f.From.IsZero() && t.OccurredAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.OccurredAt.After(f.To) {
		return false
	}
	if f.AppliedOnly {
		if !t.IsApplied() || t.Status == core.StatusCancelled || t.ReversalOf != "" {
			return false
		}
	}
	if f.TemplatesOnly {
		if t.Recurrence == nil || !t.Recurrence.Active {
			return false
		}
	}
	return true
}

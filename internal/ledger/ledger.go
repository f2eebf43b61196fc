// Package ledger applies and reverses transactions against account balances.
//
// Every mutation runs inside one Store.Update while holding the per-account
// locks of every account it touches, so effects against an account form a
// total order and a rejected operation leaves all balances unchanged.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"conti/internal/core"
	"conti/internal/log"
	"conti/internal/metrics"
)

// Ledger is safe for concurrent use.
type Ledger struct {
	store   Store
	locks   *lockTable
	clock   core.Clock
	metrics metrics.Collector
	logger  *log.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the clock used for AppliedAt and reversal dates.
func WithClock(c core.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:   store,
		locks:   newLockTable(),
		clock:   core.SystemClock{},
		metrics: metrics.NoOpCollector{},
		logger:  log.Default(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Leg is the effect of a transaction on one account.
type Leg struct {
	AccountID string
	Before    core.Money
	After     core.Money
	Delta     core.Money
}

// AppliedEffect describes what Apply changed.
type AppliedEffect struct {
	TransactionID string
	Legs          []Leg
}

// Leg returns the leg touching accountID.
func (e AppliedEffect) Leg(accountID string) (Leg, bool) {
	for _, leg := range e.Legs {
		if leg.AccountID == accountID {
			return leg, true
		}
	}
	return Leg{}, false
}

// Apply posts t against its account(s).
//
// A non-transfer adds Amount to the primary account. A transfer moves
// |Amount| from the primary account to the counterparty whatever the stored
// sign. Recurring templates are never applied directly; fire an instance
// instead.
func (l *Ledger) Apply(ctx context.Context, t core.Transaction) (AppliedEffect, error) {
	start := time.Now()

	effect, err := l.applyLocked(ctx, t)
	l.metrics.RecordApply(string(t.Kind), ClassifyError(err), time.Since(start))
	if err != nil {
		l.logger.WarnContext(ctx, "Transaction rejected",
			log.FieldTransactionID, t.ID,
			log.FieldTransactionKnd, string(t.Kind),
			log.FieldAccountID, t.AccountID,
			log.FieldErrorClass, ClassifyError(err),
			log.FieldError, err)
		return AppliedEffect{}, err
	}

	l.logger.InfoContext(ctx, "Transaction applied",
		log.NewFields().
			WithOperation(log.OpApply).
			WithTransaction(t.ID, string(t.Kind), t.AccountID, t.CounterpartyID, t.Amount.Cents).
			ToSlice()...)
	return effect, nil
}

func (l *Ledger) applyLocked(ctx context.Context, t core.Transaction) (AppliedEffect, error) {
	if err := t.Validate(); err != nil {
		return AppliedEffect{}, err
	}
	if t.IsTemplate() {
		return AppliedEffect{}, fmt.Errorf("%w: recurring template %s cannot be applied", ErrInvalidTransactionShape, t.ID)
	}

	unlock := l.lock(t.AccountIDs()...)
	defer unlock()

	var effect AppliedEffect
	err := l.store.Update(ctx, func(tx Tx) error {
		var err error
		_, effect, err = l.post(ctx, tx, t)
		return err
	})
	if err != nil {
		return AppliedEffect{}, err
	}
	return effect, nil
}

// Reverse cancels the applied transaction id by posting a new inverse entry
// and returns that entry. The original is never modified beyond its status
// and reversal link.
func (l *Ledger) Reverse(ctx context.Context, id string) (core.Transaction, error) {
	start := time.Now()

	inverse, kind, err := l.reverseLocked(ctx, id)
	l.metrics.RecordReverse(kind, ClassifyError(err), time.Since(start))
	if err != nil {
		l.logger.WarnContext(ctx, "Reversal rejected",
			log.FieldTransactionID, id,
			log.FieldErrorClass, ClassifyError(err),
			log.FieldError, err)
		return core.Transaction{}, err
	}

	l.logger.InfoContext(ctx, "Transaction reversed",
		log.FieldOperation, log.OpReverse,
		log.FieldTransactionID, id,
		"reversal_id", inverse.ID,
		log.FieldAmountCents, inverse.Amount.Cents)
	return inverse, nil
}

func (l *Ledger) reverseLocked(ctx context.Context, id string) (core.Transaction, string, error) {
	// Linkage never changes once stored, so the accounts read here are the
	// ones the locked reload below will see.
	var original core.Transaction
	err := l.store.View(ctx, func(tx Tx) error {
		var err error
		original, err = tx.LoadTransaction(ctx, id)
		return err
	})
	if err != nil {
		return core.Transaction{}, "", err
	}
	kind := string(original.Kind)

	unlock := l.lock(original.AccountIDs()...)
	defer unlock()

	var inverse core.Transaction
	err = l.store.Update(ctx, func(tx Tx) error {
		original, err := tx.LoadTransaction(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case original.Status == core.StatusCancelled:
			return fmt.Errorf("%w: %s", ErrAlreadyCancelled, id)
		case !original.IsApplied():
			return fmt.Errorf("%w: %s", ErrNotApplied, id)
		case original.ReversalOf != "":
			return fmt.Errorf("%w: %s is itself a reversal", ErrInvalidTransactionShape, id)
		}

		inverse, _, err = l.post(ctx, tx, l.inverseOf(original))
		if err != nil {
			return err
		}

		original.Status = core.StatusCancelled
		original.ReversedBy = inverse.ID
		return tx.SaveTransaction(ctx, original)
	})
	if err != nil {
		return core.Transaction{}, kind, err
	}
	return inverse, kind, nil
}

// inverseOf builds the entry that undoes t. For transfers the sides swap so
// the normalised rule moves the money back.
func (l *Ledger) inverseOf(t core.Transaction) core.Transaction {
	inv := core.Transaction{
		ID:             uuid.NewString(),
		Kind:           t.Kind,
		Amount:         t.Amount.Neg(),
		AccountID:      t.AccountID,
		CounterpartyID: t.CounterpartyID,
		Category:       t.Category,
		Description:    t.Description,
		OccurredAt:     core.Today(l.clock),
		Status:         core.StatusPending,
		ReversalOf:     t.ID,
		CreatedAt:      l.clock.Now().UTC(),
	}
	if t.Kind == core.Transfer {
		inv.AccountID, inv.CounterpartyID = t.CounterpartyID, t.AccountID
	}
	return inv
}

// post applies t inside an open unit of work. Callers hold the locks.
func (l *Ledger) post(ctx context.Context, tx Tx, t core.Transaction) (core.Transaction, AppliedEffect, error) {
	if t.Status == core.StatusCancelled {
		return t, AppliedEffect{}, fmt.Errorf("%w: %s", ErrAlreadyCancelled, t.ID)
	}
	if t.IsApplied() {
		return t, AppliedEffect{}, fmt.Errorf("%w: %s", ErrAlreadyApplied, t.ID)
	}

	stored, err := tx.LoadTransaction(ctx, t.ID)
	switch {
	case err == nil:
		if stored.Status == core.StatusCancelled {
			return t, AppliedEffect{}, fmt.Errorf("%w: %s", ErrAlreadyCancelled, t.ID)
		}
		if stored.IsApplied() {
			return t, AppliedEffect{}, fmt.Errorf("%w: %s", ErrAlreadyApplied, t.ID)
		}
	case !errors.Is(err, ErrTransactionNotFound):
		return t, AppliedEffect{}, fmt.Errorf("load transaction %s: %w", t.ID, err)
	}

	deltas := legDeltas(t)
	accounts := make([]core.Account, len(deltas))
	effect := AppliedEffect{TransactionID: t.ID, Legs: make([]Leg, len(deltas))}

	// Check every leg before writing any of them.
	for i, d := range deltas {
		a, err := tx.LoadAccount(ctx, d.accountID)
		if err != nil {
			return t, AppliedEffect{}, err
		}
		after, ok := a.Balance.CheckedAdd(d.delta)
		if ok && a.Credit != nil {
			_, ok = a.Credit.CreditLimit.CheckedAdd(after)
		}
		if !ok {
			return t, AppliedEffect{}, fmt.Errorf("%w: balance of account %s would overflow", ErrInvalidTransactionShape, a.ID)
		}
		if !a.Kind.IsCredit() && after.IsNegative() {
			return t, AppliedEffect{}, balanceViolation(a, after)
		}
		effect.Legs[i] = Leg{AccountID: a.ID, Before: a.Balance, After: after, Delta: d.delta}
		a.Balance = after
		accounts[i] = a
	}

	now := l.clock.Now().UTC()
	for _, a := range accounts {
		a.RecomputeCredit()
		a.UpdatedAt = now
		if err := tx.SaveAccount(ctx, a); err != nil {
			return t, AppliedEffect{}, fmt.Errorf("save account %s: %w", a.ID, err)
		}
	}

	t.AppliedAt = now
	if t.Status == "" || t.Status == core.StatusPending {
		t.Status = core.StatusPosted
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if err := tx.SaveTransaction(ctx, t); err != nil {
		return t, AppliedEffect{}, fmt.Errorf("save transaction %s: %w", t.ID, err)
	}
	return t, effect, nil
}

type legDelta struct {
	accountID string
	delta     core.Money
}

func legDeltas(t core.Transaction) []legDelta {
	if t.Kind == core.Transfer {
		m := t.Amount.Abs()
		return []legDelta{
			{accountID: t.AccountID, delta: m.Neg()},
			{accountID: t.CounterpartyID, delta: m},
		}
	}
	return []legDelta{{accountID: t.AccountID, delta: t.Amount}}
}

func (l *Ledger) lock(ids ...string) func() {
	start := time.Now()
	unlock := l.locks.Lock(ids...)
	l.metrics.RecordLockWait(len(ids), time.Since(start))
	return unlock
}

// Transactions returns applied, non-reversed entries matching f. Reversal
// entries are never included.
func (l *Ledger) Transactions(ctx context.Context, f Filter) ([]core.Transaction, error) {
	f.AppliedOnly = true
	f.TemplatesOnly = false

	var out []core.Transaction
	err := l.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListTransactions(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// Account returns the stored account.
func (l *Ledger) Account(ctx context.Context, id string) (core.Account, error) {
	var a core.Account
	err := l.store.View(ctx, func(tx Tx) error {
		var err error
		a, err = tx.LoadAccount(ctx, id)
		return err
	})
	return a, err
}

// Balance returns the current balance of account id.
func (l *Ledger) Balance(ctx context.Context, id string) (core.Money, error) {
	a, err := l.Account(ctx, id)
	if err != nil {
		return core.Money{}, err
	}
	return a.Balance, nil
}

// AccountCommand edits an account's metadata. Balances are never touched.
type AccountCommand interface {
	ApplyTo(a *core.Account, at time.Time) error
}

// UpdateAccount applies cmd to account id under the account's lock and
// returns the stored result.
func (l *Ledger) UpdateAccount(ctx context.Context, id string, cmd AccountCommand) (core.Account, error) {
	unlock := l.lock(id)
	defer unlock()

	var out core.Account
	err := l.store.Update(ctx, func(tx Tx) error {
		a, err := tx.LoadAccount(ctx, id)
		if err != nil {
			return err
		}
		if err := cmd.ApplyTo(&a, l.clock.Now().UTC()); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("update account %s: %w", id, err)
	}

	l.logger.InfoContext(ctx, "Account updated",
		log.FieldAccountID, id,
		"active", out.Active)
	return out, nil
}

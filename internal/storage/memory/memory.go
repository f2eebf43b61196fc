// Package memory is an in-process ledger.Store. Writes made inside Update
// are staged and become visible together when fn returns nil.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"conti/internal/core"
	"conti/internal/ledger"
)

type Store struct {
	mu       sync.RWMutex
	accounts map[string]core.Account
	txs      map[string]core.Transaction
	seq      map[string]int // insertion order, for stable listing
	next     int
}

func New() *Store {
	return &Store{
		accounts: make(map[string]core.Account),
		txs:      make(map[string]core.Transaction),
		seq:      make(map[string]int),
	}
}

// CreateAccount stores a validated account outside of any ledger operation.
func (s *Store) CreateAccount(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return s.Update(ctx, func(tx ledger.Tx) error {
		return tx.SaveAccount(ctx, a)
	})
}

// Update runs fn against a staged view and commits its writes atomically.
// Concurrent Updates are not serialised against each other; callers that
// read-modify-write must hold their own locks, as the ledger does.
func (s *Store) Update(ctx context.Context, fn func(ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &stagedTx{
		store:    s,
		accounts: make(map[string]core.Account),
		txs:      make(map[string]core.Transaction),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

// View runs fn against a read-only view. Saves inside fn fail.
func (s *Store) View(ctx context.Context, fn func(ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&stagedTx{store: s, readOnly: true})
}

func (s *Store) commit(tx *stagedTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, a := range tx.accounts {
		s.accounts[id] = a
	}
	for _, id := range tx.order {
		if _, ok := s.seq[id]; !ok {
			s.seq[id] = s.next
			s.next++
		}
		s.txs[id] = tx.txs[id]
	}
}

type stagedTx struct {
	store    *Store
	readOnly bool
	accounts map[string]core.Account
	txs      map[string]core.Transaction
	order    []string
}

var errReadOnly = errors.New("memory: write inside View")

func (t *stagedTx) LoadAccount(_ context.Context, id string) (core.Account, error) {
	if a, ok := t.accounts[id]; ok {
		return cloneAccount(a), nil
	}
	t.store.mu.RLock()
	a, ok := t.store.accounts[id]
	t.store.mu.RUnlock()
	if !ok {
		return core.Account{}, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, id)
	}
	return cloneAccount(a), nil
}

func (t *stagedTx) SaveAccount(_ context.Context, a core.Account) error {
	if t.readOnly {
		return errReadOnly
	}
	t.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (t *stagedTx) LoadTransaction(_ context.Context, id string) (core.Transaction, error) {
	if tr, ok := t.txs[id]; ok {
		return cloneTransaction(tr), nil
	}
	t.store.mu.RLock()
	tr, ok := t.store.txs[id]
	t.store.mu.RUnlock()
	if !ok {
		return core.Transaction{}, fmt.Errorf("%w: %s", ledger.ErrTransactionNotFound, id)
	}
	return cloneTransaction(tr), nil
}

func (t *stagedTx) SaveTransaction(_ context.Context, tr core.Transaction) error {
	if t.readOnly {
		return errReadOnly
	}
	if _, ok := t.txs[tr.ID]; !ok {
		t.order = append(t.order, tr.ID)
	}
	t.txs[tr.ID] = cloneTransaction(tr)
	return nil
}

// ListTransactions returns matches ordered by OccurredAt, then by insertion.
func (t *stagedTx) ListTransactions(_ context.Context, f ledger.Filter) ([]core.Transaction, error) {
	type entry struct {
		tr  core.Transaction
		seq int
	}

	t.store.mu.RLock()
	entries := make([]entry, 0, len(t.store.txs))
	for id, tr := range t.store.txs {
		if _, staged := t.txs[id]; staged {
			continue
		}
		entries = append(entries, entry{tr: tr, seq: t.store.seq[id]})
	}
	base := t.store.next
	t.store.mu.RUnlock()

	for i, id := range t.order {
		entries = append(entries, entry{tr: t.txs[id], seq: base + i})
	}

	out := make([]core.Transaction, 0, len(entries))
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.tr.OccurredAt.Equal(b.tr.OccurredAt) {
			return a.tr.OccurredAt.Before(b.tr.OccurredAt)
		}
		return a.seq < b.seq
	})
	for _, e := range entries {
		if f.Match(e.tr) {
			out = append(out, cloneTransaction(e.tr))
		}
	}
	return out, nil
}

func cloneAccount(a core.Account) core.Account {
	if a.Credit != nil {
		c := *a.Credit
		a.Credit = &c
	}
	return a
}

func cloneTransaction(t core.Transaction) core.Transaction {
	if t.Recurrence != nil {
		r := *t.Recurrence
		if r.DayOfWeek != nil {
			wd := *r.DayOfWeek
			r.DayOfWeek = &wd
		}
		t.Recurrence = &r
	}
	if t.Installment != nil {
		i := *t.Installment
		t.Installment = &i
	}
	return t
}

package memory

import (
	"context"
	"fmt"
	"sync"

	"conti/internal/core"
	"conti/internal/sheets"
)

var (
	_ sheets.EntryWriter = (*Writer)(nil)
	_ sheets.EntryLister = (*Writer)(nil)
)

// Writer keeps exported entries in memory. Used by tests and by the
// worker when no spreadsheet is configured.
type Writer struct {
	mu    sync.Mutex
	items []core.Transaction
	fail  error
}

func New() *Writer {
	return &Writer{}
}

// FailWith makes every following AppendEntry return err. A nil err clears it.
func (w *Writer) FailWith(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail = err
}

// AppendEntry stores the entry and returns a synthetic row reference.
func (w *Writer) AppendEntry(_ context.Context, t core.Transaction) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail != nil {
		return "", w.fail
	}
	if t.ID == "" {
		return "", fmt.Errorf("entry without transaction id")
	}
	w.items = append(w.items, t)
	return fmt.Sprintf("mem:%d", len(w.items)), nil
}

// ListEntries returns the entries that occurred in the given month, in
// append order.
func (w *Writer) ListEntries(_ context.Context, year int, month int) ([]core.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []core.Transaction
	for _, t := range w.items {
		if t.OccurredAt.Year() == year && t.OccurredAt.Month() == month {
			out = append(out, t)
		}
	}
	return out, nil
}

// Entries returns a copy of everything appended so far.
func (w *Writer) Entries() []core.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]core.Transaction(nil), w.items...)
}

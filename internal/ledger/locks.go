package ledger

import (
	"sort"
	"sync"
)

// lockTable hands out one mutex per account id. Entries are reference
// counted and dropped once nobody holds or waits on them, so the table only
// grows with the number of accounts in flight.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*accountLock)}
}

// Lock acquires every id's mutex in ascending id order and returns the
// function that releases them. Duplicate and empty ids are ignored. The fixed
// order means two transfers over the same pair in opposite directions cannot
// deadlock.
func (t *lockTable) Lock(ids ...string) (unlock func()) {
	keys := orderedKeys(ids)

	held := make([]*accountLock, 0, len(keys))
	for _, id := range keys {
		l := t.acquire(id)
		l.mu.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			t.release(keys[i], held[i])
		}
	}
}

func (t *lockTable) acquire(id string) *accountLock {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[id]
	if !ok {
		l = &accountLock{}
		t.locks[id] = l
	}
	l.refs++
	return l
}

func (t *lockTable) release(id string, l *accountLock) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(t.locks, id)
	}
}

// size returns the number of live entries.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

func orderedKeys(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

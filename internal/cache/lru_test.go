package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("2024 Ledger", 10)
	c.Set("2024 Ledger", 11)
	if got, ok := c.Get("2024 Ledger"); !ok || got != 11 {
		t.Errorf("Get() = %d, %v; want 11, true", got, ok)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}

	c.Delete("2024 Ledger")
	if _, ok := c.Get("2024 Ledger"); ok {
		t.Error("expected miss after Delete")
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // b is now the oldest
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	for _, key := range []string{"a", "c"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("expected %s to survive", key)
		}
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.Now)

	c.Set("a", 1)
	clock.Advance(30 * time.Second)
	c.Set("b", 2)

	if _, ok := c.Get("a"); !ok {
		t.Fatal("a expired too early")
	}

	clock.Advance(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to expire")
	}

	c.Set("c", 3)
	clock.Advance(2 * time.Minute)
	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired() = %d, want 2", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

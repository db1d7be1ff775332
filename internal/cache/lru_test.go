package cache

import (
	"strings"
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	now := time.Date(2020, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired too early")
	}

	c.Set("old", "x")
	now = now.Add(2 * time.Minute)
	if removed := c.CleanExpired(); removed != 2 {
		t.Fatalf("CleanExpired removed %d, want 2", removed)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected k to be expired")
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("stats = %d hits, %d misses", hits, misses)
	}
}

func TestLRUCacheDeleteFuncAndPurge(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("1:2020-8", 1)
	c.Set("1:2020-9", 2)
	c.Set("2:2020-8", 3)

	if n := c.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, "1:") }); n != 2 {
		t.Fatalf("DeleteFunc removed %d, want 2", n)
	}
	if _, ok := c.Get("2:2020-8"); !ok {
		t.Fatal("unrelated key removed")
	}

	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("size after purge = %d", c.Size())
	}
}

func TestManagerCleanNow(t *testing.T) {
	c := NewLRUCache[int](10, -time.Second)
	c.Set("a", 1)

	m := NewManager()
	m.Register("months", c)
	got := m.CleanNow()
	if got["months"] != 1 {
		t.Fatalf("CleanNow = %v", got)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

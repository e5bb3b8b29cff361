package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache returned ok")
	}

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Errorf("Get = (%q, %v), want (v, true)", got, ok)
	}
}

func TestSizeEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if c.Size() != 2 {
		t.Fatalf("Size = %d, want 2", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry was evicted")
	}
}

func TestRecentUseBlocksEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a becomes most recently used
	c.Set("c", 3)

	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewLRUCache[int](4, 10*time.Millisecond)

	c.Set("k", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry still readable")
	}
}

func TestRememberDeduplicates(t *testing.T) {
	c := NewLRUCache[struct{}](4, time.Minute)

	if c.Remember("msg-1", struct{}{}) {
		t.Error("first Remember returned seen")
	}
	if !c.Remember("msg-1", struct{}{}) {
		t.Error("second Remember returned unseen")
	}
	if c.Remember("msg-2", struct{}{}) {
		t.Error("different key returned seen")
	}
}

func TestRememberExpiredKeyIsUnseen(t *testing.T) {
	c := NewLRUCache[struct{}](4, 10*time.Millisecond)

	c.Remember("msg-1", struct{}{})
	time.Sleep(20 * time.Millisecond)

	if c.Remember("msg-1", struct{}{}) {
		t.Error("expired key still counted as seen")
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewLRUCache[int](8, 10*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 3)

	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired = %d, want 2", removed)
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
}

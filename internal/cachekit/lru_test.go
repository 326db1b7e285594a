package cachekit

import (
	"testing"
	"time"
)

func TestLRU_CapacityEviction(t *testing.T) {
	c := New[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts "a" (least recently used)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to be evicted")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("expected b=2, got %v %v", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("expected c=3, got %v %v", v, ok)
	}
}

func TestLRU_RecencyProtectsFromEviction(t *testing.T) {
	c := New[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // touch a, making b the LRU
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted, a was touched more recently")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to survive")
	}
}

func TestLRU_TTLBoundary(t *testing.T) {
	c := New[int](10, 20*time.Millisecond)
	c.Set("k", 1)

	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected hit before ttl")
	}

	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss after ttl")
	}
}

func TestLRU_DeleteMatching(t *testing.T) {
	c := New[string](10, 0)
	c.Set("model:a:1", "x")
	c.Set("model:a:2", "y")
	c.Set("model:b:1", "z")

	removed := c.DeleteMatching(func(key string, _ string) bool {
		return len(key) >= 7 && key[:7] == "model:a"
	})
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, ok := c.Get("model:b:1"); !ok {
		t.Fatalf("expected model:b:1 to survive")
	}
}

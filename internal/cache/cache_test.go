package cache

import (
	"testing"
	"time"
)

func TestCache_SetGetExpire(t *testing.T) {
	c := New(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", 42)

	v, ok := c.Get("k")
	if !ok || v.(int) != 42 {
		t.Fatalf("expected hit, got %v %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expiry")
	}
	if _, present := c.m["k"]; present {
		t.Fatalf("expired entry should be evicted on read")
	}
}

func TestCache_Delete(t *testing.T) {
	c := New(0)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")

	if _, ok := c.Get("a"); ok {
		t.Fatalf("a should be gone")
	}
	if v, ok := c.Get("b"); !ok || v.(int) != 2 {
		t.Fatalf("b should survive, got %v %v", v, ok)
	}
}

func TestAccountKey(t *testing.T) {
	if got := AccountKey(" 1234567 "); got != "bankdesk:account:1234567" {
		t.Fatalf("got %q", got)
	}
}

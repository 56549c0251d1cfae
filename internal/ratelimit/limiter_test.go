package ratelimit

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestKeyed(requests int, window time.Duration, maxKeys int) (*Keyed, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	k := NewKeyed(requests, window, maxKeys)
	k.Now = clock.now
	return k, clock
}

func TestAllowExhaustsBucket(t *testing.T) {
	k, _ := newTestKeyed(3, time.Minute, 10)
	for i := 0; i < 3; i++ {
		if !k.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if k.Allow("10.0.0.1") {
		t.Fatalf("fourth request should be rejected")
	}
	if !k.Allow("10.0.0.2") {
		t.Fatalf("other clients keep their own bucket")
	}
}

func TestAllowRefillsOverWindow(t *testing.T) {
	k, clock := newTestKeyed(2, time.Minute, 10)
	k.Allow("a")
	k.Allow("a")
	if k.Allow("a") {
		t.Fatalf("bucket should be empty")
	}
	clock.advance(30 * time.Second)
	if !k.Allow("a") {
		t.Fatalf("half a window should refill one token")
	}
}

func TestMaxKeysEvictsIdlest(t *testing.T) {
	k, clock := newTestKeyed(1, time.Minute, 2)
	k.Allow("a")
	clock.advance(time.Second)
	k.Allow("b")
	clock.advance(time.Second)
	k.Allow("c")

	if k.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", k.Len())
	}
	// "a" was evicted so it starts with a fresh bucket.
	if !k.Allow("a") {
		t.Fatalf("evicted key should get a fresh bucket")
	}
	if k.Allow("c") {
		t.Fatalf("c should still be limited")
	}
}

func TestSweepDropsIdleEntries(t *testing.T) {
	k, clock := newTestKeyed(5, time.Minute, 0)
	k.Allow("a")
	clock.advance(30 * time.Second)
	k.Allow("b")
	clock.advance(45 * time.Second)

	if n := k.Sweep(clock.now()); n != 1 {
		t.Fatalf("expected 1 swept entry, got %d", n)
	}
	if k.Len() != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", k.Len())
	}
}

func TestReset(t *testing.T) {
	k, _ := newTestKeyed(1, time.Hour, 10)
	k.Allow("a")
	if k.Allow("a") {
		t.Fatalf("expected limit")
	}
	k.Reset()
	if !k.Allow("a") {
		t.Fatalf("reset should clear buckets")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	k := NewKeyed(1, time.Millisecond, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		k.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

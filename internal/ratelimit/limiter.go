package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed hands out one token bucket per client key. Each bucket holds Requests
// tokens and refills at Requests per Window. At most MaxKeys buckets are kept;
// inserting past that evicts the bucket seen least recently.
type Keyed struct {
	Requests int
	Window   time.Duration
	MaxKeys  int
	Now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

func NewKeyed(requests int, window time.Duration, maxKeys int) *Keyed {
	return &Keyed{
		Requests: requests,
		Window:   window,
		MaxKeys:  maxKeys,
		Now:      time.Now,
		entries:  make(map[string]*entry),
	}
}

func (k *Keyed) now() time.Time {
	if k.Now != nil {
		return k.Now()
	}
	return time.Now()
}

// Allow takes a token for key and reports whether one was available.
func (k *Keyed) Allow(key string) bool {
	now := k.now()

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.entries == nil {
		k.entries = make(map[string]*entry)
	}
	e, ok := k.entries[key]
	if !ok {
		if k.MaxKeys > 0 && len(k.entries) >= k.MaxKeys {
			k.evictIdlest()
		}
		e = &entry{limiter: rate.NewLimiter(k.limit(), k.Requests)}
		k.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (k *Keyed) limit() rate.Limit {
	if k.Window <= 0 || k.Requests <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(k.Requests) / k.Window.Seconds())
}

func (k *Keyed) evictIdlest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, e := range k.entries {
		if !found || e.lastSeen.Before(oldest) {
			oldestKey, oldest, found = key, e.lastSeen, true
		}
	}
	if found {
		delete(k.entries, oldestKey)
	}
}

// Sweep drops buckets idle for at least one full window. A bucket idle that
// long has refilled completely, so dropping it changes no decision.
func (k *Keyed) Sweep(now time.Time) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	removed := 0
	for key, e := range k.entries {
		if now.Sub(e.lastSeen) >= k.Window {
			delete(k.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (k *Keyed) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			k.Sweep(k.now())
		}
	}
}

func (k *Keyed) Reset() {
	k.mu.Lock()
	k.entries = make(map[string]*entry)
	k.mu.Unlock()
}

func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

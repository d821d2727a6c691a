// Package ratelimit throttles requests per key (an API host, a client
// address) with token buckets from golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	idleTTL    = 10 * time.Minute
	sweepEvery = time.Minute
)

type bucket struct {
	*rate.Limiter
	seen time.Time
}

// KeyedRateLimiter gives each key its own token bucket. Buckets idle for
// longer than ten minutes are dropped on a later call, so no goroutine is
// needed.
type KeyedRateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// New allows rps requests per second per key, with bursts of up to burst.
// rps <= 0 disables limiting.
func New(rps float64, burst int) *KeyedRateLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &KeyedRateLimiter{
		limit:     limit,
		burst:     max(burst, 1),
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

// Allow reports whether a request for key may proceed now.
func (l *KeyedRateLimiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Wait blocks until a request for key is allowed or ctx is done.
func (l *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	return l.bucket(key).Wait(ctx)
}

// Len returns the number of tracked keys.
func (l *KeyedRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *KeyedRateLimiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= sweepEvery {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > idleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.Limiter
}

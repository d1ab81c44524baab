package service

import (
	"context"
	"sync"
	"time"
)

// AttemptLimiter is an in-memory per-key token bucket used to slow down
// credential guessing. It is safe for concurrent use.
type AttemptLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     float64 // tokens added per second
	capacity float64 // maximum tokens
	now      func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewAttemptLimiter creates a limiter that allows bursts of up to capacity
// attempts per key, refilled at perMinute attempts per minute.
func NewAttemptLimiter(perMinute, capacity int) *AttemptLimiter {
	return &AttemptLimiter{
		buckets:  make(map[string]*bucket),
		rate:     float64(perMinute) / 60,
		capacity: float64(capacity),
		now:      time.Now,
	}
}

// Allow reports whether key may make another attempt and consumes a token if so.
func (l *AttemptLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.buckets[key] = b
	}

	b.tokens = min(b.tokens+now.Sub(b.last).Seconds()*l.rate, l.capacity)
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Prune drops buckets untouched for longer than idle. Such buckets would be
// full again anyway, so forgetting them changes no decision.
func (l *AttemptLimiter) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	removed := 0
	for key, b := range l.buckets {
		if b.last.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// RunPruner prunes idle buckets every interval until ctx is done.
func (l *AttemptLimiter) RunPruner(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune(idle)
		}
	}
}

package service_test

import (
	"testing"
	"time"

	"github.com/msomdec/library-api/internal/service"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newLimiter(perMinute, capacity int) (*service.AttemptLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := service.NewAttemptLimiter(perMinute, capacity)
	l.SetClock(clock.Now)
	return l, clock
}

func TestAttemptLimiter_AllowsUpToCapacity(t *testing.T) {
	l, _ := newLimiter(60, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("attempt %d should be allowed (bucket not yet empty)", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("4th attempt should be denied (bucket empty)")
	}
}

func TestAttemptLimiter_DifferentKeysAreIndependent(t *testing.T) {
	l, _ := newLimiter(60, 1)

	if !l.Allow("ip-a") {
		t.Fatal("ip-a first attempt should be allowed")
	}
	if l.Allow("ip-a") {
		t.Fatal("ip-a second attempt should be denied")
	}
	if !l.Allow("ip-b") {
		t.Fatal("ip-b first attempt should be allowed (independent bucket)")
	}
}

func TestAttemptLimiter_Refills(t *testing.T) {
	l, clock := newLimiter(60, 1) // one token per second

	if !l.Allow("k") {
		t.Fatal("first attempt should be allowed")
	}
	if l.Allow("k") {
		t.Fatal("second attempt should be denied")
	}

	clock.Advance(time.Second)
	if !l.Allow("k") {
		t.Fatal("attempt after refill should be allowed")
	}
}

func TestAttemptLimiter_ZeroRateNeverRefills(t *testing.T) {
	l, clock := newLimiter(0, 2)

	l.Allow("k")
	l.Allow("k")
	clock.Advance(time.Hour)
	if l.Allow("k") {
		t.Fatal("third attempt should be denied (no refill)")
	}
}

func TestAttemptLimiter_Prune(t *testing.T) {
	l, clock := newLimiter(60, 1)

	l.Allow("stale")
	clock.Advance(11 * time.Minute)
	l.Allow("fresh")

	if removed := l.Prune(10 * time.Minute); removed != 1 {
		t.Fatalf("expected 1 pruned bucket, got %d", removed)
	}
}

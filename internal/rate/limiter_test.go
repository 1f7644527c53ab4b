package rate

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestLimiterBurstThenBlocks(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(Config{PerMinute: 5, Burst: 3}, clock.now)

	for i := 0; i < 3; i++ {
		if err := l.Allow("User@Example.com"); err != nil {
			t.Fatalf("attempt %d should pass: %v", i, err)
		}
	}
	if err := l.Allow(" user@example.com "); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	clock.t = clock.t.Add(12 * time.Second)
	if err := l.Allow("user@example.com"); err != nil {
		t.Fatalf("expected one token refilled: %v", err)
	}
}

func TestLimiterIdentifiersIndependent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(Config{PerMinute: 1, Burst: 1}, clock.now)

	if err := l.Allow("a@example.com"); err != nil {
		t.Fatalf("a: %v", err)
	}
	if err := l.Allow("b@example.com"); err != nil {
		t.Fatalf("b should have its own budget: %v", err)
	}
}

func TestLimiterReset(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(Config{PerMinute: 1, Burst: 1}, clock.now)

	_ = l.Allow("a@example.com")
	l.Reset("A@example.com")
	if err := l.Allow("a@example.com"); err != nil {
		t.Fatalf("expected reset budget: %v", err)
	}
}

func TestLimiterPrunesIdleBuckets(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(Config{PerMinute: 60, Burst: 2}, clock.now)

	_ = l.Allow("a")
	_ = l.Allow("b")
	clock.t = clock.t.Add(time.Minute)
	_ = l.Allow("c")
	if got := l.Len(); got != 1 {
		t.Fatalf("expected idle buckets pruned, have %d", got)
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := New(Config{}, nil)
	for i := 0; i < 100; i++ {
		if err := l.Allow("a"); err != nil {
			t.Fatalf("disabled limiter must allow: %v", err)
		}
	}
	var nilLimiter *Limiter
	if err := nilLimiter.Allow("a"); err != nil {
		t.Fatalf("nil limiter must allow: %v", err)
	}
}

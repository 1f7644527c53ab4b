package rate

import (
	"strings"
	"sync"
	"time"

	xrate "golang.org/x/time/rate"
)

// Config holds limiter tuning parameters. PerMinute <= 0 disables limiting.
type Config struct {
	PerMinute int
	Burst     int
}

type bucket struct {
	limiter  *xrate.Limiter
	lastSeen time.Time
}

// Limiter enforces per-identifier login budgets.
type Limiter struct {
	config Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// New creates a Limiter. now defaults to time.Now.
func New(cfg Config, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Limiter{
		config:  cfg,
		now:     now,
		buckets: make(map[string]*bucket),
	}
}

// Allow consumes one token for identifier, returning ErrRateLimited when
// none is available.
func (l *Limiter) Allow(identifier string) error {
	if l == nil || l.config.PerMinute <= 0 {
		return nil
	}
	key := normalize(identifier)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: xrate.NewLimiter(l.every(), l.config.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	if !b.limiter.AllowN(now, 1) {
		return ErrRateLimited
	}
	return nil
}

// Reset forgets identifier, restoring its full budget.
func (l *Limiter) Reset(identifier string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.buckets, normalize(identifier))
	l.mu.Unlock()
}

// Len returns the number of tracked identifiers.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) every() xrate.Limit {
	return xrate.Every(time.Minute / time.Duration(l.config.PerMinute))
}

func (l *Limiter) pruneLocked(now time.Time) {
	refill := time.Duration(l.config.Burst) * (time.Minute / time.Duration(l.config.PerMinute))
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= refill {
			delete(l.buckets, key)
		}
	}
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

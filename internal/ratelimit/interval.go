// Package ratelimit spaces outbound calls by a minimum interval.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the minimum spacing between price API calls.
const DefaultInterval = 40 * time.Millisecond

// IntervalLimiter guarantees that no two Wait calls return closer together
// than the configured interval. Idle time does not accrue burst credit.
type IntervalLimiter struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewIntervalLimiter creates a limiter. A non-positive interval disables limiting.
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{interval: interval}
}

// Interval returns the configured minimum spacing.
func (l *IntervalLimiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until the caller may issue a call, then records the call time.
// The lock is held while sleeping so concurrent callers are released one interval apart.
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.interval > 0 && !l.last.IsZero() {
		if wait := l.interval - time.Since(l.last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	l.last = time.Now()
	return nil
}

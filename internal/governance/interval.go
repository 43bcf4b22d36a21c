package governance

import (
	"context"
	"sync"
	"time"
)

// IntervalLimiter spaces successive acquisitions by at least a fixed
// minimum interval. A caller arriving early blocks until its reserved slot
// rather than being dropped or erroring.
//
// The "time of the next free slot" is the only piece of shared mutable
// state; it is guarded by the mutex and advanced under lock, so concurrent
// callers each receive a distinct slot at least one interval apart.
type IntervalLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
	now      func() time.Time // injectable for tests
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewIntervalLimiter creates a limiter enforcing the given minimum spacing.
// A non-positive interval disables waiting.
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Wait blocks until the caller's reserved slot arrives or the context is
// cancelled. The slot is reserved before sleeping, so waiting callers do
// not hold the lock.
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := l.now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	l.next = slot.Add(l.interval)
	l.mu.Unlock()

	if wait := slot.Sub(now); wait > 0 {
		return l.sleep(ctx, wait)
	}
	return ctx.Err()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package ratelimit enforces a minimum interval between external calls.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter gates calls so that consecutive calls start at least Interval
// apart. The timestamp is recorded when a call is admitted, before it runs.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// New returns a limiter admitting one call per interval.
func New(interval time.Duration) *Limiter {
	return &Limiter{interval: interval, now: time.Now}
}

// SetClock replaces the time source.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	l.now = now
}

// Interval is the configured minimum spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Remaining is how long until the next call may start; zero when a call is
// allowed now.
func (l *Limiter) Remaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remainingLocked()
}

func (l *Limiter) remainingLocked() time.Duration {
	if l.last.IsZero() {
		return 0
	}
	wait := l.interval - l.now().Sub(l.last)
	if wait < 0 {
		return 0
	}
	return wait
}

// Allow reports whether a call may start now without recording one.
func (l *Limiter) Allow() bool {
	return l.Remaining() == 0
}

// Record marks a call as started now.
func (l *Limiter) Record() {
	l.mu.Lock()
	l.last = l.now()
	l.mu.Unlock()
}

// Acquire blocks until a call may start, records it and returns. It returns
// ctx.Err() if the context ends first.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		wait := l.remainingLocked()
		if wait == 0 {
			l.last = l.now()
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

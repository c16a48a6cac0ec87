// Package ratelimiter throttles remote operations issued by a session.
package ratelimiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by every operation of a session.
//
// A nil *Limiter or one configured with zero operations per second never
// throttles. All methods are safe for concurrent use.
type Limiter struct {
	mu      sync.RWMutex
	limiter *rate.Limiter
}

// New creates a Limiter allowing opsPerSecond sustained operations with
// bursts of up to burst operations.
//
// opsPerSecond = 0 disables throttling. A burst of 0 defaults to
// opsPerSecond so the bucket can hold at least one second of tokens.
func New(opsPerSecond, burst uint) *Limiter {
	l := &Limiter{}
	l.Reconfigure(opsPerSecond, burst)
	return l
}

// Reconfigure replaces the rate and burst in place. Waiters blocked in Wait
// keep the reservation they already hold.
func (l *Limiter) Reconfigure(opsPerSecond, burst uint) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if opsPerSecond == 0 {
		l.limiter = nil
		return
	}
	if burst == 0 {
		burst = opsPerSecond
	}
	if l.limiter == nil {
		l.limiter = rate.NewLimiter(rate.Limit(opsPerSecond), int(burst))
		return
	}
	l.limiter.SetLimit(rate.Limit(opsPerSecond))
	l.limiter.SetBurst(int(burst))
}

func (l *Limiter) current() *rate.Limiter {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter
}

// Enabled reports whether the limiter throttles at all.
func (l *Limiter) Enabled() bool {
	return l.current() != nil
}

// Allow consumes a token if one is available without waiting.
func (l *Limiter) Allow() bool {
	lim := l.current()
	if lim == nil {
		return true
	}
	return lim.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	lim := l.current()
	if lim == nil {
		return ctx.Err()
	}
	return lim.Wait(ctx)
}

// Limit returns the configured operations per second and burst; (0, 0)
// when throttling is disabled.
func (l *Limiter) Limit() (opsPerSecond, burst uint) {
	lim := l.current()
	if lim == nil {
		return 0, 0
	}
	return uint(lim.Limit()), uint(lim.Burst())
}

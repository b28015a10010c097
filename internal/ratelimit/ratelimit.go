// Package ratelimit implements a per-process sliding-window request counter.
// The window starts at the first request for an identifier and resets once it
// elapses. Counters live only in this process; under horizontal scaling each
// instance throttles independently. This is a best-effort guard, not a
// security boundary.
package ratelimit

import (
	"sync"
	"time"
)

// Default policy for generic API guarding. Callers with stricter needs pass
// their own limits (order creation uses 5/5min, auth endpoints 10/min).
const (
	DefaultMaxRequests = 100
	DefaultWindow      = 15 * time.Minute
)

type counter struct {
	count   int
	resetAt time.Time
}

type Limiter struct {
	mu       sync.Mutex
	counters map[string]counter

	now func() time.Time
}

func New() *Limiter {
	l := &Limiter{
		counters: make(map[string]counter),
		now:      time.Now,
	}
	go l.cleanup()
	return l
}

// Limited reports whether identifier has exhausted its budget of max requests
// within the current window. A call that is not limited counts against the
// budget; a limited call does not increment further.
func (l *Limiter) Limited(identifier string, max int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.counters[identifier]
	if !ok || now.After(c.resetAt) {
		l.counters[identifier] = counter{count: 1, resetAt: now.Add(window)}
		return false
	}
	if c.count >= max {
		return true
	}
	c.count++
	l.counters[identifier] = c
	return false
}

// cleanup drops expired counters so idle identifiers do not accumulate.
// Correctness does not depend on it: expired entries are overwritten on the
// next access anyway.
func (l *Limiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		l.mu.Lock()
		now := l.now()
		for id, c := range l.counters {
			if now.After(c.resetAt) {
				delete(l.counters, id)
			}
		}
		l.mu.Unlock()
	}
}

// Package ratelimit implements a fixed-window per-client request limiter.
package ratelimit

import (
	"sync"
	"time"
)

// window tracks one client's request count inside the current window.
type window struct {
	start time.Time
	count int
}

// Limiter allows up to limit requests per client per window. Counts reset
// when a new window starts; there is no rollover between windows.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	clients map[string]*window

	now func() time.Time // overridable for tests
}

// New creates a Limiter allowing limit requests per period per client key.
func New(limit int, period time.Duration) *Limiter {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}
	return &Limiter{
		limit:   limit,
		period:  period,
		clients: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow records a request attempt for the client and reports whether it is
// within the limit. remaining is the number of requests left in the current
// window, and retryAfter is how long until the window resets when denied.
func (l *Limiter) Allow(key string) (allowed bool, remaining int, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.period {
		l.sweepLocked(now)
		w = &window{start: now}
		l.clients[key] = w
	}

	if w.count >= l.limit {
		return false, 0, w.start.Add(l.period).Sub(now)
	}

	w.count++
	return true, l.limit - w.count, 0
}

// Remaining reports the requests left for the client without consuming one.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[key]
	if !ok || l.now().Sub(w.start) >= l.period {
		return l.limit
	}
	return l.limit - w.count
}

// sweepLocked drops expired windows so the client map stays bounded.
// Caller must hold mu.
func (l *Limiter) sweepLocked(now time.Time) {
	if len(l.clients) < 1024 {
		return
	}
	for key, w := range l.clients {
		if now.Sub(w.start) >= l.period {
			delete(l.clients, key)
		}
	}
}

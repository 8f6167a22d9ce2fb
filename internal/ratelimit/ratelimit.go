// Package ratelimit provides an in-memory sliding-window rate limiter.
//
// The limiter keeps the raw request timestamps for every caller key and
// evaluates quota against the exact trailing window, so bursts at window
// boundaries cannot exceed the configured maximum (unlike fixed-window
// counters). Entries older than the window are pruned lazily on access,
// which keeps per-key memory bounded by the quota.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "trendpress_ratelimit_decisions_total",
		Help: "Rate limiter decisions by limiter name and outcome",
	},
	[]string{"limiter", "decision"},
)

// Decision is the outcome of an admission check. Rejection is a normal
// result, not an error.
type Decision struct {
	Allowed bool

	// Remaining is the number of additional requests the key may make in the
	// current window, after this one.
	Remaining int

	// RetryAfter is how long the caller should wait before the next request
	// can be admitted. Zero when Allowed.
	RetryAfter time.Duration
}

// Limiter bounds the number of admitted calls per key within a rolling
// window. Safe for concurrent use. One instance is expected per protected
// operation so each endpoint gets its own quota.
type Limiter struct {
	name   string
	max    int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	requests map[string][]time.Time
}

// New creates a limiter admitting at most max requests per key per window.
// A non-positive max is clamped to 1. The name is only used to label
// metrics.
func New(name string, max int, window time.Duration) *Limiter {
	return NewWithClock(name, max, window, time.Now)
}

// NewWithClock creates a limiter with an injected clock for deterministic
// tests.
func NewWithClock(name string, max int, window time.Duration, now func() time.Time) *Limiter {
	if max < 1 {
		max = 1
	}
	return &Limiter{
		name:     name,
		max:      max,
		window:   window,
		now:      now,
		requests: make(map[string][]time.Time),
	}
}

// Allow checks and records a request for key in one step. When the pruned
// window holds fewer than max entries the request is admitted and its
// timestamp recorded; otherwise it is rejected with the time until the
// oldest entry leaves the window.
func (l *Limiter) Allow(key string) Decision {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	valid := prune(l.requests[key], cutoff)

	if len(valid) >= l.max {
		// Oldest entry is always first: timestamps are appended in order.
		retryAfter := l.window - now.Sub(valid[0])
		l.requests[key] = valid
		decisionsTotal.WithLabelValues(l.name, "rejected").Inc()
		return Decision{Allowed: false, RetryAfter: retryAfter}
	}

	valid = append(valid, now)
	l.requests[key] = valid
	decisionsTotal.WithLabelValues(l.name, "allowed").Inc()
	return Decision{Allowed: true, Remaining: l.max - len(valid)}
}

// Remaining reports how many requests key may still make in the current
// window without recording anything.
func (l *Limiter) Remaining(key string) int {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	valid := prune(l.requests[key], cutoff)
	l.requests[key] = valid

	remaining := l.max - len(valid)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the recorded history for one key. The next Allow call
// behaves as if the key is new.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.requests, key)
}

// ResetAll clears the recorded history for every key.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = make(map[string][]time.Time)
}

// prune returns the timestamps strictly after cutoff, preserving order.
// Kept as a pure function so window behavior is testable without a clock.
func prune(timestamps []time.Time, cutoff time.Time) []time.Time {
	valid := timestamps[:0:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	return valid
}

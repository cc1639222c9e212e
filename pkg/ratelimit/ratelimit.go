// Package ratelimit counts requests per identifier over a sliding time window.
//
// A SlidingWindow satisfies echo's middleware.RateLimiterStore, so it can be
// dropped into middleware.RateLimiterWithConfig.
package ratelimit

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4/middleware"
)

var _ middleware.RateLimiterStore = (*SlidingWindow)(nil)

// SlidingWindow admits at most max requests per identifier in any window-long span.
// Denied requests are not counted.
type SlidingWindow struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

// Option modifies a SlidingWindow as it is created.
type Option func(*SlidingWindow)

// ClockOpt replaces the time source.
func ClockOpt(now func() time.Time) Option {
	return func(sw *SlidingWindow) {
		sw.now = now
	}
}

// New creates a limiter admitting max requests per window.
func New(max int, window time.Duration, options ...Option) *SlidingWindow {
	sw := &SlidingWindow{
		max:    max,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
	for _, opt := range options {
		opt(sw)
	}
	return sw
}

// Allow records a request from identifier and reports whether it is within the limit.
func (sw *SlidingWindow) Allow(identifier string) (bool, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	now := sw.now()
	recent := sw.prune(identifier, now)
	if len(recent) >= sw.max {
		return false, nil
	}
	sw.hits[identifier] = append(recent, now)
	return true, nil
}

// Remaining is how many more requests identifier may make right now.
func (sw *SlidingWindow) Remaining(identifier string) int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	n := sw.max - len(sw.prune(identifier, sw.now()))
	if n < 0 {
		return 0
	}
	return n
}

// prune drops timestamps that have left the window; the caller holds the lock.
func (sw *SlidingWindow) prune(identifier string, now time.Time) []time.Time {
	hits := sw.hits[identifier]
	start := now.Add(-sw.window)
	i := 0
	for i < len(hits) && !hits[i].After(start) {
		i++
	}
	recent := hits[i:]
	if len(recent) == 0 {
		delete(sw.hits, identifier)
		return nil
	}
	sw.hits[identifier] = recent
	return recent
}

// Sweep forgets identifiers with no requests inside the window, and returns how many it dropped.
func (sw *SlidingWindow) Sweep() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	now := sw.now()
	n := 0
	for id := range sw.hits {
		if sw.prune(id, now) == nil {
			n++
		}
	}
	return n
}

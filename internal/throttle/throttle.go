// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

// Package throttle provides a leading-edge rate limiter used to bound
// bursty work: repeated error reports and session persistence writes.
package throttle

import (
	"sync"
	"time"
)

// Limiter admits at most one call per interval, on the leading edge.
// Calls arriving inside the interval report false and are discarded.
// Safe for concurrent use.
type Limiter struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
	now  func() time.Time // injectable clock for tests
}

// New creates a leading-edge limiter.
func New(interval time.Duration) *Limiter {
	return &Limiter{interval: interval, now: time.Now}
}

// Allow reports whether a call arriving now should be admitted.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !l.last.IsZero() && now.Sub(l.last) < l.interval {
		return false
	}
	l.last = now
	return true
}

// Reset clears the window so the next call is admitted.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = time.Time{}
}

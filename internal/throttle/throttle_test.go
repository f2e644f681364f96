// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package throttle

import (
	"testing"
	"time"
)

func TestLimiterAdmitsLeadingEdge(t *testing.T) {
	clock := time.Now()
	l := New(time.Second)
	l.now = func() time.Time { return clock }

	if !l.Allow() {
		t.Fatal("first call should be admitted")
	}
	if l.Allow() {
		t.Error("call inside window should be rejected")
	}

	clock = clock.Add(500 * time.Millisecond)
	if l.Allow() {
		t.Error("call at half window should be rejected")
	}

	clock = clock.Add(600 * time.Millisecond)
	if !l.Allow() {
		t.Error("call after window should be admitted")
	}
}

func TestLimiterReset(t *testing.T) {
	clock := time.Now()
	l := New(time.Minute)
	l.now = func() time.Time { return clock }

	l.Allow()
	l.Reset()
	if !l.Allow() {
		t.Error("call after reset should be admitted")
	}
}

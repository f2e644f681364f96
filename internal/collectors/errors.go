// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package collectors

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/vantagehq/vantage-go/internal/models"
	"github.com/vantagehq/vantage-go/internal/throttle"
)

// errorBurstWindow throttles identical error messages so a hot loop
// cannot flood the queue.
const errorBurstWindow = 5 * time.Second

// ErrorReporter converts errors and recovered panics into typed events.
// Panics are tagged distinctly from reported errors, the host-native
// analogue of separating unhandled rejections from error events.
type ErrorReporter struct {
	emit func(models.Event)

	mu        sync.Mutex
	throttles map[string]*throttle.Limiter
}

// NewErrorReporter creates a reporter emitting through the callback.
func NewErrorReporter(emit func(models.Event)) *ErrorReporter {
	return &ErrorReporter{
		emit:      emit,
		throttles: make(map[string]*throttle.Limiter),
	}
}

// CaptureError records a non-fatal error at the caller's location.
func (r *ErrorReporter) CaptureError(err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	if !r.allow(msg) {
		return
	}

	file, line := callerLocation(2)
	r.emit(models.Event{
		Type:    models.TypeError,
		Message: msg,
		File:    file,
		Line:    line,
	})
}

// CapturePanic records a recovered panic value with its stack.
func (r *ErrorReporter) CapturePanic(v any, stack []byte) {
	msg := fmt.Sprintf("%v", v)
	if !r.allow(msg) {
		return
	}
	if stack == nil {
		stack = debug.Stack()
	}

	r.emit(models.Event{
		Type:    models.TypeError,
		Message: msg,
		Stack:   string(stack),
		Panic:   true,
	})
}

// Recover is for deferred use at goroutine boundaries. It reports the
// panic and re-panics so the host's own recovery still sees it:
//
//	defer reporter.Recover()
func (r *ErrorReporter) Recover() {
	if v := recover(); v != nil {
		r.CapturePanic(v, debug.Stack())
		panic(v)
	}
}

// allow applies the per-message burst throttle.
func (r *ErrorReporter) allow(msg string) bool {
	r.mu.Lock()
	th, ok := r.throttles[msg]
	if !ok {
		// Bound the map so unique messages cannot grow it forever.
		if len(r.throttles) > 1000 {
			r.throttles = make(map[string]*throttle.Limiter)
		}
		th = throttle.New(errorBurstWindow)
		r.throttles[msg] = th
	}
	r.mu.Unlock()
	return th.Allow()
}

func callerLocation(skip int) (string, int) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "", 0
	}
	return file, line
}

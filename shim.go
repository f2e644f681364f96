// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package vantage

import (
	"context"
	"sync"
)

// maxPendingCommands bounds the pre-init command queue; anything beyond
// it is discarded oldest-first.
const maxPendingCommands = 100

// The package-level functions operate on a shared default tracker, for
// applications that do not want to thread a *Tracker through their call
// graph. Calls made before Init are queued and replayed, in order, once
// initialization succeeds. Libraries should construct their own Tracker
// with New instead.
var (
	defaultMu      sync.Mutex
	defaultTracker = New()
	pendingCmds    []func(*Tracker)
	defaultReady   bool
)

// Init initializes the default tracker and replays any calls queued
// before it.
func Init(cfg Config) {
	defaultMu.Lock()
	tr := defaultTracker
	defaultMu.Unlock()

	tr.Init(cfg)

	defaultMu.Lock()
	cmds := pendingCmds
	pendingCmds = nil
	defaultReady = true
	defaultMu.Unlock()

	for _, cmd := range cmds {
		cmd(tr)
	}
}

// Default returns the tracker behind the package-level functions.
func Default() *Tracker {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultTracker
}

func dispatch(cmd func(*Tracker)) {
	defaultMu.Lock()
	if !defaultReady {
		if len(pendingCmds) >= maxPendingCommands {
			pendingCmds = pendingCmds[1:]
		}
		pendingCmds = append(pendingCmds, cmd)
		defaultMu.Unlock()
		return
	}
	tr := defaultTracker
	defaultMu.Unlock()
	cmd(tr)
}

// Track records a custom event on the default tracker.
func Track(eventType string, properties map[string]any) {
	dispatch(func(tr *Tracker) { tr.Track(eventType, properties) })
}

// View records a view event on the default tracker.
func View(url, title string, properties map[string]any) {
	dispatch(func(tr *Tracker) { tr.View(url, title, properties) })
}

// Click records a click event on the default tracker.
func Click(selector, text string, properties map[string]any) {
	dispatch(func(tr *Tracker) { tr.Click(selector, text, properties) })
}

// Identify sets the user identity on the default tracker.
func Identify(userID string, properties map[string]any) {
	dispatch(func(tr *Tracker) { tr.Identify(userID, properties) })
}

// SetUserProperties merges user properties on the default tracker.
func SetUserProperties(properties map[string]any) {
	dispatch(func(tr *Tracker) { tr.SetUserProperties(properties) })
}

// CaptureError reports an error on the default tracker.
func CaptureError(err error) {
	dispatch(func(tr *Tracker) { tr.CaptureError(err) })
}

// Flush forces a send on the default tracker.
func Flush(ctx context.Context) {
	defaultMu.Lock()
	tr := defaultTracker
	defaultMu.Unlock()
	tr.Flush(ctx)
}

// Destroy shuts down the default tracker. A fresh instance replaces it
// so a later Init starts clean.
func Destroy() {
	defaultMu.Lock()
	tr := defaultTracker
	defaultTracker = New()
	defaultReady = false
	pendingCmds = nil
	defaultMu.Unlock()
	tr.Destroy()
}

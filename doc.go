// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

// Package vantage is the event tracking client for the Vantage
// analytics platform. It batches events in memory, mirrors them to a
// durable on-disk backlog, and ships them to a collection endpoint with
// retry, rate limiting and circuit breaking.
//
// Typical use:
//
//	tracker := vantage.New()
//	tracker.Init(vantage.Config{
//		ProjectID: "my-project",
//		Endpoint:  "https://collect.example.com/api/collect",
//		SampleRate: 1.0,
//	})
//	defer tracker.Destroy()
//
//	tracker.Track("signup", map[string]any{"plan": "pro"})
//
// Initialization is gated on host capability, a consent predicate and a
// sampling draw; when any gate fails the tracker stays inert and every
// method is a safe no-op. Events persisted while the endpoint was
// unreachable are replayed by the next instance that opens the same
// state directory.
package vantage

// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

// Package models defines the wire types shared by the tracker, the
// transport and the development sink.
package models

// Event type discriminators. Custom event types are any other string.
const (
	TypeView  = "pageview"
	TypeClick = "click"
	TypeError = "error"
	TypeVital = "web-vital"
)

// Event is the append-only unit of work. An Event is immutable once
// created and keeps the session ID that was active at creation time even
// if the session is later rotated.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // ms epoch
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`

	// View fields
	URL      string            `json:"url,omitempty"`
	Title    string            `json:"title,omitempty"`
	Referrer string            `json:"referrer,omitempty"`
	UTM      map[string]string `json:"utm,omitempty"`

	// Click fields
	Selector string `json:"selector,omitempty"`
	Text     string `json:"text,omitempty"`

	// Error fields
	Message string `json:"message,omitempty"`
	Stack   string `json:"stack,omitempty"`
	File    string `json:"filename,omitempty"`
	Line    int    `json:"line,omitempty"`
	Panic   bool   `json:"panic,omitempty"` // distinguishes recovered panics from reported errors

	// Vital fields
	Name   string  `json:"name,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Rating string  `json:"rating,omitempty"`

	Properties map[string]any `json:"properties,omitempty"`
}

// DeviceInfo describes the host process. It is captured once at
// initialization, is immutable for the process lifetime, and travels on
// every batch rather than on each event.
type DeviceInfo struct {
	UserAgent string `json:"userAgent"`
	Hostname  string `json:"hostname,omitempty"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	NumCPU    int    `json:"numCpu"`
	GoVersion string `json:"goVersion"`
	Language  string `json:"language,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
	IsMobile  bool   `json:"isMobile"`
	IsTouch   bool   `json:"isTouch"`
}

// Payload is the body of one collection request.
type Payload struct {
	ProjectID      string         `json:"projectId"`
	SessionID      string         `json:"sessionId"`
	UserID         string         `json:"userId,omitempty"`
	UserProperties map[string]any `json:"userProperties,omitempty"`
	DeviceInfo     DeviceInfo     `json:"deviceInfo"`
	Events         []Event        `json:"events"`
	Timestamp      int64          `json:"timestamp"` // ms epoch
}

// CollectResponse is the sink's success body.
type CollectResponse struct {
	Success        bool  `json:"success"`
	Processed      int   `json:"processed"`
	ProcessingTime int64 `json:"processingTime"` // ms
}

// CollectError is the sink's error body.
type CollectError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

// Package identity owns session and user identity state: identifier
// generation, session resumption and rotation bookkeeping, UTM extraction
// and device metadata capture.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Session is a bounded period of activity identified by an opaque token.
// It is persisted so a restart within the inactivity timeout resumes the
// same session.
type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// NewSession mints a session starting now.
func NewSession(now time.Time) Session {
	return Session{
		ID:           NewID(),
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Expired reports whether the session has been inactive beyond timeout.
func (s Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivity) > timeout
}

// Identity carries the user identifier and merged user properties. Both
// survive restarts and are cleared only by an explicit reset.
type Identity struct {
	UserID         string         `json:"userId,omitempty"`
	UserProperties map[string]any `json:"userProperties,omitempty"`
}

// Merge folds props into the identity without discarding existing keys.
// Later values win on key collision.
func (i *Identity) Merge(props map[string]any) {
	if len(props) == 0 {
		return
	}
	if i.UserProperties == nil {
		i.UserProperties = make(map[string]any, len(props))
	}
	for k, v := range props {
		i.UserProperties[k] = v
	}
}

// NewID returns an opaque unique token.
func NewID() string {
	return uuid.New().String()
}

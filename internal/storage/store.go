// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

// Package storage provides the durable event backlog and the persisted
// session/identity records.
//
// Two implementations exist: a BadgerDB-backed store that survives process
// restarts, and an in-memory store used when offline storage is disabled
// or the database cannot be opened. The tracker treats every storage error
// as non-fatal: a failed write degrades that operation to memory-only
// rather than surfacing to the host application.
package storage

import (
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/vantagehq/vantage-go/internal/identity"
)

// Entry wraps one queued event with its delivery bookkeeping.
type Entry struct {
	// ID orders entries FIFO and addresses them for removal.
	ID string `json:"id"`

	// Payload is the serialized event.
	Payload json.RawMessage `json:"payload"`

	// Retries counts failed send attempts for the batch containing
	// this entry. The tracker drops the entry once it reaches the cap.
	Retries int `json:"retries"`

	// EnqueuedAt is when the entry was appended.
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// UnmarshalPayload deserializes the payload into v.
func (e *Entry) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Store persists the event backlog and the two independent state records.
// Implementations must tolerate corrupt stored data by discarding it
// rather than failing the read.
type Store interface {
	// Append serializes event and adds it to the backlog.
	Append(event any) (id string, err error)

	// Pending returns the backlog in FIFO order.
	Pending() ([]*Entry, error)

	// MarkAttempt increments the retry count and returns the new value.
	MarkAttempt(id string) (retries int, err error)

	// Remove deletes an entry after a confirmed send or a final drop.
	Remove(id string) error

	// Clear discards the whole backlog.
	Clear() error

	// SaveSession / LoadSession persist the session record. ok is false
	// when no (valid) record exists.
	SaveSession(s identity.Session) error
	LoadSession() (s identity.Session, ok bool, err error)

	// SaveIdentity / LoadIdentity persist the identity record.
	SaveIdentity(id identity.Identity) error
	LoadIdentity() (id identity.Identity, ok bool, err error)

	// ClearState removes both state records.
	ClearState() error

	Close() error
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("storage: entry not found")

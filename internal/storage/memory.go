// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vantagehq/vantage-go/internal/identity"
)

// MemoryStore implements Store without durability. It backs trackers with
// offline storage disabled and the degraded mode entered when the Badger
// directory cannot be opened.
type MemoryStore struct {
	mu       sync.Mutex
	entries  []*Entry
	session  *identity.Session
	identity *identity.Identity
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds event to the tail of the backlog.
func (s *MemoryStore) Append(event any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id := fmt.Sprintf("%020d-%s", time.Now().UnixNano(), uuid.New().String()[:8])
	s.entries = append(s.entries, &Entry{
		ID:         id,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	})
	return id, nil
}

// Pending returns a copy of the backlog in FIFO order.
func (s *MemoryStore) Pending() ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]*Entry, len(s.entries))
	for i, e := range s.entries {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// MarkAttempt increments the retry count for one entry.
func (s *MemoryStore) MarkAttempt(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	for _, e := range s.entries {
		if e.ID == id {
			e.Retries++
			return e.Retries, nil
		}
	}
	return 0, ErrNotFound
}

// Remove deletes one entry.
func (s *MemoryStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Clear discards the whole backlog.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.entries = nil
	return nil
}

// SaveSession persists the session record.
func (s *MemoryStore) SaveSession(sess identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.session = &sess
	return nil
}

// LoadSession loads the session record.
func (s *MemoryStore) LoadSession() (identity.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return identity.Session{}, false, ErrClosed
	}
	if s.session == nil {
		return identity.Session{}, false, nil
	}
	return *s.session, true, nil
}

// SaveIdentity persists the identity record.
func (s *MemoryStore) SaveIdentity(id identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	cp := id
	s.identity = &cp
	return nil
}

// LoadIdentity loads the identity record.
func (s *MemoryStore) LoadIdentity() (identity.Identity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return identity.Identity{}, false, ErrClosed
	}
	if s.identity == nil {
		return identity.Identity{}, false, nil
	}
	return *s.identity, true, nil
}

// ClearState removes both state records.
func (s *MemoryStore) ClearState() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.session = nil
	s.identity = nil
	return nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vantagehq/vantage-go/internal/identity"
	"github.com/vantagehq/vantage-go/internal/logging"
)

// Key prefixes. Queue keys embed a zero-padded nanosecond timestamp so
// Badger's lexicographic iteration order is FIFO.
const (
	prefixQueue = "queue:"
	keySession  = "state:session"
	keyIdentity = "state:identity"
)

// BadgerStore implements Store on a BadgerDB directory. A second process
// (or instance) opening the same directory fails to acquire Badger's
// directory lock; callers are expected to fall back to the in-memory
// store, which keeps contention last-writer-wins by construction.
type BadgerStore struct {
	db *badger.DB

	mu     sync.RWMutex
	closed bool
}

// Open creates or reopens the store at dir.
func Open(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.SyncWrites = false
	opts.MemTableSize = 8 << 20
	opts.ValueLogFileSize = 16 << 20
	opts.NumCompactors = 2
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	s := &BadgerStore{db: db}
	logging.Debug().Str("path", dir).Msg("offline store opened")
	return s, nil
}

// Append serializes event and persists it at the tail of the backlog.
func (s *BadgerStore) Append(event any) (string, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return "", ErrClosed
	}
	s.mu.RUnlock()

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id := fmt.Sprintf("%020d-%s", time.Now().UnixNano(), uuid.New().String()[:8])
	entry := &Entry{
		ID:         id,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixQueue+id), data)
	})
	if err != nil {
		return "", fmt.Errorf("write entry: %w", err)
	}
	return id, nil
}

// Pending returns the backlog in FIFO order. Entries that fail to decode
// are discarded and deleted so one corrupt record cannot wedge hydration.
func (s *BadgerStore) Pending() ([]*Entry, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	s.mu.RUnlock()

	var entries []*Entry
	var corrupt [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixQueue)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			var entry Entry
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("discarding corrupt queue entry")
				corrupt = append(corrupt, item.KeyCopy(nil))
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate queue: %w", err)
	}

	if len(corrupt) > 0 {
		_ = s.db.Update(func(txn *badger.Txn) error {
			for _, key := range corrupt {
				_ = txn.Delete(key)
			}
			return nil
		})
	}

	return entries, nil
}

// MarkAttempt increments the retry count for one entry.
func (s *BadgerStore) MarkAttempt(id string) (int, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return 0, ErrClosed
	}
	s.mu.RUnlock()

	key := []byte(prefixQueue + id)
	var retries int

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}

		var entry Entry
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		}); err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}

		entry.Retries++
		retries = entry.Retries

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return 0, err
	}
	return retries, nil
}

// Remove deletes one entry.
func (s *BadgerStore) Remove(id string) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(prefixQueue + id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}
		return txn.Delete(key)
	})
}

// Clear discards the whole backlog.
func (s *BadgerStore) Clear() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixQueue)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveSession persists the session record.
func (s *BadgerStore) SaveSession(sess identity.Session) error {
	return s.saveRecord(keySession, sess)
}

// LoadSession loads the session record. A corrupt record is discarded.
func (s *BadgerStore) LoadSession() (identity.Session, bool, error) {
	var sess identity.Session
	ok, err := s.loadRecord(keySession, &sess)
	return sess, ok, err
}

// SaveIdentity persists the identity record.
func (s *BadgerStore) SaveIdentity(id identity.Identity) error {
	return s.saveRecord(keyIdentity, id)
}

// LoadIdentity loads the identity record. A corrupt record is discarded.
func (s *BadgerStore) LoadIdentity() (identity.Identity, bool, error) {
	var id identity.Identity
	ok, err := s.loadRecord(keyIdentity, &id)
	return id, ok, err
}

// ClearState removes both state records.
func (s *BadgerStore) ClearState() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{keySession, keyIdentity} {
			err := txn.Delete([]byte(key))
			if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) saveRecord(key string, v any) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *BadgerStore) loadRecord(key string, v any) (bool, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return false, ErrClosed
	}
	s.mu.RUnlock()

	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if uerr := json.Unmarshal(val, v); uerr != nil {
				logging.Warn().Err(uerr).Str("key", key).Msg("discarding corrupt state record")
				return nil
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return false, fmt.Errorf("load record: %w", err)
	}
	return found, nil
}

// Close shuts the database down. Safe to call multiple times.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	return nil
}

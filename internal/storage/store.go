// Package storage keeps small pieces of client state (translation history,
// feedback, token totals) in a single JSON document on disk.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const DefaultStateFilename = "state.json"

// Store is a durable key -> JSON value map. A Store with an empty path lives
// in memory only.
type Store struct {
	path string
	mu   sync.Mutex
	data map[string]json.RawMessage
}

// Open loads the state file at path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	if len(raw) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("unmarshal state file: %w", err)
	}

	return s, nil
}

// NewMemory returns a store that is never written to disk.
func NewMemory() *Store {
	return &Store{data: make(map[string]json.RawMessage)}
}

func (s *Store) Path() string {
	return s.path
}

// Get decodes the value stored under key into v. It reports false when the
// key is absent.
func (s *Store) Get(key string, v any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()

	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}

	return true, nil
}

// Set stores v under key and flushes the file.
func (s *Store) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putLocked(key, raw)
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return nil
	}

	return s.putLocked(key, nil)
}

// Update reads key into a fresh T, applies fn and stores the result while
// holding the store lock, so concurrent read-modify-write cycles don't lose
// updates.
func Update[T any](s *Store, key string, fn func(T) T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current T
	if raw, ok := s.data[key]; ok {
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
	}

	raw, err := json.Marshal(fn(current))
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}

	return s.putLocked(key, raw)
}

// putLocked sets key to raw, or deletes it when raw is nil, and flushes. The
// previous value is restored when the flush fails.
func (s *Store) putLocked(key string, raw json.RawMessage) error {
	prev, had := s.data[key]

	if raw == nil {
		delete(s.data, key)
	} else {
		s.data[key] = raw
	}

	if err := s.flushLocked(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}

		return err
	}

	return nil
}

func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

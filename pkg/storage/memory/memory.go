// Package memory provides an in-memory RecordStore for tests and dry runs.
// Records are lost when the process exits.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/rhuss/autoif/pkg/storage"
)

// Store is an in-memory RecordStore.
type Store struct {
	mu      sync.RWMutex
	outputs map[string][]json.RawMessage
	closed  bool
}

// Ensure Store implements storage.RecordStore at compile time.
var _ storage.RecordStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{outputs: make(map[string][]json.RawMessage)}
}

// Write replaces the records under name with copies of records.
func (s *Store) Write(_ context.Context, name string, records []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.outputs[name] = clone(records)
	return nil
}

// Read returns copies of the records under name.
func (s *Store) Read(_ context.Context, name string) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	records, ok := s.outputs[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(records), nil
}

// Names returns the names written so far, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.outputs))
	for n := range s.outputs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Close marks the store closed. Stored records are discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.outputs = nil
	return nil
}

func clone(records []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(records))
	for i, r := range records {
		out[i] = bytes.Clone(r)
	}
	return out
}

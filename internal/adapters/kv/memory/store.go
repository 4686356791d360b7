package memory

import (
	"context"
	"sync"
)

// Store is an in-memory implementation of ports.KeyValueStore
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStore creates a new in-memory key-value store
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Get returns the present subset of keys
func (s *Store) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// SetMany writes all values under one lock
func (s *Store) SetMany(ctx context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

// Delete removes keys; missing keys are ignored
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// Len returns the number of stored keys
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

func (s *Store) Close() error { return nil }

package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store. Values live as long as the process,
// so it only suits tests and panels that don't need to survive restarts.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored under key.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}

	// Return a copy to prevent mutations
	dataCopy := make([]byte, len(v))
	copy(dataCopy, v)
	return dataCopy, nil
}

// Set stores a copy of data under key.
func (m *MemoryStore) Set(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	// Make a copy of data to prevent mutations
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	m.values[key] = dataCopy
	return nil
}

// Close shuts down the store and drops its contents.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.values = nil
	return nil
}

// Count returns the number of keys in the store.
// This is for monitoring/testing purposes.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

package storage

import (
	"context"
	"sync"
)

// MemoryAdapter is the default in-process Adapter. Values are held in a
// plain map; nothing survives the process. It is also the test double for
// the caching middleware.
type MemoryAdapter struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewMemoryAdapter creates an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		data: make(map[string]any),
	}
}

// Get retrieves the value for key. Absence is reported, never an error.
func (m *MemoryAdapter) Get(_ context.Context, key string) (any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok, nil
}

// Set stores value at key, overwriting any existing value.
func (m *MemoryAdapter) Set(_ context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (m *MemoryAdapter) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Clear removes every key.
func (m *MemoryAdapter) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]any)
	return nil
}

// Keys returns all keys currently held, in no particular order.
func (m *MemoryAdapter) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	return keys, nil
}

// Size returns the number of keys currently held.
func (m *MemoryAdapter) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

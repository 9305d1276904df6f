package store

import (
	"context"
	"sync"
)

// MemoryKV is an in-process KV. It is safe for concurrent use and is the
// backend of tests and of HAJIMI_STORE=memory.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryKV creates an empty in-memory backend.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

// Get returns a copy of the value at key.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value at key.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Len returns the number of keys held.
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.values)
}

var _ KV = (*MemoryKV)(nil)

package store

import (
	"fmt"
	"sync"

	"github.com/fwojciec/secretary"
)

// Interface compliance check.
var _ secretary.Medium = (*MemoryMedium)(nil)

// MemoryMedium is a process-local [secretary.Medium]. It is the store's
// default when no durable medium is configured.
type MemoryMedium struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemoryMedium returns an empty MemoryMedium.
func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{values: make(map[string][]byte)}
}

// Save stores a copy of value.
func (m *MemoryMedium) Save(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Load returns a copy of the stored value or [secretary.ErrNotFound].
func (m *MemoryMedium) Load(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, fmt.Errorf("memory: %s: %w", key, secretary.ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

// Delete removes key.
func (m *MemoryMedium) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

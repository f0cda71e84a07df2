package repository

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps session state in process memory. It backs local runs
// of the bus agent and tests; state is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, sender, key string) (string, bool, error) {
	if err := validate(sender, key); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[sender][key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, sender, key, value string) error {
	if err := validate(sender, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.data[sender]
	if !ok {
		bucket = make(map[string]string)
		m.data[sender] = bucket
	}
	bucket[key] = value
	return nil
}

// Keys returns the stored keys for sender in lexical order.
func (m *MemoryStore) Keys(_ context.Context, sender string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data[sender]))
	for k := range m.data[sender] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

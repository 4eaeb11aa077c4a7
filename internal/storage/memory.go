package storage

import (
	"context"
	"sync"
)

// InMemoryStore keeps the default deployment dependency-free and the tests
// fast. It intentionally favors clarity over performance.
type InMemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tables: make(map[string]map[string][]byte)}
}

func (s *InMemoryStore) Get(_ context.Context, table, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if value, ok := s.tables[table][key]; ok {
		out := make([]byte, len(value))
		copy(out, value)
		return out, nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) Set(_ context.Context, table, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tables[table]
	if !ok {
		rows = make(map[string][]byte)
		s.tables[table] = rows
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	rows[key] = stored
	return nil
}

func (s *InMemoryStore) Unset(_ context.Context, table, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables[table], key)
	return nil
}

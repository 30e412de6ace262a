package store

import (
	"sync"

	"smartsession/internal/domain"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[domain.StoreKey]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[domain.StoreKey]string)}
}

func (s *MemoryStore) Put(key domain.StoreKey, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *MemoryStore) Get(key domain.StoreKey) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemoryStore) Remove(key domain.StoreKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var _ domain.KVStore = (*MemoryStore)(nil)

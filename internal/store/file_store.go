package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"smartsession/internal/domain"
)

// FileStore keeps a namespace in <dir>/<namespace>.json.
type FileStore struct {
	dir string
	ns  domain.Namespace
	mu  sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir, creating dir if needed.
func NewFileStore(dir string, ns domain.Namespace) (*FileStore, error) {
	if ns == "" {
		return nil, fmt.Errorf("store: namespace is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir, ns: ns}, nil
}

func (s *FileStore) path() string {
	return filepath.Join(s.dir, s.ns.String()+".json")
}

// Put stores value under key.
func (s *FileStore) Put(key domain.StoreKey, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[domain.StoreKey]string{}
	if err := readJSON(s.path(), &m); err != nil {
		return err
	}
	m[key] = value
	return writeJSON(s.path(), m, 0o600)
}

// Get returns the value under key and whether it was present.
func (s *FileStore) Get(key domain.StoreKey) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[domain.StoreKey]string{}
	if err := readJSON(s.path(), &m); err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *FileStore) Remove(key domain.StoreKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[domain.StoreKey]string{}
	if err := readJSON(s.path(), &m); err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return writeJSON(s.path(), m, 0o600)
}

// Close is a no-op; it lets FileStore satisfy Store.
func (s *FileStore) Close() error { return nil }

// Compile-time assertion that FileStore implements domain.KVStore.
var _ domain.KVStore = (*FileStore)(nil)

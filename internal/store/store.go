package store

import (
	"fmt"
	"io"
	"path/filepath"

	"smartsession/internal/domain"
)

// Store is a KVStore that holds resources until closed.
type Store interface {
	domain.KVStore
	io.Closer
}

// Driver names a storage backend.
type Driver string

const (
	DriverFile   Driver = "file"
	DriverMemory Driver = "memory"
	DriverSQLite Driver = "sqlite"
	DriverRedis  Driver = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver    Driver
	Namespace domain.Namespace
	// Dir holds file stores and the default SQLite database.
	Dir string
	// SQLitePath overrides <Dir>/smartsession.db.
	SQLitePath string
	RedisURL   string
	// Passphrase, when set, wraps the backend in a SealedStore.
	Passphrase string
}

// Open builds the configured store.
func Open(opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Driver {
	case DriverFile, "":
		s, err = NewFileStore(opts.Dir, opts.Namespace)
	case DriverMemory:
		s = NewMemoryStore()
	case DriverSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.Dir, "smartsession.db")
		}
		s, err = OpenSQLite(path, opts.Namespace)
	case DriverRedis:
		s, err = OpenRedis(opts.RedisURL, opts.Namespace)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if opts.Passphrase == "" {
		return s, nil
	}
	sealed, err := NewSealedStore(s, opts.Passphrase)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return sealed, nil
}

// Sealed reports whether s encrypts values at rest.
func Sealed(s domain.KVStore) bool {
	_, ok := s.(*SealedStore)
	return ok
}

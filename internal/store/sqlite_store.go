package store

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"smartsession/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	namespace  TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	value      TEXT    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
);
`

// SQLiteStore keeps every namespace in one kv table. Several profiles can
// share a database file.
type SQLiteStore struct {
	pool    *sqlitex.Pool
	ns      domain.Namespace
	timeout time.Duration
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string, ns domain.Namespace) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store: sqlite path is required")
	}
	if ns == "" {
		return nil, fmt.Errorf("store: namespace is required")
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: 4,
		PrepareConn: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteTransient(conn, "PRAGMA busy_timeout = 5000;", nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}

	s := &SQLiteStore{pool: pool, ns: ns, timeout: 10 * time.Second}
	if err := s.migrate(); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	conn, err := s.take()
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, sqliteSchema, nil); err != nil {
		return fmt.Errorf("store: applying schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) take() (*sqlite.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: take connection: %w", err)
	}
	return conn, nil
}

// Put stores value under key, replacing any earlier value.
func (s *SQLiteStore) Put(key domain.StoreKey, value string) error {
	conn, err := s.take()
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	return sqlitex.Execute(conn,
		`INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE
		 SET value = excluded.value, updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{s.ns.String(), key.String(), value, time.Now().Unix()},
		})
}

// Get returns the value under key and whether it was present.
func (s *SQLiteStore) Get(key domain.StoreKey) (string, bool, error) {
	conn, err := s.take()
	if err != nil {
		return "", false, err
	}
	defer s.pool.Put(conn)

	var (
		value string
		found bool
	)
	err = sqlitex.Execute(conn,
		"SELECT value FROM kv WHERE namespace = ? AND key = ?",
		&sqlitex.ExecOptions{
			Args: []any{s.ns.String(), key.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value = stmt.ColumnText(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *SQLiteStore) Remove(key domain.StoreKey) error {
	conn, err := s.take()
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	return sqlitex.Execute(conn,
		"DELETE FROM kv WHERE namespace = ? AND key = ?",
		&sqlitex.ExecOptions{Args: []any{s.ns.String(), key.String()}})
}

// Close closes every pooled connection.
func (s *SQLiteStore) Close() error { return s.pool.Close() }

var _ domain.KVStore = (*SQLiteStore)(nil)

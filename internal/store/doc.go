// Package store persists the session lifecycle's records.
//
// Every store is a flat string key/value namespace implementing
// domain.KVStore. Values are written as given: nothing is encrypted and
// nothing expires unless the caller wraps a store in SealedStore. Session
// private keys therefore sit in plain text on the default drivers, which
// matches the browser demo's localStorage behaviour and is surfaced to users
// by the CLI.
//
// Drivers:
//   - FileStore: one JSON file per namespace, written atomically
//   - MemoryStore: process-local map, used by tests and the demo command
//   - SQLiteStore: a kv table in a SQLite database (zombiezen.com/go/sqlite)
//   - RedisStore: keys prefixed with the namespace (go-redis)
//
// All methods are concurrency-safe. Concurrent writers to the same key see
// last-write-wins.
package store

// Package storage provides the device-local persistent store shared by
// every panel context.
//
// A Store is a plain key-value map of opaque blobs. Each aggregate lives
// under its own key as one JSON document; there are no transactions and
// no partial writes.
//
// # Backends
//
//   - MemoryStore: process-local, for tests and throwaway panels
//   - SQLStore: database/sql, SQLite by default (a file next to the
//     binary) or MySQL
//   - RedisStore: a Redis instance reachable from the device
//
// # Loading
//
// Load never fails. Absent keys, unreachable backends and unreadable
// documents all produce the caller's fallback value, with a LoadStatus
// saying which case applied:
//
//	cfg, status := storage.Load(ctx, store, storage.KeyConfig, ticket.DefaultConfig())
//	if status != storage.StatusFound {
//	    logger.Debug("using default config", "status", status)
//	}
package storage

// Package store provides durable staging storage for broker sessions.
//
// Each broker session owns a set of normalized records keyed by
// (session_id, entity, code). Rows are written while the ISIS databases are
// drained and deleted when the session closes.
//
// # Backends
//
// Open picks the backend from the DSN:
//   - a plain path, file: or sqlite: URL opens SQLite (mattn/go-sqlite3)
//   - a postgres: or postgresql: URL opens PostgreSQL (lib/pq)
//
// Queries are written with "?" placeholders and rebound to "$n" for
// PostgreSQL.
//
// # SQLite configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// # Determinism
//
// Multi-row reads are returned in byte order of code on both backends, so
// callers see identical results across runs.
package store

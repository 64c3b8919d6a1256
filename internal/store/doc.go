// Package store provides SQLite-backed durable storage for analysis runs.
//
// The store is append-only:
//   - Runs: one record per analyzer invocation over a module
//   - Functions: per-function summary (graph hash, largest MANP)
//   - Annotations: the annotation map of each function
//
// # Ordering
//
// Runs are ordered by seq INTEGER from a logical clock, never by
// timestamps. Annotations keep the program order of the analysis. Every
// query carries an explicit ORDER BY so results are identical across
// reads.
//
// # Idempotency
//
// Writes use ON CONFLICT DO NOTHING. Writing the same run twice leaves the
// database unchanged. A run and its functions are written in one
// transaction, so a failed write leaves no partial run behind.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Graph and module hashes are computed by internal/ir/hash.go so that
// identical programs can be found across runs (see FindByGraphHash).
package store

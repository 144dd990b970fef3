// Package store provides SQLite-backed durable storage for run journals.
//
// A Store implements trace.Journal and trace.Reader. Each run gets a row in
// runs; every journal entry is a row in entries keyed by (run_id, seq).
//
// # Ordering
//
//   - Entries are ordered by seq, the run's logical clock, never by wall time
//   - Runs are listed in the order their first entry was written
//   - Appending an entry whose (run_id, seq) already exists is a no-op
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The bbolt-backed alternative lives in the boltstore subpackage.
package store

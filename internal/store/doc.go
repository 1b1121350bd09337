// Package store provides SQLite-backed storage for recorded runs.
//
// Two tables:
//   - runs: one row per run (model, seed, starting geometry, outcome)
//   - frames: the captured states of a run, keyed by (run_id, seq)
//
// # Ordering
//
// Runs list by id, which is a UUIDv7 and therefore sorts by creation.
// Frames always read ORDER BY seq ASC so a replay sees states in capture
// order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Frame hashes are recording.Hash of the state bytes.
package store

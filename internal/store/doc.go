// Package store keeps a SQLite history of regression runs.
//
// Each run of a scenario is one row in runs, with the scores it was checked
// against in run_scores and its trip counts per mode in run_modes. The
// history lets a failing scenario be compared with its last passing run.
//
// # Ordering
//
// Runs are ordered by seq, a per-database counter assigned on insert, never
// by wall time. Queries break ties on id so results are deterministic.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads while parallel scenario runs write
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: scores and modes must belong to a run
package store

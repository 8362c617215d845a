// Package store provides the SQLite cycle journal for lps runs.
//
// The journal is append-only:
//   - runs: one row per engine execution, keyed by a UUIDv7 run id
//   - cycles: one row per completed cycle time
//   - cycle_literals: actions and observations that occurred over the
//     cycle's transition, and the fluents holding at the cycle's time
//   - engine_events: warnings, errors and lifecycle events
//
// # Ordering
//
// All ordering uses the seq column (the engine's logical clock), never wall
// time. Every read orders by seq so traces are identical across reads.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//
// Migrations are applied by PRAGMA user_version.
package store

// Package store provides SQLite-backed durable storage for analysis runs.
//
// A run records which program was analyzed and with which tool versions,
// together with the frozen usage summary of every analyzed function
// variant:
//   - Runs: one row per analysis run, ordered by a logical sequence number
//   - Usage summaries: canonical JSON of each function variant's usage
//     state, with its content hash
//
// # Critical Patterns
//
// Logical ordering
//   - Runs are ordered by seq INTEGER, never by timestamps
//   - Summaries are read back ORDER BY seq ASC, so a run reads back in the
//     order it was written
//
// Content hashes
//   - Each summary is stored with ir.SummaryHash of its canonical form
//   - Compare uses the hashes to report which summaries changed between
//     runs without decoding them
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

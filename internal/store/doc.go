// Package store provides the SQLite-backed rewrite journal.
//
// Each journaled run records the document that was rewritten (its literal
// form), the strictness policy, the input and output fingerprints, the
// rendered output or the error, and the ordered list of replacements.
// The journal lets qmx replay past rewrites and verify that the same
// document still produces the same output fingerprint.
//
// # Ordering
//
//   - All ordering uses seq INTEGER (logical clock), never timestamps
//   - All queries use ORDER BY seq ASC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Replacements cascade with their run
//
// Run IDs are UUIDv7 (time-sortable) from UUIDv7Generator; tests use
// FixedGenerator for deterministic IDs.
package store

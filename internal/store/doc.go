// Package store provides the remote ledger: a path → JSON document store
// that fans every committed write out to all subscribers, including the
// writer itself.
//
// # Backends
//
//   - SQLite (sqlite:// or file: URLs): durable, single file, shared by
//     processes on one host. Other processes' writes are found by polling
//     the revision column.
//   - Mongo (mongodb:// URLs): shared across hosts. Subscriptions poll.
//   - Memory (memory:// URLs, tests): in-process only, with write failure
//     injection.
//
// # Ordering
//
// Each path carries a revision that increases by one per write. A
// subscription delivers the current value first and then only strictly
// newer revisions. A slow reader may skip intermediate revisions, which is
// harmless because every value is a whole document.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store

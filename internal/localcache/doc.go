// Package localcache provides the SQLite-backed durable local cache.
//
// Each collection owns one slot: a row holding the whole collection
// snapshot as a JSON array of records. Writes replace the slot atomically
// and then publish the collection key on the change bus.
//
// # Read Semantics
//
// Read never fails. A missing slot, a query error or a snapshot that does
// not parse all yield an empty collection, and the problem is logged.
//
// # Database Configuration
//
//   - WAL mode: readers from other processes see the last committed snapshot
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks held by other processes
//   - single connection: SQLite has one writer anyway
//
// # Concurrency
//
// Mutate runs read-compute-write under a per-key mutex, so two stores on the
// same Cache cannot interleave a create and hand out the same id. Processes
// sharing the file get atomic slot replacement from SQLite but no such
// critical section; they see eventual, not strict, consistency.
package localcache

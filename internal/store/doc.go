// Package store is the Record Store: synchronous CRUD over one collection
// in the durable local cache.
//
// A Store owns id allocation for its collection. Every mutating call runs as
// a single Cache.Mutate critical section, so two stores opened on the same
// key and Cache cannot hand out the same id. Each successful mutation
// persists the full snapshot and publishes a change notification.
//
// Store logic itself never fails. Errors come only from the SQLite medium;
// unreadable snapshots are absorbed by the cache as empty collections.
package store

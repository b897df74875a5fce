// Package coordinator is the fallback coordinator every console view reads
// collections through.
//
// A Provider is constructed once per process from the local cache, the
// remote client and the schema registry. Each consumer opens its own Handle
// on a collection key.
//
// # Mode State Machine
//
//	Uninitialized --first request--> Probing
//	Probing --remote list ok--> Remote
//	Probing --remote list fails--> Local
//	Remote | Local --Refresh--> Probing
//
// Only a read (the probe) can demote a handle to Local, and only Refresh can
// promote it back. A failed write in Remote mode reports an error and leaves
// the mode alone; it never falls through to the local store, so data does
// not silently fork mid-session.
//
// # Consistency
//
// After every successful write the handle re-reads its backing store rather
// than patching its view. In Remote mode that re-read, like Refresh, issues a
// list request of its own instead of joining one another handle started
// earlier. Handles in Local mode subscribe to the change bus;
// a change published by another handle marks the view stale and the next
// Items call re-reads it.
//
// # Validation
//
// Record fields are opaque. Payload checks are opt-in: a Provider built
// WithSchemas validates creates and patches for the collections its registry
// declares, and one built without it accepts any payload.
//
// # Errors
//
// Handle operations do not return errors. A failed operation returns the
// zero record or false and leaves the cause in Err until the next successful
// operation. Not-found on Update or Delete is a plain false with no error.
package coordinator

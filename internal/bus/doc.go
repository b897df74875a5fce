// Package bus is the process-wide change notification bus.
//
// A Publish of a collection key tells every current subscriber that the
// persisted snapshot for that key changed, so they can re-read it. There is
// no backlog: subscribers that register after a Publish never see it.
//
// Delivery is synchronous, on the publishing goroutine, with handlers run
// outside the bus lock. Handlers must not block; they typically flip a flag
// or do a non-blocking channel send (see Watch).
//
// The bus is an explicitly constructed value. Construct one per process (or
// per test) and pass it to the local cache and the coordinator.
package bus

// Package remote talks to the Remote Service collection API and ships a
// reference implementation of that API.
//
// # Wire Contract
//
//	GET    /collections/{key}        -> 200 [record, ...]
//	POST   /collections/{key}        -> 201 record      (body: fields)
//	PUT    /collections/{key}/{id}   -> 200 record      (body: partial fields)
//	DELETE /collections/{key}/{id}   -> 204
//
// Bodies are JSON records shaped like record.Record. Any non-2xx status is a
// *StatusError; transport failures are returned wrapped as they come from
// net/http.
//
// # Client
//
// Client sends an X-Request-Id (UUIDv7) with every call, waits on an
// optional token-bucket limiter, and collapses concurrent List calls for the
// same collection into a single request.
//
// # Server
//
// Server serves the contract over a local cache of its own. It is the
// development and test stand-in for the real service (mops serve).
package remote

// Package schema validates record payloads against CUE entity schemas.
//
// A schema file declares one struct per collection under the top-level
// `collection` field. Validation happens at the coordinator boundary, before
// a record reaches the remote service or the local store:
//
//   - ValidateCreate requires every non-optional field to be present and
//     concrete.
//   - ValidatePatch only checks the fields that are present.
//
// Validation is opt-in policy layered over the record model, which treats
// fields as opaque. A coordinator built without a registry accepts any
// payload, and collections without a schema are never validated. The
// embedded default (entities.cue) covers the console's built-in collections
// and is what the mops CLI installs.
package schema

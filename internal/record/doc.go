// Package record defines the collection record model shared by every layer
// of the data-access core.
//
// A Record is an opaque set of entity fields plus exactly one required
// member, "id", which is either an integer or a string. The core never
// interprets the other fields.
//
// # Identity
//
// IDs compare by their string form so that 7 and "7" address the same
// record. New IDs come from NextID, which looks only at the current
// snapshot: max(numeric ids) + 1, or 1 for an empty collection.
//
// # Collection Keys
//
// Collection keys are NFC-normalised and must match
// ^[a-z][a-z0-9_-]{0,63}$. ValidateKey reports ErrInvalidKey otherwise.
package record

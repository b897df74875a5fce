package remote

import "github.com/google/uuid"

// RequestIDHeader carries the per-call correlation id.
const RequestIDHeader = "X-Request-Id"

// newRequestID returns a time-sortable UUIDv7 string.
// Panics if UUID generation fails (should never happen in practice).
func newRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}

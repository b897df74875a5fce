package record

import "errors"

var (
	// ErrNoID is returned when a record carries no "id" member.
	ErrNoID = errors.New("record has no id")

	// ErrInvalidID is returned when an id is neither an integer nor a string.
	ErrInvalidID = errors.New("id must be an integer or a string")

	// ErrInvalidKey is returned for collection keys that fail ValidateKey.
	ErrInvalidKey = errors.New("invalid collection key")
)

package record

import (
	"fmt"
	"regexp"

	"golang.org/x/text/unicode/norm"
)

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

// ValidateKey normalises a collection key to NFC and checks its shape.
// It returns the normalised key.
func ValidateKey(key string) (string, error) {
	k := norm.NFC.String(key)
	if !keyPattern.MatchString(k) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return k, nil
}

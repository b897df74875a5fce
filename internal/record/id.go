package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ID identifies a record within its collection.
// It holds either an integer or a string; the zero value is the integer 0.
type ID struct {
	n     int64
	s     string
	isStr bool
}

// IntID returns an integer ID.
func IntID(n int64) ID {
	return ID{n: n}
}

// StringID returns a string ID.
func StringID(s string) ID {
	return ID{s: s, isStr: true}
}

// ParseID interprets user input (CLI arguments, URL path segments).
// Text in canonical base-10 form becomes an integer ID. Anything else,
// including "007", "+5" and "-0", stays a string ID so its spelling survives.
func ParseID(s string) ID {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return IntID(n)
	}
	return StringID(s)
}

// IsString reports whether the ID was stored as a string.
func (id ID) IsString() bool {
	return id.isStr
}

// String returns the canonical text form used for equality.
func (id ID) String() string {
	if id.isStr {
		return id.s
	}
	return strconv.FormatInt(id.n, 10)
}

// Int returns the numeric value of the ID.
// String IDs whose text is a base-10 integer are numeric too.
func (id ID) Int() (int64, bool) {
	if !id.isStr {
		return id.n, true
	}
	n, err := strconv.ParseInt(id.s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Equal compares IDs by string form, so IntID(7) equals StringID("7").
func (id ID) Equal(other ID) bool {
	return id.String() == other.String()
}

// MarshalJSON encodes integer IDs as JSON numbers and string IDs as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isStr {
		return json.Marshal(id.s)
	}
	return []byte(strconv.FormatInt(id.n, 10)), nil
}

// UnmarshalJSON accepts a JSON string or an integral JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ErrNoID
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = StringID(s)
		return nil
	}

	if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*id = IntID(n)
		return nil
	}

	// Numbers like 3.0 or 1e2 still name an integer.
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("decode id: %w: %s", ErrInvalidID, data)
	}
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return fmt.Errorf("decode id: %w: %s", ErrInvalidID, data)
	}
	*id = IntID(int64(f))
	return nil
}

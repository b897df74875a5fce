package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// idField is the one member every record must carry.
const idField = "id"

// Record is one entity instance: a mandatory ID plus opaque fields.
// Fields never contains an "id" entry; the ID lives in its own member.
type Record struct {
	ID     ID
	Fields map[string]any
}

// New builds a record from an ID and a field set.
// The field map is copied and any "id" entry in it is ignored.
func New(id ID, fields map[string]any) Record {
	r := Record{ID: id, Fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		if k == idField {
			continue
		}
		r.Fields[k] = v
	}
	return r
}

// Get returns a field value.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Merge returns a copy of r with partial laid over its fields.
// The merge is shallow: fields absent from partial keep their prior values,
// nested values are replaced wholesale. The ID never changes.
func (r Record) Merge(partial map[string]any) Record {
	merged := New(r.ID, r.Fields)
	for k, v := range partial {
		if k == idField {
			continue
		}
		merged.Fields[k] = v
	}
	return merged
}

// MarshalJSON writes the record as a flat object with "id" first and the
// remaining fields in sorted key order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	idJSON, err := r.ID.MarshalJSON()
	if err != nil {
		return nil, err
	}
	buf.Write(idJSON)

	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		if k == idField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		kJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vJSON, err := json.Marshal(r.Fields[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.WriteByte(',')
		buf.Write(kJSON)
		buf.WriteByte(':')
		buf.Write(vJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat object. A missing or malformed "id" is an error.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("decode record: %w", ErrNoID)
	}

	idJSON, ok := raw[idField]
	if !ok {
		return fmt.Errorf("decode record: %w", ErrNoID)
	}
	var id ID
	if err := id.UnmarshalJSON(idJSON); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	fields := make(map[string]any, len(raw)-1)
	for k, v := range raw {
		if k == idField {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("decode record field %q: %w", k, err)
		}
		fields[k] = val
	}

	r.ID = id
	r.Fields = fields
	return nil
}

// DecodeSnapshot parses a persisted collection snapshot.
// An empty input or JSON null yields an empty, non-nil slice.
func DecodeSnapshot(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// EncodeSnapshot serialises an ordered list of records.
// A nil slice encodes as an empty array, never as null.
func EncodeSnapshot(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// IndexOf returns the position of the first record whose ID equals id, or -1.
func IndexOf(records []Record, id ID) int {
	want := id.String()
	for i, r := range records {
		if r.ID.String() == want {
			return i
		}
	}
	return -1
}

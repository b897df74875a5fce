package record

import (
	"encoding/json"
	"fmt"
)

// Typed pairs a record ID with an entity-specific payload.
// Payload types use ordinary json struct tags; an "id" tag on the payload is
// ignored in favour of the ID member.
type Typed[T any] struct {
	ID      ID
	Payload T
}

// As decodes the fields of r into a Typed[T].
func As[T any](r Record) (Typed[T], error) {
	var out Typed[T]
	data, err := json.Marshal(r.Fields)
	if err != nil {
		return out, fmt.Errorf("encode fields of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(data, &out.Payload); err != nil {
		return out, fmt.Errorf("decode %s into %T: %w", r.ID, out.Payload, err)
	}
	out.ID = r.ID
	return out, nil
}

// AsAll decodes a snapshot into typed records, stopping at the first failure.
func AsAll[T any](records []Record) ([]Typed[T], error) {
	out := make([]Typed[T], 0, len(records))
	for _, r := range records {
		t, err := As[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// FieldsOf converts a payload into the opaque field map used by stores.
func FieldsOf[T any](payload T) (map[string]any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", payload, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("payload %T is not an object: %w", payload, err)
	}
	delete(fields, idField)
	return fields, nil
}

// From builds an untyped record from a typed one.
func From[T any](t Typed[T]) (Record, error) {
	fields, err := FieldsOf(t.Payload)
	if err != nil {
		return Record{}, err
	}
	return New(t.ID, fields), nil
}

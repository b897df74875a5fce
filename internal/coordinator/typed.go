package coordinator

import (
	"context"

	"github.com/roach88/mops/internal/record"
)

// Typed is a Handle whose records decode into T.
type Typed[T any] struct {
	h *Handle
}

// NewTyped wraps h. The handle is still owned by the caller.
func NewTyped[T any](h *Handle) *Typed[T] {
	return &Typed[T]{h: h}
}

// Handle returns the wrapped handle.
func (t *Typed[T]) Handle() *Handle {
	return t.h
}

// Items decodes the current view. A record that does not decode into T
// fails the whole call.
func (t *Typed[T]) Items(ctx context.Context) ([]record.Typed[T], error) {
	return record.AsAll[T](t.h.Items(ctx))
}

// Create encodes payload and creates it through the handle.
func (t *Typed[T]) Create(ctx context.Context, payload T) (record.Typed[T], bool) {
	fields, err := record.FieldsOf(payload)
	if err != nil {
		t.h.setErr(err)
		return record.Typed[T]{}, false
	}
	created, ok := t.h.Create(ctx, fields)
	if !ok {
		return record.Typed[T]{}, false
	}
	out, err := record.As[T](created)
	if err != nil {
		t.h.setErr(err)
		return record.Typed[T]{}, false
	}
	return out, true
}

// Update overwrites every field payload encodes on the record with id.
func (t *Typed[T]) Update(ctx context.Context, id record.ID, payload T) (record.Typed[T], bool) {
	fields, err := record.FieldsOf(payload)
	if err != nil {
		t.h.setErr(err)
		return record.Typed[T]{}, false
	}
	updated, ok := t.h.Update(ctx, id, fields)
	if !ok {
		return record.Typed[T]{}, false
	}
	out, err := record.As[T](updated)
	if err != nil {
		t.h.setErr(err)
		return record.Typed[T]{}, false
	}
	return out, true
}

// Delete removes the record with id.
func (t *Typed[T]) Delete(ctx context.Context, id record.ID) bool {
	return t.h.Delete(ctx, id)
}

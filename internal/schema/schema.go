package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed entities.cue
var defaultSchema []byte

// Registry holds the compiled schema of every known collection.
// Safe for concurrent use.
type Registry struct {
	mu    sync.Mutex // cue values are not safe for concurrent use
	ctx   *cue.Context
	kinds map[string]cue.Value
}

// ValidationError reports a payload that does not satisfy its schema.
type ValidationError struct {
	Collection string
	Detail     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s record: %s", e.Collection, e.Detail)
}

// Default compiles the embedded console schema.
func Default() (*Registry, error) {
	return Compile(defaultSchema, "entities.cue")
}

// LoadFile compiles the schema file at path.
func LoadFile(path string) (*Registry, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Compile(src, path)
}

// Compile builds a registry from CUE source.
func Compile(src []byte, filename string) (*Registry, error) {
	ctx := cuecontext.New()
	root := ctx.CompileBytes(src, cue.Filename(filename))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile schema %s: %s", filename, cueerrors.Details(err, nil))
	}

	r := &Registry{ctx: ctx, kinds: map[string]cue.Value{}}

	collections := root.LookupPath(cue.ParsePath("collection"))
	if !collections.Exists() {
		return r, nil
	}
	iter, err := collections.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterate collections in %s: %w", filename, err)
	}
	for iter.Next() {
		v := iter.Value()
		if v.IncompleteKind() != cue.StructKind {
			return nil, fmt.Errorf("schema %s: collection.%s must be a struct", filename, iter.Selector())
		}
		r.kinds[iter.Selector().String()] = v
	}
	return r, nil
}

// Collections lists the collections that have a schema, sorted.
func (r *Registry) Collections() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Has reports whether key has a schema. A nil registry has none.
func (r *Registry) Has(key string) bool {
	if r == nil {
		return false
	}
	_, ok := r.kinds[key]
	return ok
}

// ValidateCreate checks a full field set for a new record.
func (r *Registry) ValidateCreate(key string, fields map[string]any) error {
	return r.validate(key, fields, cue.Concrete(true))
}

// ValidatePatch checks a partial field set for an update.
func (r *Registry) ValidatePatch(key string, partial map[string]any) error {
	return r.validate(key, partial)
}

func (r *Registry) validate(key string, fields map[string]any, opts ...cue.Option) error {
	if r == nil {
		return nil
	}
	kind, ok := r.kinds[key]
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	payload := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "id" {
			continue
		}
		payload[k] = v
	}

	data := r.ctx.Encode(payload)
	if err := data.Err(); err != nil {
		return &ValidationError{Collection: key, Detail: err.Error()}
	}
	unified := kind.Unify(data)
	if err := unified.Validate(opts...); err != nil {
		return &ValidationError{Collection: key, Detail: cueerrors.Details(err, nil)}
	}
	return nil
}

package store

import (
	"context"
	"fmt"

	"github.com/roach88/mops/internal/localcache"
	"github.com/roach88/mops/internal/record"
)

// Store is the Record Store for one collection.
// Safe for concurrent use.
type Store struct {
	key   string
	cache *localcache.Cache
}

// New opens the Record Store for collection key.
// An invalid key is reported as record.ErrInvalidKey.
func New(c *localcache.Cache, key string) (*Store, error) {
	k, err := record.ValidateKey(key)
	if err != nil {
		return nil, err
	}
	return &Store{key: k, cache: c}, nil
}

// Key returns the normalised collection key.
func (s *Store) Key() string {
	return s.key
}

// GetAll returns the collection snapshot, newest first.
func (s *Store) GetAll(ctx context.Context) []record.Record {
	return s.cache.Read(ctx, s.key)
}

// GetByID returns the first record whose ID string-equals id.
func (s *Store) GetByID(ctx context.Context, id record.ID) (record.Record, bool) {
	records := s.GetAll(ctx)
	if i := record.IndexOf(records, id); i >= 0 {
		return records[i], true
	}
	return record.Record{}, false
}

// Create assigns the next id, prepends {fields..., id} to the snapshot and
// persists it. An "id" entry in fields is ignored.
func (s *Store) Create(ctx context.Context, fields map[string]any) (record.Record, error) {
	var created record.Record
	_, err := s.cache.Mutate(ctx, s.key, func(cur []record.Record) ([]record.Record, bool) {
		created = record.New(record.NextID(cur), fields)
		next := make([]record.Record, 0, len(cur)+1)
		next = append(next, created)
		next = append(next, cur...)
		return next, true
	})
	if err != nil {
		return record.Record{}, fmt.Errorf("create in %s: %w", s.key, err)
	}
	return created, nil
}

// Update merges partial over the record with the given id, in place.
// Returns false, with nothing written, if no record matches.
func (s *Store) Update(ctx context.Context, id record.ID, partial map[string]any) (record.Record, bool, error) {
	var updated record.Record
	found, err := s.cache.Mutate(ctx, s.key, func(cur []record.Record) ([]record.Record, bool) {
		i := record.IndexOf(cur, id)
		if i < 0 {
			return cur, false
		}
		updated = cur[i].Merge(partial)
		next := make([]record.Record, len(cur))
		copy(next, cur)
		next[i] = updated
		return next, true
	})
	if err != nil {
		return record.Record{}, false, fmt.Errorf("update %s in %s: %w", id, s.key, err)
	}
	if !found {
		return record.Record{}, false, nil
	}
	return updated, true, nil
}

// Delete removes every record whose ID string-equals id.
// Returns false, with nothing written, if no record matches.
func (s *Store) Delete(ctx context.Context, id record.ID) (bool, error) {
	want := id.String()
	deleted, err := s.cache.Mutate(ctx, s.key, func(cur []record.Record) ([]record.Record, bool) {
		next := make([]record.Record, 0, len(cur))
		for _, r := range cur {
			if r.ID.String() != want {
				next = append(next, r)
			}
		}
		return next, len(next) != len(cur)
	})
	if err != nil {
		return false, fmt.Errorf("delete %s from %s: %w", id, s.key, err)
	}
	return deleted, nil
}

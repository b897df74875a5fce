package localcache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/mops/internal/bus"
	"github.com/roach88/mops/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - no slots table
// 1 - slots table with revision and updated_at
const currentSchemaVersion = 1

// Cache is the durable local cache shared by every Record Store in a process.
type Cache struct {
	db    *sql.DB
	bus   *bus.Bus
	log   *slog.Logger
	now   func() time.Time
	locks sync.Map // collection key -> *sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for fail-soft diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithClock overrides the wall clock used for updated_at (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Open creates or opens the cache database at path.
// Change notifications for every write go to b, which must not be nil.
//
// This function is idempotent - safe to call multiple times on the same path.
func Open(path string, b *bus.Bus, opts ...Option) (*Cache, error) {
	if b == nil {
		return nil, errors.New("localcache: nil bus")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	c := &Cache{
		db:  db,
		bus: b,
		log: slog.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Bus returns the bus this cache publishes to.
func (c *Cache) Bus() *bus.Bus {
	return c.bus
}

// Read returns the snapshot for key, newest record first.
// It never fails: problems are logged and yield an empty slice.
func (c *Cache) Read(ctx context.Context, key string) []record.Record {
	raw, found, err := readSlot(ctx, c.db, key)
	if err != nil {
		c.log.Warn("local cache read failed, treating collection as empty",
			"collection", key, "error", err)
		return []record.Record{}
	}
	if !found {
		return []record.Record{}
	}
	return c.decode(key, raw)
}

// Write replaces the snapshot for key and publishes a change notification.
func (c *Cache) Write(ctx context.Context, key string, records []record.Record) error {
	data, err := record.EncodeSnapshot(records)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return c.WriteRaw(ctx, key, string(data))
}

// WriteRaw stores raw as the snapshot for key without validating it, then
// publishes a change notification. A raw value that does not parse reads back
// as an empty collection.
func (c *Cache) WriteRaw(ctx context.Context, key, raw string) error {
	if err := c.put(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	c.bus.Publish(key)
	return nil
}

func (c *Cache) put(ctx context.Context, key, raw string) error {
	unlock := c.lock(key)
	defer unlock()

	_, err := upsertSlot(ctx, c.db, key, raw, c.now())
	return err
}

// MutateFunc computes the next snapshot from the current one.
// Returning changed=false leaves the slot untouched and publishes nothing.
// It runs inside the critical section and must not call back into the Cache.
type MutateFunc func(current []record.Record) (next []record.Record, changed bool)

// Mutate runs a read-compute-write cycle on key as one critical section and
// publishes a change notification if a write happened.
//
// The per-key mutex serialises every write to key on this Cache; the read and
// the write share one SQLite transaction so the slot is replaced as a whole.
func (c *Cache) Mutate(ctx context.Context, key string, fn MutateFunc) (bool, error) {
	changed, err := c.mutate(ctx, key, fn)
	if err != nil {
		return false, fmt.Errorf("mutate %s: %w", key, err)
	}
	if changed {
		c.bus.Publish(key)
	}
	return changed, nil
}

func (c *Cache) mutate(ctx context.Context, key string, fn MutateFunc) (bool, error) {
	unlock := c.lock(key)
	defer unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// A corrupt snapshot decodes as empty; a failed read aborts the write.
	current := []record.Record{}
	raw, found, err := readSlot(ctx, tx, key)
	if err != nil {
		return false, fmt.Errorf("read slot: %w", err)
	}
	if found {
		current = c.decode(key, raw)
	}

	next, changed := fn(current)
	if !changed {
		return false, nil
	}

	data, err := record.EncodeSnapshot(next)
	if err != nil {
		return false, err
	}
	if _, err := upsertSlot(ctx, tx, key, string(data), c.now()); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// Keys lists every collection that has a slot, in key order.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT key FROM slots ORDER BY key COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

// Revision returns how many times the slot for key has been written.
// A key without a slot has revision 0.
func (c *Cache) Revision(ctx context.Context, key string) (int64, error) {
	var rev int64
	err := c.db.QueryRowContext(ctx, `SELECT revision FROM slots WHERE key = ?`, key).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("revision %s: %w", key, err)
	}
	return rev, nil
}

func (c *Cache) decode(key, raw string) []record.Record {
	records, err := record.DecodeSnapshot([]byte(raw))
	if err != nil {
		c.log.Warn("local cache snapshot is corrupt, treating collection as empty",
			"collection", key, "error", err)
		return []record.Record{}
	}
	return records
}

func (c *Cache) lock(key string) (unlock func()) {
	v, _ := c.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

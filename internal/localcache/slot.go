package localcache

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// readSlot returns the raw snapshot for key and whether the slot exists.
func readSlot(ctx context.Context, q querier, key string) (string, bool, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT snapshot FROM slots WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return raw, true, nil
}

// upsertSlot creates the slot lazily on first write and replaces it after.
func upsertSlot(ctx context.Context, q querier, key, raw string, now time.Time) (sql.Result, error) {
	return q.ExecContext(ctx, `
		INSERT INTO slots (key, snapshot, revision, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			snapshot   = excluded.snapshot,
			revision   = slots.revision + 1,
			updated_at = excluded.updated_at
	`, key, raw, now.UTC().Format(time.RFC3339Nano))
}

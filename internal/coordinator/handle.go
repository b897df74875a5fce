package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/mops/internal/bus"
	"github.com/roach88/mops/internal/record"
	"github.com/roach88/mops/internal/remote"
	"github.com/roach88/mops/internal/schema"
	"github.com/roach88/mops/internal/store"
)

// Handle is one consumer's view of a collection.
//
// Operations on a handle are serialized. Mode, Err and Key never block on
// an operation in flight.
type Handle struct {
	key     string
	remote  Remote
	local   *store.Store
	schemas *schema.Registry
	bus     *bus.Bus
	log     *slog.Logger

	op sync.Mutex // held for the whole of an operation

	mu    sync.RWMutex
	mode  Mode
	items []record.Record
	err   error

	warned      bool // guarded by op
	stale       atomic.Bool
	unsubscribe func()
}

// Key returns the normalised collection key.
func (h *Handle) Key() string {
	return h.key
}

// Mode returns the handle's current mode.
func (h *Handle) Mode() Mode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mode
}

// Err returns the cause of the most recent failed operation, or nil if the
// most recent operation succeeded.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Items returns the current view, newest first. The first call probes the
// remote service. In Local mode a change published since the last read is
// picked up here.
func (h *Handle) Items(ctx context.Context) []record.Record {
	h.op.Lock()
	defer h.op.Unlock()

	switch h.Mode() {
	case ModeUninitialized:
		h.probe(ctx, false)
	case ModeLocal:
		if h.stale.Load() {
			h.reloadLocal(ctx)
		}
	}
	return h.view()
}

// Refresh probes the remote service again from whatever mode the handle is
// in. This is the only way back from Local to Remote.
func (h *Handle) Refresh(ctx context.Context) {
	h.op.Lock()
	defer h.op.Unlock()
	h.probe(ctx, true)
}

// Get returns the record with the given id from the current view.
func (h *Handle) Get(ctx context.Context, id record.ID) (record.Record, bool) {
	items := h.Items(ctx)
	if i := record.IndexOf(items, id); i >= 0 {
		return items[i], true
	}
	return record.Record{}, false
}

// Create adds a record through the current backend. On failure it returns
// false and the cause is available from Err.
func (h *Handle) Create(ctx context.Context, fields map[string]any) (record.Record, bool) {
	h.op.Lock()
	defer h.op.Unlock()
	h.ensureProbed(ctx)

	if err := h.schemas.ValidateCreate(h.key, fields); err != nil {
		h.fail(err)
		return record.Record{}, false
	}

	var (
		created record.Record
		err     error
	)
	if h.Mode() == ModeRemote {
		created, err = h.remote.Create(ctx, h.key, fields)
	} else {
		created, err = h.local.Create(ctx, fields)
	}
	if err != nil {
		h.fail(fmt.Errorf("create in %s: %w", h.key, err))
		return record.Record{}, false
	}
	h.afterWrite(ctx)
	return created, true
}

// Update merges partial over the record with the given id. A missing
// record is reported as false with Err nil.
func (h *Handle) Update(ctx context.Context, id record.ID, partial map[string]any) (record.Record, bool) {
	h.op.Lock()
	defer h.op.Unlock()
	h.ensureProbed(ctx)

	if err := h.schemas.ValidatePatch(h.key, partial); err != nil {
		h.fail(err)
		return record.Record{}, false
	}

	if h.Mode() == ModeRemote {
		updated, err := h.remote.Update(ctx, h.key, id, partial)
		if remote.IsNotFound(err) {
			h.setErr(nil)
			return record.Record{}, false
		}
		if err != nil {
			h.fail(fmt.Errorf("update %s in %s: %w", id, h.key, err))
			return record.Record{}, false
		}
		h.afterWrite(ctx)
		return updated, true
	}

	updated, found, err := h.local.Update(ctx, id, partial)
	if err != nil {
		h.fail(err)
		return record.Record{}, false
	}
	if !found {
		h.setErr(nil)
		return record.Record{}, false
	}
	h.afterWrite(ctx)
	return updated, true
}

// Delete removes the record with the given id. A missing record is
// reported as false with Err nil.
func (h *Handle) Delete(ctx context.Context, id record.ID) bool {
	h.op.Lock()
	defer h.op.Unlock()
	h.ensureProbed(ctx)

	if h.Mode() == ModeRemote {
		err := h.remote.Delete(ctx, h.key, id)
		if remote.IsNotFound(err) {
			h.setErr(nil)
			return false
		}
		if err != nil {
			h.fail(fmt.Errorf("delete %s from %s: %w", id, h.key, err))
			return false
		}
		h.afterWrite(ctx)
		return true
	}

	deleted, err := h.local.Delete(ctx, id)
	if err != nil {
		h.fail(err)
		return false
	}
	if !deleted {
		h.setErr(nil)
		return false
	}
	h.afterWrite(ctx)
	return true
}

// Changes streams change notifications for this collection until ctx is
// done. Bursts are coalesced.
func (h *Handle) Changes(ctx context.Context) <-chan bus.Event {
	return h.bus.Watch(ctx, h.key)
}

// Close releases the handle's change subscription. Safe to call twice.
func (h *Handle) Close() {
	h.unsubscribe()
}

func (h *Handle) ensureProbed(ctx context.Context) {
	if h.Mode() == ModeUninitialized {
		h.probe(ctx, false)
	}
}

// probe lists the collection from the remote service. Any failure demotes
// the handle to Local. A fresh probe never joins a list request started by
// another handle, so it observes every write that completed before it.
// Caller holds op.
func (h *Handle) probe(ctx context.Context, fresh bool) {
	h.setMode(ModeProbing)

	var (
		items []record.Record
		err   = remote.ErrNoRemote
	)
	switch {
	case h.remote == nil:
	case fresh:
		items, err = h.remote.ListFresh(ctx, h.key)
	default:
		items, err = h.remote.List(ctx, h.key)
	}
	if err != nil {
		h.demote(ctx, err)
		return
	}

	h.mu.Lock()
	h.mode = ModeRemote
	h.items = items
	h.err = nil
	h.mu.Unlock()
	h.log.Debug("collection served by remote", "count", len(items))
}

func (h *Handle) demote(ctx context.Context, cause error) {
	switch {
	case errors.Is(cause, remote.ErrNoRemote):
		h.log.Debug("no remote service configured, using local cache")
	case !h.warned:
		h.warned = true
		h.log.Warn("remote service unavailable, using local cache", "error", cause)
	default:
		h.log.Debug("remote probe failed", "error", cause)
	}
	h.setMode(ModeLocal)
	h.reloadLocal(ctx)
}

func (h *Handle) reloadLocal(ctx context.Context) {
	h.stale.Store(false)
	items := h.local.GetAll(ctx)

	h.mu.Lock()
	h.items = items
	h.err = nil
	h.mu.Unlock()
}

// afterWrite re-reads the backing store the write went to.
func (h *Handle) afterWrite(ctx context.Context) {
	if h.Mode() == ModeRemote {
		h.probe(ctx, true)
		return
	}
	h.reloadLocal(ctx)
}

func (h *Handle) view() []record.Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]record.Record, len(h.items))
	copy(out, h.items)
	return out
}

func (h *Handle) setMode(m Mode) {
	h.mu.Lock()
	h.mode = m
	h.mu.Unlock()
}

func (h *Handle) setErr(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

func (h *Handle) fail(err error) {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		h.log.Debug("payload rejected", "error", err)
	} else {
		h.log.Warn("collection operation failed", "error", err)
	}
	h.setErr(err)
}

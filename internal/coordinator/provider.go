package coordinator

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/mops/internal/bus"
	"github.com/roach88/mops/internal/localcache"
	"github.com/roach88/mops/internal/record"
	"github.com/roach88/mops/internal/schema"
	"github.com/roach88/mops/internal/store"
)

// Remote is the part of the Remote Service a handle calls.
// *remote.Client implements it.
type Remote interface {
	// List may share a request already in flight for key.
	List(ctx context.Context, key string) ([]record.Record, error)
	// ListFresh always issues its own request.
	ListFresh(ctx context.Context, key string) ([]record.Record, error)
	Create(ctx context.Context, key string, fields map[string]any) (record.Record, error)
	Update(ctx context.Context, key string, id record.ID, partial map[string]any) (record.Record, error)
	Delete(ctx context.Context, key string, id record.ID) error
}

// Provider opens handles. Construct one per process.
type Provider struct {
	cache   *localcache.Cache
	remote  Remote
	schemas *schema.Registry
	log     *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithRemote sets the remote service. Without one every probe fails and
// handles run in Local mode.
func WithRemote(r Remote) Option {
	return func(p *Provider) { p.remote = r }
}

// WithSchemas enables payload validation on Create and Update.
func WithSchemas(r *schema.Registry) Option {
	return func(p *Provider) { p.schemas = r }
}

// WithLogger sets the logger handles report demotions to.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// NewProvider creates a provider over the local cache c.
func NewProvider(c *localcache.Cache, opts ...Option) *Provider {
	p := &Provider{cache: c, log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open returns a new handle on collection key in the Uninitialized state.
// The handle must be closed to release its change subscription.
func (p *Provider) Open(key string) (*Handle, error) {
	local, err := store.New(p.cache, key)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		key:     local.Key(),
		remote:  p.remote,
		local:   local,
		schemas: p.schemas,
		bus:     p.cache.Bus(),
		log:     p.log.With("collection", local.Key()),
	}
	if !p.schemas.Has(h.key) {
		h.log.Debug("no schema registered, fields are not validated")
	}
	h.unsubscribe = h.bus.Subscribe(h.key, func(bus.Event) {
		h.stale.Store(true)
	})
	return h, nil
}

// Status is a one-line summary of a freshly probed collection.
type Status struct {
	Key   string `json:"key"`
	Mode  string `json:"mode"`
	Count int    `json:"count"`
}

// Status probes every key concurrently with a fresh handle each and reports
// where each collection is served from. It fails only on an invalid key.
func (p *Provider) Status(ctx context.Context, keys ...string) ([]Status, error) {
	out := make([]Status, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			h, err := p.Open(key)
			if err != nil {
				return err
			}
			defer h.Close()

			h.Refresh(gctx)
			out[i] = Status{Key: h.Key(), Mode: h.Mode().String(), Count: len(h.Items(gctx))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

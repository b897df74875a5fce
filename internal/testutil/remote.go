package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/roach88/mops/internal/localcache"
	"github.com/roach88/mops/internal/remote"
)

// FlakyRemote is a Remote Service on a loopback port that can be taken
// down and brought back mid-test. While down every request fails with
// 503 Service Unavailable.
type FlakyRemote struct {
	Server *httptest.Server
	Cache  *localcache.Cache

	down       atomic.Bool
	failWrites atomic.Bool
	requests   atomic.Int64
	hold       atomic.Pointer[readGate]
	t          testing.TB
}

type readGate struct {
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *readGate) open() {
	g.once.Do(func() { close(g.release) })
}

// NewFlakyRemote starts a remote service backed by its own local cache.
// The server is shut down when the test ends.
func NewFlakyRemote(t testing.TB) *FlakyRemote {
	t.Helper()
	f := &FlakyRemote{Cache: OpenCache(t), t: t}
	api := remote.NewServer(f.Cache)
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if r.Method == http.MethodGet {
			if g := f.hold.Swap(nil); g != nil {
				close(g.arrived)
				<-g.release
			}
		}
		if f.down.Load() || (f.failWrites.Load() && r.Method != http.MethodGet) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		api.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL to hand to remote.NewClient.
func (f *FlakyRemote) URL() string {
	return f.Server.URL
}

// Client returns a client for this server.
func (f *FlakyRemote) Client(opts ...remote.Option) *remote.Client {
	return remote.NewClient(f.URL(), opts...)
}

// SetDown makes every subsequent request fail (true) or succeed (false).
func (f *FlakyRemote) SetDown(down bool) {
	f.down.Store(down)
}

// SetFailWrites makes every non-GET request fail while reads still work.
func (f *FlakyRemote) SetFailWrites(fail bool) {
	f.failWrites.Store(fail)
}

// HoldNextRead parks the next GET at the server. arrived is closed once
// that request is parked; it is answered, with whatever the cache holds at
// that moment, after release is called. release is idempotent and runs at
// cleanup if the test never calls it.
func (f *FlakyRemote) HoldNextRead() (arrived <-chan struct{}, release func()) {
	g := &readGate{arrived: make(chan struct{}), release: make(chan struct{})}
	f.hold.Store(g)
	f.t.Cleanup(g.open)
	return g.arrived, g.open
}

// Requests returns how many requests reached the server, including failed
// ones.
func (f *FlakyRemote) Requests() int64 {
	return f.requests.Load()
}

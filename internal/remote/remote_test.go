package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mops/internal/bus"
	"github.com/roach88/mops/internal/localcache"
	"github.com/roach88/mops/internal/record"
)

// startTestServer runs the reference service over a temp cache.
func startTestServer(t *testing.T) (*httptest.Server, *localcache.Cache) {
	t.Helper()
	c, err := localcache.Open(filepath.Join(t.TempDir(), "remote.db"), bus.New())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	srv := httptest.NewServer(NewServer(c))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestClient_CRUD(t *testing.T) {
	srv, _ := startTestServer(t)
	client := NewClient(srv.URL)
	ctx := context.Background()

	list, err := client.List(ctx, "keywords")
	require.NoError(t, err)
	assert.Empty(t, list)

	seo, err := client.Create(ctx, "keywords", map[string]any{"keyword": "seo"})
	require.NoError(t, err)
	assert.Equal(t, record.IntID(1), seo.ID)

	ppc, err := client.Create(ctx, "keywords", map[string]any{"keyword": "ppc"})
	require.NoError(t, err)
	assert.Equal(t, record.IntID(2), ppc.ID)

	updated, err := client.Update(ctx, "keywords", seo.ID, map[string]any{"volume": 10})
	require.NoError(t, err)
	assert.Equal(t, "seo", updated.Fields["keyword"])
	assert.EqualValues(t, 10, updated.Fields["volume"])

	list, err = client.List(ctx, "keywords")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, record.IntID(2), list[0].ID)

	require.NoError(t, client.Delete(ctx, "keywords", ppc.ID))
	list, err = client.List(ctx, "keywords")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, record.IntID(1), list[0].ID)
}

func TestClient_NonCanonicalStringIDRoundTrip(t *testing.T) {
	srv, c := startTestServer(t)
	client := NewClient(srv.URL)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, "keywords", []record.Record{
		record.New(record.StringID("007"), map[string]any{"keyword": "bond"}),
		record.New(record.IntID(7), map[string]any{"keyword": "seven"}),
	}))

	updated, err := client.Update(ctx, "keywords", record.StringID("007"), map[string]any{"keyword": "james"})
	require.NoError(t, err)
	assert.Equal(t, record.StringID("007"), updated.ID)
	assert.Equal(t, "james", updated.Fields["keyword"])

	require.NoError(t, client.Delete(ctx, "keywords", record.StringID("007")))

	list, err := client.List(ctx, "keywords")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, record.IntID(7), list[0].ID)
	assert.Equal(t, "seven", list[0].Fields["keyword"])
}

func TestClient_NotFound(t *testing.T) {
	srv, _ := startTestServer(t)
	client := NewClient(srv.URL)
	ctx := context.Background()

	_, err := client.Update(ctx, "users", record.IntID(9), map[string]any{"name": "x"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	err = client.Delete(ctx, "users", record.IntID(9))
	assert.True(t, IsNotFound(err))
}

func TestClient_InvalidKeyIsBadRequest(t *testing.T) {
	srv, _ := startTestServer(t)
	client := NewClient(srv.URL)

	_, err := client.List(context.Background(), "Bad Key")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Error(), "invalid collection key")
}

func TestClient_NoBaseURL(t *testing.T) {
	client := NewClient("")
	_, err := client.List(context.Background(), "users")
	assert.ErrorIs(t, err, ErrNoRemote)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, WithTimeout(time.Second))
	_, err := client.List(context.Background(), "users")
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se), "transport failure is not a status error")
}

func TestClient_ServerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).List(context.Background(), "users")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, "boom", se.Body)
	assert.Equal(t, http.MethodGet, se.Method)
	assert.Equal(t, "/collections/users", se.Path)
}

func TestClient_SendsRequestID(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get(RequestIDHeader))
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithRequestIDs(func() string { return "req-1" }))
	_, err := client.List(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "req-1", got.Load())
}

func TestServer_EchoesRequestID(t *testing.T) {
	srv, _ := startTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36, "server assigns a UUID when none is sent")
}

func TestClient_ListCollapsesConcurrentCalls(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(`[{"id":1,"name":"a"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	var wg sync.WaitGroup
	results := make([][]record.Record, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			list, err := client.List(context.Background(), "users")
			assert.NoError(t, err)
			results[i] = list
		}(i)
	}

	// wait for the first request to arrive, then let it finish
	require.Eventually(t, func() bool { return hits.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, hits.Load(), int32(5))
	for _, list := range results {
		require.Len(t, list, 1)
		assert.Equal(t, "a", list[0].Fields["name"])
	}

	// results are independent copies
	results[0][0].Fields["name"] = "mutated"
	assert.Equal(t, "a", results[1][0].Fields["name"])
}

func TestClient_ListFreshIssuesItsOwnRequest(t *testing.T) {
	var hits atomic.Int32
	arrived := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(arrived)
			<-release
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"id":1,"name":"new"}]`))
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(srv.URL)
	go client.List(context.Background(), "users")
	<-arrived

	list, err := client.ListFresh(context.Background(), "users")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].Fields["name"])
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_ListCancelLeavesSharedCallRunning(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(`[{"id":1,"name":"a"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := client.List(ctx, "users")
		first <- err
	}()
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, time.Millisecond)

	second := make(chan []record.Record, 1)
	go func() {
		list, err := client.List(context.Background(), "users")
		assert.NoError(t, err)
		second <- list
	}()

	cancel()
	require.ErrorIs(t, <-first, context.Canceled)

	close(release)
	list := <-second
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].Fields["name"])
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithRateLimit(0.001, 1))
	_, err := client.List(context.Background(), "users")
	require.NoError(t, err, "first call uses the burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Create(ctx, "users", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestServer_CreateRejectsNonObject(t *testing.T) {
	srv, _ := startTestServer(t)

	resp, err := http.Post(srv.URL+"/collections/users", "application/json", strings.NewReader(`[1,2]`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_GetOne(t *testing.T) {
	srv, _ := startTestServer(t)
	client := NewClient(srv.URL)
	_, err := client.Create(context.Background(), "users", map[string]any{"name": "ana"})
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/collections/users/1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/collections/users/2")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

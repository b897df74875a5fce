package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mops/internal/bus"
	"github.com/roach88/mops/internal/localcache"
)

// Epoch is the first reading of the clock OpenCache installs.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// OpenCache opens a fresh local cache in a temp directory with its own bus
// and a step clock. The cache is closed when the test ends.
func OpenCache(t testing.TB) *localcache.Cache {
	t.Helper()
	return OpenCacheAt(t, filepath.Join(t.TempDir(), "mops.db"), bus.New())
}

// OpenCacheAt opens the cache file at path on bus b. Two caches opened on
// the same path see each other's writes, which is how tests simulate a
// restart.
func OpenCacheAt(t testing.TB, path string, b *bus.Bus) *localcache.Cache {
	t.Helper()
	clock := NewStepClock(Epoch, time.Second)
	c, err := localcache.Open(path, b, localcache.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

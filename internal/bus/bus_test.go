package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_KeyScoped(t *testing.T) {
	b := New()

	var got []Event
	unsubscribe := b.Subscribe("keywords", func(ev Event) { got = append(got, ev) })
	defer unsubscribe()

	b.Publish("users")
	b.Publish("keywords")

	require.Len(t, got, 1)
	assert.Equal(t, "keywords", got[0].Key)
	assert.Equal(t, int64(2), got[0].Seq)
}

func TestSubscribeAll_SeesEveryKey(t *testing.T) {
	b := New()

	var keys []string
	unsubscribe := b.SubscribeAll(func(ev Event) { keys = append(keys, ev.Key) })
	defer unsubscribe()

	b.Publish("users")
	b.Publish("assets")

	assert.Equal(t, []string{"users", "assets"}, keys)
}

func liveSubscriptions(b *Bus) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	b := New()

	count := 0
	unsubscribe := b.Subscribe("users", func(Event) { count++ })
	b.Publish("users")
	unsubscribe()
	unsubscribe() // idempotent
	b.Publish("users")

	assert.Equal(t, 1, count)
	assert.Zero(t, liveSubscriptions(b))
}

func TestPublish_NoReplay(t *testing.T) {
	b := New()
	b.Publish("users")

	count := 0
	defer b.Subscribe("users", func(Event) { count++ })()
	assert.Equal(t, 0, count, "late subscriber must not see earlier events")
}

func TestPublish_SeqMonotonic(t *testing.T) {
	b := New()
	var last int64
	for i := 0; i < 10; i++ {
		seq := b.Publish("k")
		assert.Greater(t, seq, last)
		last = seq
	}
	assert.Equal(t, int64(10), last)
}

func TestHandler_CanUnsubscribeDuringDelivery(t *testing.T) {
	b := New()

	var unsubscribe func()
	calls := 0
	unsubscribe = b.Subscribe("users", func(Event) {
		calls++
		unsubscribe()
	})

	b.Publish("users")
	b.Publish("users")
	assert.Equal(t, 1, calls)
}

func TestPublish_Concurrent(t *testing.T) {
	b := New()

	var mu sync.Mutex
	seen := map[int64]bool{}
	defer b.SubscribeAll(func(ev Event) {
		mu.Lock()
		seen[ev.Seq] = true
		mu.Unlock()
	})()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				b.Publish("k")
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 200)
}

func TestSubscribe_EmptyKeyPanics(t *testing.T) {
	b := New()
	assert.Panics(t, func() { b.Subscribe("", func(Event) {}) })
}

func TestWatch_DeliversAndCloses(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := b.Watch(ctx, "assets")
	b.Publish("assets")

	select {
	case ev := <-ch:
		assert.Equal(t, "assets", ev.Key)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWatch_Coalesces(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Watch(ctx, "assets")
	b.Publish("assets")
	b.Publish("assets")
	last := b.Publish("assets")

	ev := <-ch
	assert.Equal(t, last, ev.Seq, "reader should see newest event")

	select {
	case <-ch:
		t.Fatal("expected no further buffered events")
	default:
	}
}

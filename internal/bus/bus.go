package bus

import (
	"context"
	"sync"
)

// Event announces that the snapshot of collection Key changed.
// Seq orders events published on the same Bus.
type Event struct {
	Key string
	Seq int64
}

// Handler receives events. It runs on the publisher's goroutine.
type Handler func(Event)

type subscription struct {
	key     string // empty means every key
	handler Handler
}

// Bus fans change events out to subscribers.
// The zero value is not usable; call New.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]subscription
	nextID uint64
	clock  clock
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[uint64]subscription)}
}

// Publish notifies every subscriber of key and every global subscriber.
// Returns the sequence number assigned to the event.
func (b *Bus) Publish(key string) int64 {
	ev := Event{Key: key, Seq: b.clock.next()}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.key == "" || s.key == key {
			handlers = append(handlers, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	return ev.Seq
}

// Subscribe registers h for events on key.
// The returned function removes the subscription; calling it more than once
// is harmless.
func (b *Bus) Subscribe(key string, h Handler) (unsubscribe func()) {
	if key == "" {
		panic("bus: Subscribe with empty key, use SubscribeAll")
	}
	return b.add(key, h)
}

// SubscribeAll registers h for events on every key.
func (b *Bus) SubscribeAll(h Handler) (unsubscribe func()) {
	return b.add("", h)
}

func (b *Bus) add(key string, h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = subscription{key: key, handler: h}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Watch delivers events for key on a channel until ctx is done.
// The channel has a one-slot buffer and coalesces bursts: a reader that falls
// behind sees the newest event, not every event. The channel is closed after
// ctx ends.
func (b *Bus) Watch(ctx context.Context, key string) <-chan Event {
	ch := make(chan Event, 1)
	var mu sync.Mutex
	closed := false

	unsubscribe := b.Subscribe(key, func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- ev:
		default:
			// Replace the pending event with the newer one.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	})

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}

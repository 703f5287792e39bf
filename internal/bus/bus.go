// Package bus provides a typed publish/subscribe event bus. Components
// publish values of a concrete event type; subscribers receive only
// events of the type they subscribed to. The bus is nil-safe: calling
// Publish on a nil *Bus is a no-op, so components do not need guard
// checks before they have one wired up.
package bus

import (
	"reflect"
	"sync"
)

// subscription wraps one subscriber's delivery and teardown. send is a
// closure over the subscriber's concrete channel type; it type-asserts
// and forwards, so the map below can hold subscribers of every event
// type without itself being generic.
type subscription struct {
	send  func(event any)
	close func()
}

// Bus is a non-blocking broadcast event bus. Subscribers receive events
// on buffered channels; slow subscribers miss events rather than
// blocking publishers. Delivery is fire-and-forget: an event with no
// subscribers of its type is dropped without error.
type Bus struct {
	mu   sync.RWMutex
	subs map[reflect.Type]map[uint64]subscription
	next uint64
}

// New creates a new event bus ready for use.
func New() *Bus {
	return &Bus{subs: make(map[reflect.Type]map[uint64]subscription)}
}

// Publish delivers event to every current subscriber of type T.
// Non-blocking: a subscriber whose channel is full misses this
// delivery rather than stalling the publisher. Safe to call on a nil
// receiver (no-op). Calls from a single goroutine are delivered to
// each subscriber in the order Publish was called.
func Publish[T any](b *Bus, event T) {
	if b == nil {
		return
	}
	t := reflect.TypeOf(event)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs[t] {
		s.send(event)
	}
}

// Subscribe returns a channel that receives events of type T, and an
// unsubscribe function the caller must eventually call to release the
// subscription and close the channel. Calling unsubscribe more than
// once is safe.
func Subscribe[T any](b *Bus, bufSize int) (<-chan T, func()) {
	ch := make(chan T, bufSize)
	t := reflect.TypeOf((*T)(nil)).Elem()

	sub := subscription{
		send: func(event any) {
			v, ok := event.(T)
			if !ok {
				return
			}
			select {
			case ch <- v:
			default:
				// subscriber is full; drop this delivery
			}
		},
	}

	b.mu.Lock()
	id := b.next
	b.next++
	if b.subs[t] == nil {
		b.subs[t] = make(map[uint64]subscription)
	}
	b.subs[t][id] = sub
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[t], id)
			close(ch)
			b.mu.Unlock()
		})
	}

	return ch, unsubscribe
}

// SubscriberCount reports how many live subscriptions exist for type T.
func SubscriberCount[T any](b *Bus) int {
	if b == nil {
		return 0
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[t])
}

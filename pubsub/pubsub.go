// Package pubsub is a keyed, synchronous fan-out bus.
//
// Each key owns an ordered listener list. Publish delivers in subscription
// order on the caller's goroutine and never queues. Go funcs are not
// comparable, so Subscribe hands back a *Subscription that identifies the
// listener and must be released with Unsubscribe.
package pubsub

import (
	"sync"
	"sync/atomic"
)

// Bus fans values out to listeners registered per key. The zero value is not
// usable; construct with New.
type Bus[K comparable, V any] struct {
	mu   sync.Mutex
	subs map[K][]*Subscription[K, V]
}

// Subscription is the handle returned by Subscribe and Once.
type Subscription[K comparable, V any] struct {
	key  K
	fn   func(V)
	once bool
	done atomic.Bool
}

// Key returns the key this subscription listens on.
func (s *Subscription[K, V]) Key() K { return s.key }

func New[K comparable, V any]() *Bus[K, V] {
	return &Bus[K, V]{subs: make(map[K][]*Subscription[K, V])}
}

// Subscribe appends fn to key's listeners. Duplicates are allowed.
func (b *Bus[K, V]) Subscribe(key K, fn func(V)) *Subscription[K, V] {
	s := &Subscription[K, V]{key: key, fn: fn}
	b.add(s)
	return s
}

// Once subscribes fn for a single delivery. The subscription is removed
// before fn runs; concurrent publishes deliver to it at most once.
func (b *Bus[K, V]) Once(key K, fn func(V)) *Subscription[K, V] {
	s := &Subscription[K, V]{key: key, fn: fn, once: true}
	b.add(s)
	return s
}

func (b *Bus[K, V]) add(s *Subscription[K, V]) {
	b.mu.Lock()
	b.subs[s.key] = append(b.subs[s.key], s)
	b.mu.Unlock()
}

// Unsubscribe removes s. It reports whether s was still registered.
// A key whose list becomes empty is dropped from the map.
func (b *Bus[K, V]) Unsubscribe(s *Subscription[K, V]) bool {
	if s == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[s.key]
	for i, cur := range list {
		if cur != s {
			continue
		}
		// copy so in-flight snapshots keep their view
		next := make([]*Subscription[K, V], 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(b.subs, s.key)
		} else {
			b.subs[s.key] = next
		}
		return true
	}
	return false
}

// Publish invokes every listener of key with v, in subscription order.
// Listeners may subscribe or unsubscribe while being dispatched.
func (b *Bus[K, V]) Publish(key K, v V) {
	b.mu.Lock()
	snapshot := b.subs[key]
	b.mu.Unlock()

	for _, s := range snapshot {
		if s.once {
			if !s.done.CompareAndSwap(false, true) {
				continue
			}
			b.Unsubscribe(s)
		}
		s.fn(v)
	}
}

// Count returns the number of listeners on key.
func (b *Bus[K, V]) Count(key K) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[key])
}

// Len returns the number of keys with at least one listener.
func (b *Bus[K, V]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

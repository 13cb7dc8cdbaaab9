// Package keylock provides per-key mutual exclusion with FIFO hand-off.
//
// Each key keeps a chain of tickets: a new holder waits for the ticket of the
// holder queued right before it, so contenders run strictly in arrival order.
// Entries are dropped once nobody holds or waits for a key.
//
// Locks are not reentrant. A holder that acquires its own key again blocks
// forever (or until its context ends).
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	tail chan struct{} // closed when the most recent ticket is released
	refs int
}

// Locks is a set of per-key locks. The zero value is not usable; construct with New.
type Locks[K comparable] struct {
	mu sync.Mutex
	m  map[K]*entry
}

func New[K comparable]() *Locks[K] {
	return &Locks[K]{m: make(map[K]*entry)}
}

// Acquire blocks until the caller holds key. The returned release must be
// called exactly once. If ctx ends while waiting, Acquire returns ctx.Err()
// and its queue slot is handed on as soon as the predecessor releases.
func (l *Locks[K]) Acquire(ctx context.Context, key K) (func(), error) {
	mine := make(chan struct{})

	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &entry{}
		l.m[key] = e
	}
	prev := e.tail
	e.tail = mine
	e.refs++
	l.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(mine)
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.m, key)
			}
			l.mu.Unlock()
		})
	}

	if prev == nil {
		return release, nil
	}
	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		// keep the chain intact for whoever queued behind us
		go func() {
			<-prev
			release()
		}()
		return nil, ctx.Err()
	}
}

// Len returns the number of keys currently held or awaited.
func (l *Locks[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// Busy reports whether key is currently held or awaited.
func (l *Locks[K]) Busy(key K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.m[key]
	return ok
}

// Do runs fn while holding key and returns its result. Errors and panics in fn
// release the lock and surface to this caller only.
func Do[K comparable, T any](ctx context.Context, l *Locks[K], key K, fn func(context.Context) (T, error)) (T, error) {
	release, err := l.Acquire(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	defer release()
	return fn(ctx)
}

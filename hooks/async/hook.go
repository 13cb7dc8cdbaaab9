// Package asynchook moves hook delivery off the caller's goroutine. Events
// are queued to a fixed worker pool and dropped when the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/swrcache"
)

type Hooks struct {
	inner   swrcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(inner swrcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains the queue and stops the workers. Hooks must not be called
// after Close.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped returns how many events were discarded on a full queue.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) StorageError(k, op string, err error) {
	h.try(func() { h.inner.StorageError(k, op, err) })
}
func (h *Hooks) StorageRejected(k string)         { h.try(func() { h.inner.StorageRejected(k) }) }
func (h *Hooks) SelfHeal(k, r string)             { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) FetchFailed(k string, err error)  { h.try(func() { h.inner.FetchFailed(k, err) }) }
func (h *Hooks) FetchAborted(k string, err error) { h.try(func() { h.inner.FetchAborted(k, err) }) }
func (h *Hooks) CooldownSkip(k string)            { h.try(func() { h.inner.CooldownSkip(k) }) }
func (h *Hooks) Evicted(k, r string)              { h.try(func() { h.inner.Evicted(k, r) }) }
func (h *Hooks) OptimisticRollback(k, op string, err error) {
	h.try(func() { h.inner.OptimisticRollback(k, op, err) })
}

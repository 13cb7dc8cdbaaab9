package swrcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/swrcache/storage"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock { return &mockClock{now: time.Unix(1_700_000_000, 0)} }

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memStorage is an in-memory storage.Storage; async only changes what
// Async reports.
type memStorage struct {
	mu     sync.Mutex
	m      map[string][]byte
	ttl    map[string]time.Duration
	async  bool
	setErr error
	// ctxAware rejects writes on a finished ctx like a network client does
	ctxAware bool
	sets   int
}

var _ storage.Storage = (*memStorage)(nil)

func newMemStorage(async bool) *memStorage {
	return &memStorage{m: make(map[string][]byte), ttl: make(map[string]time.Duration), async: async}
}

func (s *memStorage) Has(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[key]
	return ok, nil
}

func (s *memStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *memStorage) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if s.ctxAware && ctx.Err() != nil {
		return false, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return false, s.setErr
	}
	s.sets++
	s.m[key] = append([]byte(nil), value...)
	s.ttl[key] = ttl
	return true, nil
}

func (s *memStorage) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	delete(s.ttl, key)
	return nil
}

func (s *memStorage) Async() bool                   { return s.async }
func (s *memStorage) Close(_ context.Context) error { return nil }

func (s *memStorage) raw(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *memStorage) put(key string, v []byte) {
	s.mu.Lock()
	s.m[key] = v
	s.mu.Unlock()
}

func (s *memStorage) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

type event struct {
	name, key, arg string
	err            error
}

type recHooks struct {
	NopHooks
	mu     sync.Mutex
	events []event
}

func (h *recHooks) add(e event) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *recHooks) SelfHeal(k, r string) { h.add(event{name: "self_heal", key: k, arg: r}) }
func (h *recHooks) StorageError(k, op string, err error) {
	h.add(event{name: "storage_error", key: k, arg: op, err: err})
}
func (h *recHooks) StorageRejected(k string)         { h.add(event{name: "storage_rejected", key: k}) }
func (h *recHooks) FetchFailed(k string, err error)  { h.add(event{name: "fetch_failed", key: k, err: err}) }
func (h *recHooks) FetchAborted(k string, err error) { h.add(event{name: "fetch_aborted", key: k, err: err}) }
func (h *recHooks) CooldownSkip(k string)            { h.add(event{name: "cooldown_skip", key: k}) }
func (h *recHooks) Evicted(k, r string)              { h.add(event{name: "evicted", key: k, arg: r}) }
func (h *recHooks) OptimisticRollback(k, op string, err error) {
	h.add(event{name: "rollback", key: k, arg: op, err: err})
}

func (h *recHooks) count(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e.name == name {
			n++
		}
	}
	return n
}

func (h *recHooks) last(name string) (event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.events) - 1; i >= 0; i-- {
		if h.events[i].name == name {
			return h.events[i], true
		}
	}
	return event{}, false
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var errBoom = errors.New("boom")

func newTestCore(t *testing.T, clk *mockClock, hooks Hooks, defaults Params) *Core {
	t.Helper()
	c, err := New(Options{
		Defaults:        defaults,
		Namespace:       "test",
		Hooks:           hooks,
		Clock:           clk,
		CleanupInterval: -1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

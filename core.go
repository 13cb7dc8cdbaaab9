package swrcache

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/swrcache/internal/keys"
	"github.com/unkn0wn-root/swrcache/internal/wire"
	"github.com/unkn0wn-root/swrcache/keylock"
	"github.com/unkn0wn-root/swrcache/pubsub"
	"github.com/unkn0wn-root/swrcache/timing"
)

// Subscription identifies a listener registered with On or Once.
type Subscription = pubsub.Subscription[string, *State]

type slot struct {
	state     *State
	confirmed *State // last state that was neither optimistic nor in flight
}

// Core owns the in-memory states, the per-key locks and the change bus.
// All methods are safe for concurrent use. Writes to a key are serialized by
// that key's lock and published in the order they complete; reads never wait
// for the lock.
type Core struct {
	defaults Params
	ns       string
	log      Logger
	hooks    Hooks
	clock    timing.Clock
	cost     SetCostFunc

	mu    sync.RWMutex
	mem   map[string]*slot
	locks *keylock.Locks[string]
	bus   *pubsub.Bus[string, *State]

	sweepInterval time.Duration
	stopCh        chan struct{}
	closeOnce     sync.Once
	wg            sync.WaitGroup
}

func newCore(opts Options) *Core {
	c := &Core{
		defaults: defaultParams().merge(opts.Defaults),
		ns:       opts.Namespace,
		mem:      make(map[string]*slot),
		locks:    keylock.New[string](),
		bus:      pubsub.New[string, *State](),
		stopCh:   make(chan struct{}),
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.clock = coalesce[timing.Clock](opts.Clock, timing.System{})
	c.sweepInterval = coalesce(opts.CleanupInterval, defaultCleanupInterval)

	if opts.ComputeSetCost != nil {
		c.cost = opts.ComputeSetCost
	} else {
		c.cost = func(string, []byte) int64 { return 1 }
	}

	if c.sweepInterval > 0 {
		c.startJanitor()
	}
	return c
}

// Params returns the core defaults with p layered on top.
func (c *Core) Params(p Params) Params { return c.defaults.merge(p) }

// Key derives the cache key for k with the resolved key codec.
func (c *Core) Key(k any, p Params) (string, error) {
	return keys.Derive(k, c.Params(p).KeyCodec)
}

// Now returns the core clock's current time.
func (c *Core) Now() time.Time { return c.clock.Now() }

// Get returns the state for key. Memory wins; on a miss the configured
// storage is consulted and a valid entry is kept in memory. Expired states
// read as absent. (nil, nil) means there is no state.
func (c *Core) Get(ctx context.Context, key string, p Params) (*State, error) {
	if st, ok := c.peek(key); ok {
		return c.fresh(st), nil
	}
	p = c.Params(p)
	if p.Storage == nil {
		return nil, nil
	}
	return c.load(ctx, key, p)
}

// GetSync is Get for callers that cannot wait. When the state is not in
// memory and the storage is asynchronous it returns ErrPending, which is
// distinct from (nil, nil): resolved, nothing there.
func (c *Core) GetSync(key string, p Params) (*State, error) {
	if st, ok := c.peek(key); ok {
		return c.fresh(st), nil
	}
	p = c.Params(p)
	if p.Storage == nil {
		return nil, nil
	}
	if p.Storage.Async() {
		return nil, ErrPending
	}
	return c.load(context.Background(), key, p)
}

// Set overwrites the state for key, persists it and publishes it.
// On a storage failure the in-memory state stays authoritative, listeners
// are still notified, and a *StorageError is returned.
func (c *Core) Set(ctx context.Context, key string, st *State, p Params) error {
	p = c.Params(p)
	return c.Lock(ctx, key, func(ctx context.Context) error {
		return c.setLocked(ctx, key, st, p)
	})
}

// Delete drops key from memory and storage and publishes nil.
func (c *Core) Delete(ctx context.Context, key string, p Params) error {
	p = c.Params(p)
	return c.Lock(ctx, key, func(ctx context.Context) error {
		return c.setLocked(ctx, key, nil, p)
	})
}

// Mutate runs fn on the current state under the key's lock and writes its
// result. fn receives a copy (nil when absent); returning nil leaves the
// state untouched. Mutate returns the state in effect afterwards.
func (c *Core) Mutate(ctx context.Context, key string, fn func(*State) *State, p Params) (*State, error) {
	p = c.Params(p)
	return Locked(ctx, c, key, func(ctx context.Context) (*State, error) {
		cur, err := c.Get(ctx, key, p)
		if err != nil {
			return nil, err
		}
		var in *State
		if cur != nil {
			in = cur.clone()
		}
		next := fn(in)
		if next == nil {
			return cur, nil
		}
		return next, c.setLocked(ctx, key, next, p)
	})
}

// Normalize runs the configured normalizer over root's data and returns the
// data to store under root's key. With shallow set, normalizers must not
// rewrite nested entities.
func (c *Core) Normalize(ctx context.Context, shallow bool, root *State, p Params) (any, error) {
	if root == nil || root.Data == nil {
		return nil, nil
	}
	p = c.Params(p)
	if p.Normalizer == nil {
		return root.Data, nil
	}
	return p.Normalizer(ctx, root.Data, &More{Shallow: shallow, Root: root})
}

// ShouldCooldown reports whether st is still cooling down, meaning an
// unforced fetch would be skipped.
func (c *Core) ShouldCooldown(st *State) bool {
	if st == nil {
		return false
	}
	after, ok := timing.IsAfter(st.Cooldown, c.clock.Now())
	return ok && after
}

// Lock runs fn while holding key's lock. Locks are not reentrant: fn must not
// call Set, Delete, Mutate or Lock for the same key.
func (c *Core) Lock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	_, err := keylock.Do(ctx, c.locks, key, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Locked is Lock for callbacks that return a value.
func Locked[T any](ctx context.Context, c *Core, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	return keylock.Do(ctx, c.locks, key, fn)
}

// On subscribes fn to every state published for key. nil means deleted.
// Listeners run synchronously while the key's lock is held: they MUST NOT
// write or fetch the same key inline (that deadlocks). Hand such work off to
// a goroutine.
func (c *Core) On(key string, fn func(*State)) *Subscription {
	return c.bus.Subscribe(key, fn)
}

// Once subscribes fn to the next state published for key. The same
// constraint as On applies.
func (c *Core) Once(key string, fn func(*State)) *Subscription {
	return c.bus.Once(key, fn)
}

// Off releases sub. When it was the key's last listener and the state has
// expired, the state is evicted from memory and storage.
func (c *Core) Off(ctx context.Context, sub *Subscription, p Params) error {
	if !c.bus.Unsubscribe(sub) {
		return nil
	}
	key := sub.Key()
	if c.bus.Count(key) > 0 {
		return nil
	}
	if st, ok := c.peek(key); !ok || !st.expired(c.clock.Now()) {
		return nil
	}
	p = c.Params(p)
	return c.Lock(ctx, key, func(ctx context.Context) error {
		st, ok := c.peek(key)
		if !ok || !st.expired(c.clock.Now()) || c.bus.Count(key) > 0 {
			return nil
		}
		c.write(key, nil)
		c.hooks.Evicted(key, "unsubscribed")
		if p.Storage == nil {
			return nil
		}
		if err := p.Storage.Del(ctx, keys.Storage(c.ns, key)); err != nil {
			c.hooks.StorageError(key, "del", err)
			return &StorageError{Op: "del", Key: key, Err: err}
		}
		return nil
	})
}

// Listeners returns the number of listeners on key.
func (c *Core) Listeners(key string) int { return c.bus.Count(key) }

// Close stops the janitor. Storages are owned by the caller and stay open.
func (c *Core) Close(_ context.Context) error {
	c.closeOnce.Do(func() {
		close(c.stopCh)
		c.wg.Wait()
	})
	return nil
}

func (c *Core) peek(key string) (*State, bool) {
	c.mu.RLock()
	s := c.mem[key]
	c.mu.RUnlock()
	if s == nil {
		return nil, false
	}
	return s.state, true
}

func (c *Core) confirmed(key string) *State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s := c.mem[key]; s != nil {
		return s.confirmed
	}
	return nil
}

func (c *Core) fresh(st *State) *State {
	if st.expired(c.clock.Now()) {
		return nil
	}
	return st
}

// write replaces key's memory slot. The caller holds key's lock.
func (c *Core) write(key string, st *State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st == nil {
		delete(c.mem, key)
		return
	}
	s := c.mem[key]
	if s == nil {
		s = &slot{}
		c.mem[key] = s
	}
	s.state = st
	if !st.Optimistic && st.abort == nil {
		s.confirmed = st
	}
}

// fill keeps a state read from storage unless a writer got there first.
func (c *Core) fill(key string, st *State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.mem[key]; ok {
		return
	}
	c.mem[key] = &slot{state: st, confirmed: st}
}

// setLocked writes memory, then storage, then publishes. Optimistic and
// in-flight states stay in memory. The caller holds key's lock.
func (c *Core) setLocked(ctx context.Context, key string, st *State, p Params) error {
	c.write(key, st)
	var err error
	if p.Storage != nil && (st == nil || (!st.Optimistic && st.abort == nil)) {
		err = c.persist(ctx, key, st, p)
	}
	c.bus.Publish(key, st)
	return err
}

func (c *Core) persist(ctx context.Context, key string, st *State, p Params) error {
	sk := keys.Storage(c.ns, key)
	now := c.clock.Now()

	if st == nil || st.expired(now) {
		if err := p.Storage.Del(ctx, sk); err != nil {
			c.hooks.StorageError(key, "del", err)
			c.log.Warn("storage delete failed", Fields{"key": key, "err": err})
			return &StorageError{Op: "del", Key: key, Err: err}
		}
		return nil
	}

	raw, err := encodeState(st, p)
	if err != nil {
		c.hooks.StorageError(key, "encode", err)
		c.log.Error("state encode failed", Fields{"key": key, "err": err})
		return &StorageError{Op: "encode", Key: key, Err: err}
	}
	ok, err := p.Storage.Set(ctx, sk, raw, c.cost(sk, raw), timing.Until(now, st.Expiration))
	if err != nil {
		c.hooks.StorageError(key, "set", err)
		c.log.Warn("storage set failed", Fields{"key": key, "err": err})
		return &StorageError{Op: "set", Key: key, Err: err}
	}
	if !ok {
		c.hooks.StorageRejected(key)
		c.log.Debug("storage set rejected (pressure)", Fields{"key": key})
	}
	return nil
}

// load reads key from storage. Entries that cannot be used are deleted.
func (c *Core) load(ctx context.Context, key string, p Params) (*State, error) {
	sk := keys.Storage(c.ns, key)
	raw, ok, err := p.Storage.Get(ctx, sk)
	if err != nil {
		c.hooks.StorageError(key, "get", err)
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	if !ok {
		return nil, nil
	}

	st, reason := decodeState(raw, p)
	if reason == "" && st.expired(c.clock.Now()) {
		reason = "expired"
	}
	if reason != "" {
		_ = p.Storage.Del(ctx, sk) // self-heal
		c.hooks.SelfHeal(key, reason)
		c.log.Debug("dropped stored state", Fields{"key": key, "reason": reason})
		return nil, nil
	}
	c.fill(key, st)
	return st, nil
}

func encodeState(st *State, p Params) ([]byte, error) {
	r := wire.Record{
		Time:       unixMilli(st.Time),
		Cooldown:   unixMilli(st.Cooldown),
		Expiration: unixMilli(st.Expiration),
	}
	if st.Data != nil {
		b, err := p.Codec.Encode(st.Data)
		if err != nil {
			return nil, err
		}
		r.HasData, r.Payload = true, b
	}
	if st.Err != nil {
		r.HasErr, r.Err = true, st.Err.Error()
	}
	return wire.Encode(r), nil
}

// decodeState returns a non-empty reason when raw is unusable.
func decodeState(raw []byte, p Params) (*State, string) {
	r, err := wire.Decode(raw)
	if err != nil {
		return nil, "corrupt"
	}
	st := &State{
		Time:       fromUnixMilli(r.Time),
		Cooldown:   fromUnixMilli(r.Cooldown),
		Expiration: fromUnixMilli(r.Expiration),
	}
	if r.HasData {
		v, err := p.Codec.Decode(r.Payload)
		if err != nil {
			return nil, "value_decode"
		}
		st.Data = v
	}
	if r.HasErr {
		st.Err = &StoredError{Msg: r.Err}
	}
	return st, ""
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// apply lays o over cur. Data replaces the data and clears the error; a
// failure keeps the data. Unset times are stamped from p.
func (c *Core) apply(cur *State, o outcome, p Params) *State {
	now := c.clock.Now()
	next := cur.clone()
	next.Optimistic = false
	next.Time = coalesceTime(o.times.Time, now)
	next.Cooldown = coalesceTime(o.times.Cooldown, next.Cooldown)
	if o.err != nil {
		next.Err = o.err
		next.Expiration = coalesceTime(o.times.Expiration, next.Expiration)
		return next
	}
	next.Err = nil
	next.Data = o.data
	if cur != nil && cur.Data != nil && o.data != nil && p.Equals(cur.Data, o.data) {
		next.Data = cur.Data
	}
	next.Expiration = coalesceTime(o.times.Expiration, timing.FromDelay(now, p.Expiration))
	return next
}

package swrcache

import (
	"context"

	"github.com/unkn0wn-root/swrcache/internal/keys"
)

// resource holds what Single and Scroll share: a cache key on a core and
// the params its states are written with.
type resource[D any] struct {
	core   *Core
	id     string
	keyErr error
	p      Params
}

func newResource[D any](core *Core, key any, opts ResourceOptions[D]) resource[D] {
	r := resource[D]{core: core, p: core.Params(opts.params())}
	r.id, r.keyErr = keys.Derive(key, r.p.KeyCodec)
	return r
}

// Key returns the cache key, or ErrMissingKey.
func (r *resource[D]) Key() (string, error) { return r.id, r.keyErr }

// Get returns the current state, reading storage when it is not in memory.
func (r *resource[D]) Get(ctx context.Context) (View[D], error) {
	if r.keyErr != nil {
		return View[D]{}, r.keyErr
	}
	st, err := r.core.Get(ctx, r.id, r.p)
	return viewOf[D](st), err
}

// Peek returns the current state without waiting. It returns ErrPending
// when the state can only come from asynchronous storage.
func (r *resource[D]) Peek() (View[D], error) {
	if r.keyErr != nil {
		return View[D]{}, r.keyErr
	}
	st, err := r.core.GetSync(r.id, r.p)
	return viewOf[D](st), err
}

// Mutate edits the state under the key's lock. fn sees the current view;
// returning nil leaves the state as is. A Fail keeps the data and records
// the error.
func (r *resource[D]) Mutate(ctx context.Context, fn func(View[D]) Result[D]) (View[D], error) {
	if r.keyErr != nil {
		return View[D]{}, r.keyErr
	}
	st, err := r.core.Mutate(ctx, r.id, func(cur *State) *State {
		res := fn(viewOf[D](cur))
		if res == nil {
			return nil
		}
		return r.core.apply(cur, res.outcome(), r.p)
	}, r.p)
	return viewOf[D](st), err
}

// Clear deletes the state from memory and storage.
func (r *resource[D]) Clear(ctx context.Context) error {
	if r.keyErr != nil {
		return r.keyErr
	}
	return r.core.Delete(ctx, r.id, r.p)
}

// Abort cancels the fetch in flight, if any.
func (r *resource[D]) Abort() bool {
	if r.keyErr != nil {
		return false
	}
	return r.core.Abort(r.id)
}

// Subscribe calls fn with every state written for the key. Release the
// returned handle with Unsubscribe. fn runs under the key's lock, so it must
// not call Fetch, Update, Mutate or Clear on this resource inline; start a
// goroutine instead.
func (r *resource[D]) Subscribe(fn func(View[D])) (*Subscription, error) {
	if r.keyErr != nil {
		return nil, r.keyErr
	}
	return r.core.On(r.id, func(st *State) { fn(viewOf[D](st)) }), nil
}

// Unsubscribe releases sub. An expired state left without listeners is
// evicted.
func (r *resource[D]) Unsubscribe(ctx context.Context, sub *Subscription) error {
	return r.core.Off(ctx, sub, r.p)
}

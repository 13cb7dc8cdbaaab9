package swrcache

import (
	"context"

	"github.com/google/uuid"
)

// Updater drives an optimistic update. It calls yield with every provisional
// value, which is shown to subscribers at once, and returns the fetcher that
// confirms the update (nil falls back to the resource fetcher). A yield
// error must be returned as is.
type Updater[K, D any] func(ctx context.Context, prev View[D], yield func(Result[D]) error) (Fetcher[K, D], error)

// Single coordinates one entity: fetch, refetch, optimistic update and
// nested entity writes.
type Single[K, D any] struct {
	resource[D]
	key     K
	fetcher Fetcher[K, D]
}

// NewSingle binds key on core. A nil fetcher is allowed for resources that
// are only written by hand or through normalization.
func NewSingle[K, D any](core *Core, key K, fetcher Fetcher[K, D], opts ResourceOptions[D]) *Single[K, D] {
	return &Single[K, D]{
		resource: newResource[D](core, key, opts),
		key:      key,
		fetcher:  fetcher,
	}
}

// Fetch loads the entity unless it is cooling down, in which case the
// cached state is returned unchanged. A failed fetch is reported in the
// view's Err next to the last good data.
func (s *Single[K, D]) Fetch(ctx context.Context) (View[D], error) {
	return s.run(ctx, s.fetcher, false, false, Request{})
}

// Refetch is Fetch without the cooldown gate.
func (s *Single[K, D]) Refetch(ctx context.Context) (View[D], error) {
	return s.run(ctx, s.fetcher, true, false, Request{})
}

func (s *Single[K, D]) run(ctx context.Context, f Fetcher[K, D], force, strict bool, req Request) (View[D], error) {
	if s.keyErr != nil {
		return View[D]{}, s.keyErr
	}
	if f == nil {
		return View[D]{}, ErrMissingFetcher
	}
	st, err := s.core.fetch(ctx, fetchJob{
		key:    s.id,
		p:      s.p,
		force:  force,
		strict: strict,
		plan: func(*State) (func(context.Context) outcome, bool) {
			return func(ctx context.Context) outcome {
				r, err := f(ctx, s.key, req)
				return outcomeOf(r, err)
			}, true
		},
	})
	return viewOf[D](st), err
}

// Update applies an optimistic update. Every value the updater yields is
// written as Optimistic; the confirming fetch then runs with Reload set and
// replaces it. If the updater or the fetch fails, the last confirmed state
// is put back and the error is returned.
func (s *Single[K, D]) Update(ctx context.Context, up Updater[K, D]) (View[D], error) {
	if s.keyErr != nil {
		return View[D]{}, s.keyErr
	}
	op := uuid.NewString()
	prev, err := s.core.Get(ctx, s.id, s.p)
	if err != nil {
		return View[D]{}, err
	}

	var failed error
	yield := func(r Result[D]) error {
		if failed != nil {
			return failed
		}
		o := outcomeOf(r, nil)
		if o.err != nil {
			failed = o.err
			return failed
		}
		data, err := s.core.Normalize(ctx, true, &State{Data: o.data}, s.p)
		if err != nil {
			failed = err
			return failed
		}
		o.data = data
		_, err = s.core.Mutate(ctx, s.id, func(cur *State) *State {
			next := s.core.apply(cur, o, s.p)
			next.Optimistic = true
			return next
		}, s.p)
		if err != nil {
			failed = err
		}
		return err
	}

	f, err := up(ctx, viewOf[D](prev), yield)
	if err == nil {
		err = failed
	}
	if err == nil && f == nil {
		f = s.fetcher
		if f == nil {
			err = ErrMissingFetcher
		}
	}
	if err != nil {
		return s.rollback(ctx, op, err)
	}

	v, err := s.run(ctx, f, true, true, Request{Reload: true})
	if err != nil {
		return s.rollback(ctx, op, err)
	}
	s.core.log.Debug("optimistic update confirmed", Fields{"key": s.id, "op": op})
	return v, nil
}

// rollback puts the last confirmed state back with the optimistic flag
// cleared, or drops the key when nothing was ever confirmed.
func (s *Single[K, D]) rollback(ctx context.Context, op string, cause error) (View[D], error) {
	s.core.hooks.OptimisticRollback(s.id, op, cause)
	s.core.log.Warn("optimistic update rolled back", Fields{"key": s.id, "op": op, "err": cause})

	st, err := Locked(context.WithoutCancel(ctx), s.core, s.id, func(context.Context) (*State, error) {
		cur, _ := s.core.peek(s.id)
		if cur == nil || !cur.Optimistic {
			return cur, nil
		}
		var back *State
		if c := s.core.confirmed(s.id); c != nil {
			back = c.clone()
			back.Optimistic = false
		}
		s.core.restore(s.id, back)
		return back, nil
	})
	if err != nil {
		return View[D]{}, err
	}
	return viewOf[D](st), cause
}

// Normalize writes data under this entity's key with the root state's
// times and returns the stored value, which is the previous one when equal.
// Call it from the parent resource's Normalizer. It does nothing when
// more.Shallow is set.
func (s *Single[K, D]) Normalize(ctx context.Context, more *More, data D) (D, error) {
	if s.keyErr != nil {
		return data, s.keyErr
	}
	if more != nil && more.Shallow {
		return data, nil
	}
	var t Times
	if more != nil && more.Root != nil {
		t = Times{Time: more.Root.Time, Cooldown: more.Root.Cooldown, Expiration: more.Root.Expiration}
	}
	norm, err := s.core.Normalize(ctx, false, &State{Data: data}, s.p)
	if err != nil {
		return data, err
	}
	st, err := s.core.Mutate(ctx, s.id, func(cur *State) *State {
		return s.core.apply(cur, outcome{data: norm, times: t}, s.p)
	}, s.p)
	if err != nil {
		return data, err
	}
	if v, ok := st.Data.(D); ok {
		return v, nil
	}
	return data, nil
}

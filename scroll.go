package swrcache

import (
	"context"
)

// Scroller returns the key of the page after last, or false at the end of
// the list. last is nil for the first page.
type Scroller[K, D any] func(last *D) (K, bool)

// Scroll coordinates a list fetched in pages. All pages live in one state,
// under a root key derived from the first page's key, and are published
// together.
type Scroll[K, D any] struct {
	resource[[]D]
	scroller Scroller[K, D]
	fetcher  Fetcher[K, D]
}

// NewScroll binds the list whose first page key is scroller(nil).
func NewScroll[K, D any](core *Core, scroller Scroller[K, D], fetcher Fetcher[K, D], opts ResourceOptions[[]D]) *Scroll[K, D] {
	s := &Scroll[K, D]{scroller: scroller, fetcher: fetcher}
	var root any
	if scroller != nil {
		if k, ok := scroller(nil); ok {
			root = k
		}
	}
	s.resource = newResource[[]D](core, root, opts)
	if s.keyErr == nil {
		s.id = "scroll:" + s.id
	}
	return s
}

// First fetches the first page unless the list is cooling down. When the
// page equals the cached first page the loaded pages are kept, otherwise
// the list is reset to that page.
func (s *Scroll[K, D]) First(ctx context.Context) (View[[]D], error) {
	return s.first(ctx, false)
}

// Refirst is First without the cooldown gate.
func (s *Scroll[K, D]) Refirst(ctx context.Context) (View[[]D], error) {
	return s.first(ctx, true)
}

func (s *Scroll[K, D]) first(ctx context.Context, force bool) (View[[]D], error) {
	if err := s.check(); err != nil {
		return View[[]D]{}, err
	}
	st, err := s.core.fetch(ctx, fetchJob{
		key:   s.id,
		p:     s.p,
		force: force,
		plan: func(*State) (func(context.Context) outcome, bool) {
			return s.page(nil)
		},
		merge: func(prev *State, data any) any {
			page, ok := data.(D)
			if !ok {
				return data
			}
			if pages := pagesOf[D](prev); len(pages) > 0 && s.p.Equals(pages[0], page) {
				return pages
			}
			return []D{page}
		},
	})
	return viewOf[[]D](st), err
}

// Scroll fetches the page after the last loaded one and appends it. At the
// end of the list the current state is returned unchanged. Scroll is not
// held back by the cooldown.
func (s *Scroll[K, D]) Scroll(ctx context.Context) (View[[]D], error) {
	if err := s.check(); err != nil {
		return View[[]D]{}, err
	}
	st, err := s.core.fetch(ctx, fetchJob{
		key:   s.id,
		p:     s.p,
		force: true,
		plan: func(prev *State) (func(context.Context) outcome, bool) {
			var last *D
			if pages := pagesOf[D](prev); len(pages) > 0 {
				last = &pages[len(pages)-1]
			}
			return s.page(last)
		},
		merge: func(prev *State, data any) any {
			page, ok := data.(D)
			if !ok {
				return data
			}
			pages := pagesOf[D](prev)
			out := make([]D, 0, len(pages)+1)
			return append(append(out, pages...), page)
		},
	})
	return viewOf[[]D](st), err
}

func (s *Scroll[K, D]) check() error {
	if s.keyErr != nil {
		return s.keyErr
	}
	if s.fetcher == nil {
		return ErrMissingFetcher
	}
	return nil
}

func (s *Scroll[K, D]) page(last *D) (func(context.Context) outcome, bool) {
	k, ok := s.scroller(last)
	if !ok {
		return nil, false
	}
	return func(ctx context.Context) outcome {
		r, err := s.fetcher(ctx, k, Request{})
		return outcomeOf(r, err)
	}, true
}

func pagesOf[D any](st *State) []D {
	if st == nil {
		return nil
	}
	pages, _ := st.Data.([]D)
	return pages
}

package swrcache

import (
	"context"
	"time"
)

// State is the cached record for one key. Data and Err may both be set: a
// failed refresh keeps the last good data next to the new error.
// Zero times mean "unset". States are immutable once written; writers clone.
type State struct {
	Data       any // nil when nothing was fetched yet
	Err        error
	Time       time.Time // last resolution
	Cooldown   time.Time // unforced refetches are skipped before this
	Expiration time.Time // data is invalid after this; zero = never
	Optimistic bool      // unconfirmed local write

	abort context.CancelCauseFunc // set only while a fetch is in flight
}

// Fetching reports whether a fetch for this state is in flight.
func (s *State) Fetching() bool { return s != nil && s.abort != nil }

func (s *State) clone() *State {
	if s == nil {
		return &State{}
	}
	cp := *s
	cp.abort = nil
	return &cp
}

func (s *State) expired(now time.Time) bool {
	return s != nil && !s.Expiration.IsZero() && now.After(s.Expiration)
}

// View is the typed projection of a State handed to resource callers.
type View[D any] struct {
	Data       D
	HasData    bool
	Err        error
	Time       time.Time
	Cooldown   time.Time
	Expiration time.Time
	Optimistic bool
	Fetching   bool
}

func viewOf[D any](s *State) View[D] {
	var v View[D]
	if s == nil {
		return v
	}
	v.Data, v.HasData = s.Data.(D)
	v.Err = s.Err
	v.Time = s.Time
	v.Cooldown = s.Cooldown
	v.Expiration = s.Expiration
	v.Optimistic = s.Optimistic
	v.Fetching = s.Fetching()
	return v
}

// Times carries absolute timing metadata on a Result. Zero fields are filled
// from the resource's Cooldown/Expiration params at the resolution time.
type Times struct {
	Time       time.Time
	Cooldown   time.Time
	Expiration time.Time
}

// Result is what a fetcher or updater step produces: either Data or Fail.
type Result[D any] interface {
	value() (D, bool)
	outcome() outcome
}

// Data is a successful Result.
type Data[D any] struct {
	Value D
	Times Times
}

// Fail is a failed Result. A nil Err is reported as ErrNoResult.
type Fail[D any] struct {
	Err   error
	Times Times
}

// Ok wraps v in a Data result with default timing.
func Ok[D any](v D) Result[D] { return Data[D]{Value: v} }

// Err wraps err in a Fail result with default timing.
func Err[D any](err error) Result[D] { return Fail[D]{Err: err} }

func (d Data[D]) value() (D, bool) { return d.Value, true }
func (d Data[D]) outcome() outcome { return outcome{data: d.Value, times: d.Times} }

func (f Fail[D]) value() (D, bool) {
	var zero D
	return zero, false
}

func (f Fail[D]) outcome() outcome {
	err := f.Err
	if err == nil {
		err = ErrNoResult
	}
	return outcome{err: err, times: f.Times}
}

// outcome is the untyped form of a Result the core works with.
type outcome struct {
	data  any
	err   error
	times Times
	state *State // set once resolved
}

func outcomeOf[D any](r Result[D], err error) outcome {
	if err != nil {
		return outcome{err: err}
	}
	if r == nil {
		return outcome{err: ErrNoResult}
	}
	return r.outcome()
}

// Request describes how a fetcher should reach its source.
type Request struct {
	// Reload asks the fetcher to bypass any transport-level cache.
	Reload bool
}

// Fetcher loads the resource identified by key. Returning an error and
// returning a Fail are both failures; only the latter can carry Times.
type Fetcher[K, D any] func(ctx context.Context, key K, req Request) (Result[D], error)

// Static returns a fetcher that resolves to r without doing any I/O.
// Updaters return it when they already know the confirmed value.
func Static[K, D any](r Result[D]) Fetcher[K, D] {
	return func(context.Context, K, Request) (Result[D], error) { return r, nil }
}

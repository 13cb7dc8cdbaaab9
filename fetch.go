package swrcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/swrcache/timing"
)

// fetchJob describes one pass of the fetch pipeline for a key.
type fetchJob struct {
	key   string
	p     Params
	force bool // skip the cooldown gate
	// strict jobs return failures instead of storing them and leave the
	// previous state in place. Optimistic updates roll back on their own.
	strict bool
	// plan picks the work for the current state; ok=false means there is
	// nothing to fetch and prev is returned as is.
	plan func(prev *State) (run func(ctx context.Context) outcome, ok bool)
	// merge folds fetched data into prev's data. nil replaces it.
	merge func(prev *State, data any) any
}

// fetch runs j: cooldown gate, key lock, in-flight marker, fetcher raced
// against the timeout, then the resolved state is written and published.
// Failures are stored in the state next to the previous data; the returned
// error is reserved for lock, storage and strict failures.
func (c *Core) fetch(ctx context.Context, j fetchJob) (*State, error) {
	if !j.force {
		cur, err := c.Get(ctx, j.key, j.p)
		if err != nil {
			c.log.Warn("fetch: storage read failed", Fields{"key": j.key, "err": err})
		}
		if c.ShouldCooldown(cur) {
			c.hooks.CooldownSkip(j.key)
			return cur, nil
		}
	}

	return Locked(ctx, c, j.key, func(ctx context.Context) (*State, error) {
		prev, err := c.Get(ctx, j.key, j.p)
		if err != nil {
			c.log.Warn("fetch: storage read failed", Fields{"key": j.key, "err": err})
		}
		if !j.force && c.ShouldCooldown(prev) {
			c.hooks.CooldownSkip(j.key)
			return prev, nil
		}
		run, ok := j.plan(prev)
		if !ok {
			return prev, nil
		}

		fctx, abort := context.WithCancelCause(ctx)
		defer abort(nil)

		marker := prev.clone()
		marker.abort = abort
		_ = c.setLocked(ctx, j.key, marker, j.p) // memory only

		out := c.race(fctx, j.p, run)

		// the outcome is written even when the caller's ctx ended the fetch
		wctx := context.WithoutCancel(ctx)
		if out.err == nil {
			out = c.resolve(wctx, j, prev, out)
		}
		if out.err != nil {
			return c.fail(wctx, j, prev, out)
		}
		return out.state, c.setLocked(wctx, j.key, out.state, j.p)
	})
}

// race runs the fetcher on its own goroutine so that a timeout or an abort
// resolves the fetch even when the fetcher ignores its context.
func (c *Core) race(ctx context.Context, p Params, run func(context.Context) outcome) outcome {
	if p.Timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeoutCause(ctx, p.Timeout, ErrTimeout)
		defer stop()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("swrcache: fetcher panicked: %v", r)}
			}
		}()
		done <- run(ctx)
	}()

	select {
	case out := <-done:
		if out.err != nil && isContextErr(out.err) {
			cause := context.Cause(ctx)
			if cause == nil {
				cause = out.err
			}
			out.err = &AbortError{Cause: cause}
		}
		return out
	case <-ctx.Done():
		return outcome{err: &AbortError{Cause: context.Cause(ctx)}}
	}
}

func isContextErr(err error) bool {
	var ae *AbortError
	return errors.As(err, &ae) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// resolve turns fetched data into the next state: merge, default times,
// normalize, and keep the previous data when it is equal.
func (c *Core) resolve(ctx context.Context, j fetchJob, prev *State, out outcome) outcome {
	now := c.clock.Now()
	data := out.data
	if j.merge != nil {
		data = j.merge(prev, data)
	}
	next := &State{
		Data:       data,
		Time:       coalesceTime(out.times.Time, now),
		Cooldown:   coalesceTime(out.times.Cooldown, timing.FromDelay(now, j.p.Cooldown)),
		Expiration: coalesceTime(out.times.Expiration, timing.FromDelay(now, j.p.Expiration)),
	}

	norm, err := c.Normalize(ctx, false, next, j.p)
	if err != nil {
		return outcome{err: fmt.Errorf("swrcache: normalize: %w", err), times: out.times}
	}
	next.Data = norm
	if prev != nil && prev.Data != nil && next.Data != nil && j.p.Equals(prev.Data, next.Data) {
		next.Data = prev.Data
	}
	out.state = next
	return out
}

// fail stores out.err next to the previous data, or for strict jobs puts
// prev back and returns the error.
func (c *Core) fail(ctx context.Context, j fetchJob, prev *State, out outcome) (*State, error) {
	aborted := IsAbort(out.err)
	if aborted {
		c.hooks.FetchAborted(j.key, out.err)
		c.log.Debug("fetch aborted", Fields{"key": j.key, "err": out.err})
	} else {
		c.hooks.FetchFailed(j.key, out.err)
		c.log.Warn("fetch failed", Fields{"key": j.key, "err": out.err})
	}

	if j.strict {
		c.restore(j.key, prev)
		return prev, out.err
	}

	now := c.clock.Now()
	next := &State{
		Err:  out.err,
		Time: coalesceTime(out.times.Time, now),
	}
	if prev != nil {
		next.Data = prev.Data
		next.Expiration = prev.Expiration
		next.Optimistic = prev.Optimistic
	}
	next.Expiration = coalesceTime(out.times.Expiration, next.Expiration)
	if !aborted {
		next.Cooldown = coalesceTime(out.times.Cooldown, timing.FromDelay(now, j.p.Cooldown))
	}
	return next, c.setLocked(ctx, j.key, next, j.p)
}

// restore puts st back in memory without touching storage. The caller holds
// key's lock.
func (c *Core) restore(key string, st *State) {
	c.write(key, st)
	c.bus.Publish(key, st)
}

// Abort cancels the fetch in flight for key, if any. The fetch resolves to
// an *AbortError whose cause is ErrAborted.
func (c *Core) Abort(key string) bool {
	st, ok := c.peek(key)
	if !ok || st == nil || st.abort == nil {
		return false
	}
	st.abort(ErrAborted)
	return true
}

// FromDelay is timing.FromDelay against the core clock.
func (c *Core) FromDelay(d time.Duration) time.Time {
	return timing.FromDelay(c.clock.Now(), d)
}

// Package timing turns relative delays into absolute deadlines and compares
// optional deadlines. A zero time.Time means "no constraint" everywhere.
package timing

import "time"

// Never is the sentinel delay for "never expires". It propagates as a zero
// deadline instead of being added to now.
const Never time.Duration = -1

// Clock provides the current time. Inject a fake one in tests.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// FromDelay returns now+d. Negative delays (including Never) yield the zero time.
func FromDelay(now time.Time, d time.Duration) time.Time {
	if d < 0 {
		return time.Time{}
	}
	return now.Add(d)
}

// IsBefore reports whether a is before b. ok is false when either side is unset.
func IsBefore(a, b time.Time) (before, ok bool) {
	if a.IsZero() || b.IsZero() {
		return false, false
	}
	return a.Before(b), true
}

// IsAfter reports whether a is after b. ok is false when either side is unset.
func IsAfter(a, b time.Time) (after, ok bool) {
	if a.IsZero() || b.IsZero() {
		return false, false
	}
	return a.After(b), true
}

// Until returns the duration from now to t, or 0 when t is unset or past.
// Storage adapters use it as the entry TTL.
func Until(now, t time.Time) time.Duration {
	if t.IsZero() || !t.After(now) {
		return 0
	}
	return t.Sub(now)
}

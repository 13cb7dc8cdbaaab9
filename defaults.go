package swrcache

import (
	"time"

	"github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/equals"
	"github.com/unkn0wn-root/swrcache/timing"
)

const (
	DefaultCooldown        = time.Second
	DefaultExpiration      = timing.Never
	DefaultTimeout         = 5 * time.Second
	defaultCleanupInterval = time.Minute
)

func defaultParams() Params {
	return Params{
		Codec:      codec.JSON[any]{},
		KeyCodec:   codec.JSON[any]{},
		Equals:     equals.JSON,
		Cooldown:   DefaultCooldown,
		Expiration: DefaultExpiration,
		Timeout:    DefaultTimeout,
	}
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func coalesceTime(v, def time.Time) time.Time {
	if v.IsZero() {
		return def
	}
	return v
}

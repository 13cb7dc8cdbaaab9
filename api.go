package swrcache

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/equals"
	"github.com/unkn0wn-root/swrcache/storage"
	"github.com/unkn0wn-root/swrcache/timing"
)

// SetCostFunc weighs a storage write. Cost-aware storages (ristretto) use it
// for admission; the others ignore it.
type SetCostFunc func(key string, raw []byte) int64

// NormalizeFunc is the untyped normalizer the core runs on fetched data.
// Build one from a typed Normalizer with Options.
type NormalizeFunc func(ctx context.Context, data any, more *More) (any, error)

// More tells a normalizer how deep it should go.
type More struct {
	// Shallow is set when only metadata changed and nested entities must not
	// be rewritten again.
	Shallow bool
	// Root is the state whose data is being normalized.
	Root *State
}

// Params configure how the core treats one resource. Zero fields inherit
// from the core's defaults.
type Params struct {
	Storage    storage.Storage  // nil => memory only
	Codec      codec.Codec[any] // storage payloads; default JSON
	KeyCodec   codec.Codec[any] // non-string keys; default JSON
	Normalizer NormalizeFunc
	Equals     equals.Func   // default equals.JSON
	Cooldown   time.Duration // 0 => 1s; negative disables
	Expiration time.Duration // 0 => timing.Never
	Timeout    time.Duration // 0 => 5s; timing.Never disables
}

// merge layers o over p. Funcs and interfaces override when non-nil,
// durations when non-zero.
func (p Params) merge(o Params) Params {
	if o.Storage != nil {
		p.Storage = o.Storage
	}
	if o.Codec != nil {
		p.Codec = o.Codec
	}
	if o.KeyCodec != nil {
		p.KeyCodec = o.KeyCodec
	}
	if o.Normalizer != nil {
		p.Normalizer = o.Normalizer
	}
	if o.Equals != nil {
		p.Equals = o.Equals
	}
	p.Cooldown = coalesce(o.Cooldown, p.Cooldown)
	p.Expiration = coalesce(o.Expiration, p.Expiration)
	p.Timeout = coalesce(o.Timeout, p.Timeout)
	return p
}

// Options configure a Core. Everything is optional.
type Options struct {
	Defaults        Params        // merged over the built-in defaults
	Namespace       string        // storage key prefix, e.g. "app" => "app:<key>"
	Logger          Logger        // if nil, NopLogger is used
	Hooks           Hooks         // if nil, NopHooks is used
	Clock           timing.Clock  // if nil, the wall clock
	CleanupInterval time.Duration // janitor period; 0 => 1m, negative disables
	ComputeSetCost  SetCostFunc   // default 1
}

// Validate reports configuration that cannot work.
func (o Options) Validate() error {
	if o.Defaults.Timeout < 0 && o.Defaults.Timeout != timing.Never {
		return ErrInvalidTimeout(o.Defaults.Timeout)
	}
	if o.Defaults.Expiration < 0 && o.Defaults.Expiration != timing.Never {
		return fmt.Errorf("swrcache: invalid expiration: %v (must be >= 0 or timing.Never)", o.Defaults.Expiration)
	}
	return nil
}

// New builds a Core and starts its janitor. Call Close to stop it.
func New(opts Options) (*Core, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return newCore(opts), nil
}

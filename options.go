package swrcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/equals"
	"github.com/unkn0wn-root/swrcache/storage"
)

// Normalizer rewrites nested entities of data into their own cache keys,
// typically through Single.Normalize, and returns the data to keep under the
// root key.
type Normalizer[D any] func(ctx context.Context, data D, more *More) (D, error)

// ResourceOptions configure a resource. Zero fields inherit from the core defaults,
// except Codec which defaults to JSON for D so stored values decode back to D.
type ResourceOptions[D any] struct {
	Storage    storage.Storage
	Codec      codec.Codec[D]
	KeyCodec   codec.Codec[any]
	Equals     equals.Func
	Normalizer Normalizer[D]
	Cooldown   time.Duration
	Expiration time.Duration
	Timeout    time.Duration
}

func (o ResourceOptions[D]) params() Params {
	p := Params{
		Storage:    o.Storage,
		KeyCodec:   o.KeyCodec,
		Equals:     o.Equals,
		Cooldown:   o.Cooldown,
		Expiration: o.Expiration,
		Timeout:    o.Timeout,
	}
	if o.Codec != nil {
		p.Codec = codec.Erase(o.Codec)
	} else {
		p.Codec = codec.Erase[D](codec.JSON[D]{})
	}
	if n := o.Normalizer; n != nil {
		p.Normalizer = func(ctx context.Context, data any, more *More) (any, error) {
			d, ok := data.(D)
			if !ok {
				return data, nil
			}
			return n(ctx, d, more)
		}
	}
	return p
}

// Package codec holds the serializers swrcache uses for storage payloads and
// for non-string cache keys.
package codec

import "fmt"

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Erase adapts a typed codec to the untyped form the cache core stores.
// Encode rejects values whose dynamic type is not V.
func Erase[V any](c Codec[V]) Codec[any] {
	if c == nil {
		return nil
	}
	return erased[V]{inner: c}
}

type erased[V any] struct{ inner Codec[V] }

func (e erased[V]) Encode(v any) ([]byte, error) {
	tv, ok := v.(V)
	if !ok {
		var zero V
		return nil, fmt.Errorf("codec: value of type %T is not %T", v, zero)
	}
	return e.inner.Encode(tv)
}

func (e erased[V]) Decode(b []byte) (any, error) {
	v, err := e.inner.Decode(b)
	if err != nil {
		return nil, err
	}
	return v, nil
}

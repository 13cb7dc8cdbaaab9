package keys

import (
	"errors"

	"github.com/unkn0wn-root/swrcache/codec"
)

// ErrMissing is returned when a key cannot identify a resource.
var ErrMissing = errors.New("swrcache: missing key")

// Derive returns the cache key for k. Strings are used as-is; anything else is
// encoded with kc. Encoded object keys are only stable when the caller builds
// them deterministically (encoding/json sorts map keys, structs keep field order).
func Derive(k any, kc codec.Codec[any]) (string, error) {
	switch v := k.(type) {
	case nil:
		return "", ErrMissing
	case string:
		if v == "" {
			return "", ErrMissing
		}
		return v, nil
	}
	if kc == nil {
		kc = codec.JSON[any]{}
	}
	b, err := kc.Encode(k)
	if err != nil {
		return "", err
	}
	s := string(b)
	if s == "" || s == "null" {
		return "", ErrMissing
	}
	return s, nil
}

// Storage returns the storage key for a cache key under an optional namespace.
func Storage(ns, key string) string {
	if ns == "" {
		return key
	}
	return ns + ":" + key
}

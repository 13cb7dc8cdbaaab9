package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack serializes payloads with vmihailenco/msgpack/v5. The zero value is ready to use.
//
// Payloads are smaller than JSON, which matters for shared stores such as Redis.
// Use `msgpack:"name"` tags when field names must match another producer.
type Msgpack[V any] struct{}

func (Msgpack[V]) Encode(v V) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}

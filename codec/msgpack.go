package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack is a Codec that serializes values using vmihailenco/msgpack/v5.
// The zero value is ready to use.
//
// Untyped maps decode as map[string]any, so payload documents restored with
// Msgpack can be reshaped with Convert exactly like JSON-restored ones.
// Use `msgpack:"fieldName"` tags if you need explicit control.
type Msgpack[V any] struct{}

var _ Codec[struct{}] = Msgpack[struct{}]{}

func (Msgpack[V]) Encode(v V) ([]byte, error) {
	return msgpack.Marshal(v)
}
func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}
func (Msgpack[V]) ContentType() string { return MediaMsgpack }

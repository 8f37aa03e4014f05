package codec

import "encoding/json"

// JSON is the default payload codec.
type JSON[V any] struct{}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
func (JSON[V]) ContentType() string { return MediaJSON }

// Convert reshapes an arbitrary decoded value (typically map[string]any
// restored from a payload document) into V by round-tripping it through JSON.
// Values that already are a V are returned as is.
func Convert[V any](src any) (V, error) {
	if v, ok := src.(V); ok {
		return v, nil
	}
	var zero V
	if src == nil {
		return zero, nil
	}
	b, err := json.Marshal(src)
	if err != nil {
		return zero, err
	}
	return JSON[V]{}.Decode(b)
}

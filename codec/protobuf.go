package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Protobuf encodes concrete proto messages.
type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *mypb.User { return &mypb.User{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
func (Protobuf[T]) ContentType() string { return MediaProtobuf }

// Struct carries any JSON-shaped V as a google.protobuf.Struct, for handoff
// stores that only speak protobuf. V must marshal to a JSON object.
type Struct[V any] struct{}

var _ Codec[map[string]any] = Struct[map[string]any]{}

func (Struct[V]) Encode(v V) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("codec: struct encoding needs an object: %w", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	return NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} }).Encode(s)
}

func (Struct[V]) Decode(b []byte) (V, error) {
	var zero V
	s, err := NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} }).Decode(b)
	if err != nil {
		return zero, err
	}
	return Convert[V](s.AsMap())
}

func (Struct[V]) ContentType() string { return MediaProtobuf }

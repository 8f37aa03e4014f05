// Package codec serializes values for the payload handoff and decodes fetch
// responses. Every codec reports the media type it produces so a response
// body can be routed to the right decoder.
package codec

import (
	"mime"
	"strings"
)

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Typed is implemented by codecs that know their media type.
type Typed interface {
	ContentType() string
}

const (
	MediaJSON     = "application/json"
	MediaMsgpack  = "application/msgpack"
	MediaCBOR     = "application/cbor"
	MediaProtobuf = "application/x-protobuf"
)

// MediaType strips parameters and normalizes aliases
// ("application/x-msgpack" => MediaMsgpack, "+json" suffixes => MediaJSON).
func MediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case mt == "application/x-msgpack" || mt == "application/vnd.msgpack":
		return MediaMsgpack
	case strings.HasSuffix(mt, "+json") || mt == "text/json":
		return MediaJSON
	case strings.HasSuffix(mt, "+cbor"):
		return MediaCBOR
	}
	return mt
}

// For returns the codec registered for a media type, or nil for media types
// that are not structured (text, html, octet-stream ...). Protobuf bodies are
// read as google.protobuf.Struct.
func For[V any](contentType string) Codec[V] {
	switch MediaType(contentType) {
	case MediaJSON:
		return JSON[V]{}
	case MediaMsgpack:
		return Msgpack[V]{}
	case MediaCBOR:
		return MustCBOR[V](false)
	case MediaProtobuf:
		return Struct[V]{}
	}
	return nil
}

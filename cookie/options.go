package cookie

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/unkn0wn-root/asyncdata"
)

// WatchMode selects how a client cell reacts to changes.
type WatchMode uint8

const (
	// WatchDeep writes on every change whose encoded form differs.
	WatchDeep WatchMode = iota
	// WatchShallow is accepted for parity; values are replaced wholesale, so
	// it behaves like WatchDeep.
	WatchShallow
	// WatchDisabled writes the initial value once and never again.
	WatchDisabled
)

// Options configure one cookie cell.
type Options[T any] struct {
	Path     string // default "/"
	Domain   string
	MaxAge   int // seconds; 0 => session cookie
	Expires  time.Time
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite

	Encode  func(T) (string, error) // default: JSON (raw for strings), path-escaped
	Decode  func(string) (T, error) // inverse of Encode
	Default func() T                // value when the cookie is absent
	Watch   WatchMode

	// Client only.
	Document    Document
	Broadcaster Broadcaster
	Component   asyncdata.Component
}

func (o *Options[T]) withDefaults() {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.Encode == nil {
		o.Encode = encodeValue[T]
	}
	if o.Decode == nil {
		o.Decode = decodeValue[T]
	}
}

func encodeValue[T any](v T) (string, error) {
	if s, ok := any(v).(string); ok {
		return url.PathEscape(s), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return url.PathEscape(string(b)), nil
}

// decodeValue unescapes raw and parses it as JSON unless T is a string.
func decodeValue[T any](raw string) (T, error) {
	var v T
	s, err := url.PathUnescape(raw)
	if err != nil {
		s = raw
	}
	if p, ok := any(&v).(*string); ok {
		*p = s
		return v, nil
	}
	err = json.Unmarshal([]byte(s), &v)
	return v, err
}

package asyncdata

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidKey          = errors.New("key must be a non-empty string")
	ErrInvalidProducer     = errors.New("producer must be a function")
	ErrMissingRequest      = errors.New("request is missing")
	ErrProtocolRelativeURL = errors.New(`the request URL must not start with "//"`)
)

// ConfigError reports a call site that can never execute. It is returned
// synchronously, before any execution starts.
type ConfigError struct {
	Op  string // "UseAsyncData", "UseFetch", ...
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("asyncdata: %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("asyncdata: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// PayloadError is the normalized, serializable form of an execution failure.
// It is what the payload carries to the client and what a hydrated entry
// exposes as its error.
type PayloadError struct {
	StatusCode    int    `json:"statusCode,omitempty" msgpack:"statusCode,omitempty" cbor:"statusCode,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty" msgpack:"statusMessage,omitempty" cbor:"statusMessage,omitempty"`
	Message       string `json:"message" msgpack:"message" cbor:"message"`
	Data          any    `json:"data,omitempty" msgpack:"data,omitempty" cbor:"data,omitempty"`
}

func (e *PayloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.StatusMessage, e.Message)
	}
	return e.Message
}

// NormalizeError converts any error to a *PayloadError. Errors that already
// are (or wrap) a *PayloadError are returned as is; *FetchError keeps its
// status. Everything else becomes a 500.
func NormalizeError(err error) *PayloadError {
	if err == nil {
		return nil
	}
	var pe *PayloadError
	if errors.As(err, &pe) {
		return pe
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return &PayloadError{
			StatusCode:    fe.StatusCode,
			StatusMessage: fe.Status,
			Message:       err.Error(),
			Data:          fe.Data,
		}
	}
	return &PayloadError{
		StatusCode:    http.StatusInternalServerError,
		StatusMessage: http.StatusText(http.StatusInternalServerError),
		Message:       err.Error(),
	}
}

// FetchError is returned by fetch bindings for non-2xx responses.
type FetchError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Data       any // decoded body when structured, raw text otherwise
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("[%s] %q: %d %s", e.Method, e.URL, e.StatusCode, e.Status)
}

// PanicError wraps a value recovered from a panicking producer.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("asyncdata: producer panicked: %v", e.Value) }

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

package asyncdata

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/asyncdata/internal/keyhash"
	"github.com/unkn0wn-root/asyncdata/reactive"
)

// Target is what a fetch binding requests. It is resolved on every
// execution.
type Target interface {
	Resolve() string
}

// URL is a literal target. Literal targets take part in the derived key.
type URL string

func (u URL) Resolve() string { return string(u) }

// TargetFunc computes the target on each execution.
type TargetFunc func() string

func (f TargetFunc) Resolve() string { return f() }

// RefTarget follows r: every execution requests the current value and,
// unless watching is disabled, every change refreshes the binding.
func RefTarget(r *reactive.Ref[string]) Target { return refTarget{r} }

type refTarget struct{ r *reactive.Ref[string] }

func (t refTarget) Resolve() string                { return t.r.Get() }
func (t refTarget) Watch(fn func()) (stop func()) { return t.r.Watch(fn) }

// RequestOptions shape the HTTP request.
type RequestOptions struct {
	Method  string         // default GET
	BaseURL string         // default App BaseURL
	Query   map[string]any // part of the derived key
	Headers http.Header
	Body    any // []byte, string and io.Reader are sent raw; anything else as JSON
	Timeout time.Duration
}

// FetchOptions configure a fetch binding. The async-data fields mean what
// they mean in Options.
type FetchOptions[T any] struct {
	Key     string
	AutoKey string

	Request RequestOptions
	// RequestRef, when set, replaces Request and is watched like the target.
	RequestRef *reactive.Ref[RequestOptions]
	// Transport overrides the App's default client and local handler.
	Transport Doer

	DisableServer    bool
	Lazy             bool
	DisableImmediate bool
	DisableWatch     bool // drop every watch source, including Watch

	Default   func() T
	Transform func(T) (T, error)
	Pick      []string
	Watch     []reactive.Source
	Dedupe    DedupeMode
	Component Component
}

func (o *FetchOptions[T]) request() RequestOptions {
	if o.RequestRef != nil {
		return o.RequestRef.Get()
	}
	return o.Request
}

// UseFetch binds an HTTP request to an async-data call site. Without an
// explicit key the key is derived from the call-site key, the base URL, a
// literal target and the query, so identical requests share one entry.
func UseFetch[T any](app *App, target Target, opts FetchOptions[T]) (*AsyncData[T], error) {
	ro := opts.request()
	key, err := fetchKey(target, opts.Key, opts.AutoKey, ro)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, &ConfigError{Op: "UseFetch", Key: key, Err: ErrMissingRequest}
	}
	if ro.BaseURL == "" && strings.HasPrefix(target.Resolve(), "//") {
		return nil, &ConfigError{Op: "UseFetch", Key: key, Err: ErrProtocolRelativeURL}
	}

	var watch []reactive.Source
	if !opts.DisableWatch {
		if opts.RequestRef != nil {
			watch = append(watch, opts.RequestRef)
		}
		if src, ok := target.(reactive.Source); ok {
			watch = append(watch, src)
		}
		watch = append(watch, opts.Watch...)
	}

	b := &fetchBinding[T]{app: app, target: target, opts: opts}
	return UseAsyncData(app, Options[T]{
		Key:              key,
		DisableServer:    opts.DisableServer,
		Lazy:             opts.Lazy,
		DisableImmediate: opts.DisableImmediate,
		Default:          opts.Default,
		Transform:        opts.Transform,
		Pick:             opts.Pick,
		Watch:            watch,
		Dedupe:           opts.Dedupe,
		Component:        opts.Component,
	}, b.produce)
}

// UseLazyFetch is UseFetch with Lazy forced on.
func UseLazyFetch[T any](app *App, target Target, opts FetchOptions[T]) (*AsyncData[T], error) {
	opts.Lazy = true
	return UseFetch(app, target, opts)
}

func fetchKey(target Target, key, autoKey string, ro RequestOptions) (string, error) {
	if key != "" {
		// an explicit key equal to the call-site key must not collide with
		// a plain async-data call using that call-site key
		if key == autoKey {
			return fetchKeyPrefix + key, nil
		}
		return key, nil
	}
	var literal string
	if u, ok := target.(URL); ok {
		literal = string(u)
	}
	h, err := keyhash.Hash(autoKey, ro.BaseURL, literal, ro.Query)
	if err != nil {
		return "", &ConfigError{Op: "UseFetch", Err: fmt.Errorf("%w: %v", ErrInvalidKey, err)}
	}
	return h, nil
}

// fetchBinding is the producer behind UseFetch. Starting a request cancels
// the one it replaces.
type fetchBinding[T any] struct {
	app    *App
	target Target
	opts   FetchOptions[T]

	mu    sync.Mutex
	abort context.CancelFunc
}

func (b *fetchBinding[T]) produce(ctx context.Context, app *App) (T, error) {
	var zero T
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	if b.abort != nil {
		b.abort()
	}
	b.abort = cancel
	b.mu.Unlock()

	ro := b.opts.request()
	if ro.Timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, ro.Timeout)
		defer stop()
	}

	target := b.target.Resolve()
	doer, local := b.transport(target)
	base := coalesce(ro.BaseURL, app.baseURL)
	if local {
		base = ro.BaseURL
	}
	req, err := newRequest(ctx, base, target, ro)
	if err != nil {
		return zero, err
	}
	if local {
		forwardHeaders(req, app.event)
	}
	resp, err := doer.Do(req)
	if err != nil {
		return zero, err
	}
	return decodeResponse[T](req, resp)
}

// transport picks the Doer: the explicit one, then (server only) the App's
// own handler for path-relative targets, then the App client.
func (b *fetchBinding[T]) transport(target string) (Doer, bool) {
	if b.opts.Transport != nil {
		return b.opts.Transport, false
	}
	app := b.app
	if app.IsServer() && app.handler != nil && strings.HasPrefix(target, "/") {
		return HandlerDoer{Handler: app.handler}, true
	}
	return app.client, false
}

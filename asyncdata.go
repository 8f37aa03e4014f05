package asyncdata

import (
	"context"
	"slices"

	"github.com/unkn0wn-root/asyncdata/codec"
	"github.com/unkn0wn-root/asyncdata/reactive"
)

// Producer computes the value for a key. ctx ends when the App closes or
// after the execution settled; supersession does not cancel it.
type Producer[T any] func(ctx context.Context, app *App) (T, error)

// Options configure one call site.
type Options[T any] struct {
	// Key identifies the data. AutoKey is the call-site key used when Key is
	// empty; one of them must be set.
	Key     string
	AutoKey string

	DisableServer    bool // do not produce during the server render
	Lazy             bool // client: start before mount instead of blocking setup
	DisableImmediate bool // only run on Refresh/watch/broadcast

	Default   func() T
	Transform func(T) (T, error)
	Pick      []string          // keep only these top-level fields
	Watch     []reactive.Source // client: refresh on change
	Dedupe    DedupeMode        // applied when Refresh gets DedupeDefault

	// Component binds the call site to a lifecycle. Nil means the call is
	// not inside a component.
	Component Component
}

// AsyncData is the handle a call site gets back. Its state lives in the
// App's entry for the key, shared by every handle with the same key.
type AsyncData[T any] struct {
	app     *App
	key     string
	entry   *Entry
	opts    Options[T]
	run     runner
	initial *Future
}

// UseAsyncData registers a call site and, depending on the environment and
// hydration state, starts (or skips) its first execution. The error is
// always a *ConfigError.
func UseAsyncData[T any](app *App, opts Options[T], producer Producer[T]) (*AsyncData[T], error) {
	key := coalesce(opts.Key, opts.AutoKey)
	if key == "" {
		return nil, &ConfigError{Op: "UseAsyncData", Err: ErrInvalidKey}
	}
	if producer == nil {
		return nil, &ConfigError{Op: "UseAsyncData", Key: key, Err: ErrInvalidProducer}
	}

	h := &AsyncData[T]{app: app, key: key, opts: opts}
	h.run = runner{
		produce: func(ctx context.Context) (any, error) { return producer(ctx, app) },
		def:     h.defaultValue,
	}
	if opts.Transform != nil || len(opts.Pick) > 0 {
		h.run.post = h.post
	}

	app.mu.Lock()
	h.entry = app.entryLocked(key, h.run.def)
	serverRendered := app.payload.ServerRendered
	app.mu.Unlock()

	fetchOnServer := !opts.DisableServer && serverRendered
	immediate := !opts.DisableImmediate
	initialFetch := func() *Future { return app.execute(key, h.run, ExecuteOptions{initial: true}) }
	c := opts.Component

	if app.IsServer() && fetchOnServer && immediate {
		fut := initialFetch()
		if c != nil {
			c.OnServerPrefetch(fut.Wait)
		} else {
			app.bus.HookOnce(HookAppCreated, func(ctx context.Context, _ ...any) error {
				return fut.Wait(ctx)
			})
		}
	}

	if app.IsClient() {
		hydrating := app.IsHydrating()
		_, cached := app.PayloadData(key)
		switch {
		case fetchOnServer && hydrating && cached:
			h.adopt()
		case c != nil && immediate && ((serverRendered && hydrating) || opts.Lazy):
			app.deferToMount(c, func() { initialFetch() })
		case immediate:
			initialFetch()
		}

		for _, src := range opts.Watch {
			stop := src.Watch(func() { h.Refresh(ExecuteOptions{}) })
			if c != nil {
				c.OnUnmounted(stop)
			}
		}
		off := app.bus.Hook(HookDataRefresh, func(ctx context.Context, args ...any) error {
			var keys []string
			if len(args) > 0 {
				keys, _ = args[0].([]string)
			}
			if len(keys) > 0 && !slices.Contains(keys, key) {
				return nil
			}
			return h.Refresh(ExecuteOptions{}).Wait(ctx)
		})
		if c != nil {
			c.OnUnmounted(off)
		}
	}

	h.initial = app.inflightFuture(key)
	return h, nil
}

// UseLazyAsyncData is UseAsyncData with Lazy forced on.
func UseLazyAsyncData[T any](app *App, opts Options[T], producer Producer[T]) (*AsyncData[T], error) {
	opts.Lazy = true
	return UseAsyncData(app, opts, producer)
}

// adopt marks a hydrated entry as settled from the payload.
func (h *AsyncData[T]) adopt() {
	h.app.mu.Lock()
	h.entry.update(func(st *State) {
		st.Pending = false
		if st.Err != nil {
			st.Status = StatusError
		} else {
			st.Status = StatusSuccess
		}
	})
	h.app.mu.Unlock()
	h.app.sched.Flush()
}

func (h *AsyncData[T]) defaultValue() any {
	if h.opts.Default == nil {
		return nil
	}
	return h.opts.Default()
}

func (h *AsyncData[T]) post(v any) (any, error) {
	t, err := codec.Convert[T](v)
	if err != nil {
		return nil, err
	}
	if h.opts.Transform != nil {
		if t, err = h.opts.Transform(t); err != nil {
			return nil, err
		}
	}
	if len(h.opts.Pick) > 0 {
		return pick(t, h.opts.Pick)
	}
	return t, nil
}

// Refresh starts a new execution for the key. With DedupeDefault the
// handle's configured mode applies (cancel unless configured otherwise).
func (h *AsyncData[T]) Refresh(opts ExecuteOptions) *Future {
	if opts.Dedupe == DedupeDefault {
		opts.Dedupe = coalesce(h.opts.Dedupe, DedupeCancel)
	}
	return h.app.execute(h.key, h.run, opts)
}

// Execute is an alias of Refresh.
func (h *AsyncData[T]) Execute(opts ExecuteOptions) *Future { return h.Refresh(opts) }

// Wait blocks until the execution running when the handle was created
// settled. Producer failures are not returned; read Error.
func (h *AsyncData[T]) Wait(ctx context.Context) (*AsyncData[T], error) {
	if err := h.initial.Wait(ctx); err != nil {
		return h, err
	}
	return h, nil
}

func (h *AsyncData[T]) Key() string    { return h.key }
func (h *AsyncData[T]) Entry() *Entry  { return h.entry }
func (h *AsyncData[T]) State() State   { return h.entry.State() }
func (h *AsyncData[T]) Pending() bool  { return h.entry.State().Pending }
func (h *AsyncData[T]) Error() error   { return h.entry.State().Err }
func (h *AsyncData[T]) Status() Status { return h.entry.State().Status }

// Data returns the current value as T; a value that cannot be converted
// yields the zero T. See Value.
func (h *AsyncData[T]) Data() T {
	v, _ := h.Value()
	return v
}

// Value returns the current value converted to T. Values restored from a
// payload document arrive as generic maps and are reshaped here.
func (h *AsyncData[T]) Value() (T, error) {
	return codec.Convert[T](h.entry.State().Data)
}

// Subscribe observes every change of the shared entry.
func (h *AsyncData[T]) Subscribe(fn func(State)) (stop func()) {
	return h.entry.Subscribe(fn)
}

// ClearData clears this handle's key.
func (h *AsyncData[T]) ClearData() { h.app.ClearData(h.key) }

package cookie

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/asyncdata"
	"github.com/unkn0wn-root/asyncdata/reactive"
)

// ChannelPrefix prefixes the broadcast channel name of every cell.
const ChannelPrefix = "asyncdata:cookies:"

var (
	ErrInvalidName = errors.New("cookie: name must be non-empty")
	ErrNoDocument  = errors.New("cookie: client cells need a Document")
)

type slot[T any] struct {
	v  T
	ok bool
}

// Cell is a reactive cookie value. A cell is either present (holding a T)
// or absent; an absent cell serializes as a deletion.
type Cell[T any] struct {
	name string
	app  *asyncdata.App
	opts Options[T]
	ref  *reactive.Ref[slot[T]]

	ch     Channel
	paused atomic.Bool
}

var _ reactive.Source = (*Cell[int])(nil)

// Use binds a cell to name in app.
func Use[T any](app *asyncdata.App, name string, opts Options[T]) (*Cell[T], error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	opts.withDefaults()
	if app.IsClient() && opts.Document == nil {
		return nil, ErrNoDocument
	}

	c := &Cell[T]{name: name, app: app, opts: opts}
	raw, inRequest := c.readRaw()
	// sent is the value the request carried, before any default applies
	sent := slot[T]{}
	if inRequest {
		v, err := opts.Decode(raw)
		if err != nil {
			app.Logger().Warn("cookie: undecodable value", asyncdata.Fields{"cookie": name, "err": err})
		} else {
			sent = slot[T]{v: v, ok: true}
		}
	}
	init := sent
	if !init.ok && opts.Default != nil {
		init = slot[T]{v: opts.Default(), ok: true}
	}
	c.ref = reactive.NewRef(app.Scheduler(), init)

	if app.IsServer() {
		c.bindServer(sent, inRequest)
		return c, nil
	}
	if err := c.bindClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cell[T]) readRaw() (string, bool) {
	var header string
	if c.app.IsServer() {
		if ev := c.app.Event(); ev != nil && ev.Request != nil {
			header = ev.Request.Header.Get("Cookie")
		}
	} else {
		header = c.opts.Document.Cookie()
	}
	raw, ok := parse(header)[c.name]
	return raw, ok
}

func (c *Cell[T]) bindClient() error {
	if b := c.opts.Broadcaster; b != nil {
		ch, err := b.Open(ChannelPrefix + c.name)
		if err != nil {
			return fmt.Errorf("cookie: open channel: %w", err)
		}
		c.ch = ch
		ch.OnMessage(c.receive)
		if comp := c.opts.Component; comp != nil {
			comp.OnUnmounted(func() { _ = ch.Close() })
		}
	}

	if c.opts.Watch == WatchDisabled {
		c.publish(c.ref.Get())
		return nil
	}
	c.ref.Subscribe(func(n, o slot[T]) {
		if c.paused.Load() || c.equal(n, o) {
			return
		}
		c.publish(n)
	})
	return nil
}

// receive applies a value posted by another tab. The change notification it
// triggers is not written back or re-posted.
func (c *Cell[T]) receive(m Message) {
	next := slot[T]{}
	if !m.Deleted {
		v, err := c.opts.Decode(m.Value)
		if err != nil {
			c.app.Logger().Warn("cookie: undecodable broadcast", asyncdata.Fields{"cookie": c.name, "err": err})
			return
		}
		next = slot[T]{v: v, ok: true}
	}
	c.paused.Store(true)
	c.ref.Set(next)
	c.app.Scheduler().NextTick(func() { c.paused.Store(false) })
}

// publish writes the document cookie and posts to the other tabs.
func (c *Cell[T]) publish(s slot[T]) {
	line, enc, err := c.serialize(s)
	if err == nil {
		err = c.opts.Document.SetCookie(line)
	}
	if err != nil {
		c.app.Logger().Warn("cookie: client write failed", asyncdata.Fields{"cookie": c.name, "err": err})
		return
	}
	if c.ch == nil {
		return
	}
	if err := c.ch.Post(c.app.Context(), Message{Value: enc, Deleted: !s.ok}); err != nil {
		c.app.Logger().Warn("cookie: broadcast failed", asyncdata.Fields{"cookie": c.name, "err": err})
	}
}

func (c *Cell[T]) bindServer(sent slot[T], inRequest bool) {
	bus := c.app.Bus()
	var once sync.Once
	var ferr error
	finalize := func() error {
		once.Do(func() { ferr = c.finalize(sent, inRequest) })
		return ferr
	}
	unhook := bus.HookOnce(asyncdata.HookAppRendered, func(context.Context, ...any) error {
		return finalize()
	})
	bus.HookOnce(asyncdata.HookAppError, func(context.Context, ...any) error {
		unhook()
		return finalize()
	})
}

// finalize writes Set-Cookie when the final value differs from what the
// request carried. Values are compared, not their encodings, so a cookie a
// browser escaped differently is not rewritten.
func (c *Cell[T]) finalize(sent slot[T], inRequest bool) error {
	ev := c.app.Event()
	if ev == nil || ev.Response == nil {
		return nil
	}
	cur := c.ref.Get()
	if !cur.ok {
		if !inRequest {
			return nil
		}
		hc, err := c.cookie("", true)
		if err != nil {
			return err
		}
		http.SetCookie(ev.Response, hc)
		c.app.Logger().Debug("cookie: deleted", asyncdata.Fields{"cookie": c.name})
		return nil
	}
	if inRequest && c.equal(sent, cur) {
		return nil
	}
	enc, err := c.opts.Encode(cur.v)
	if err != nil {
		return fmt.Errorf("cookie %q: encode: %w", c.name, err)
	}
	hc, err := c.cookie(enc, false)
	if err != nil {
		return err
	}
	http.SetCookie(ev.Response, hc)
	c.app.Logger().Debug("cookie: written", asyncdata.Fields{"cookie": c.name})
	return nil
}

func (c *Cell[T]) serialize(s slot[T]) (line, enc string, err error) {
	if s.ok {
		if enc, err = c.opts.Encode(s.v); err != nil {
			return "", "", fmt.Errorf("cookie %q: encode: %w", c.name, err)
		}
	}
	hc, err := c.cookie(enc, !s.ok)
	if err != nil {
		return "", "", err
	}
	return hc.String(), enc, nil
}

func (c *Cell[T]) cookie(enc string, deleted bool) (*http.Cookie, error) {
	hc := &http.Cookie{
		Name:     c.name,
		Value:    enc,
		Path:     c.opts.Path,
		Domain:   c.opts.Domain,
		MaxAge:   c.opts.MaxAge,
		Expires:  c.opts.Expires,
		Secure:   c.opts.Secure,
		HttpOnly: c.opts.HTTPOnly,
		SameSite: c.opts.SameSite,
	}
	if deleted {
		hc.Value = ""
		hc.MaxAge = -1
	}
	if err := hc.Valid(); err != nil {
		return nil, fmt.Errorf("cookie %q: %w", c.name, err)
	}
	return hc, nil
}

func (c *Cell[T]) equal(a, b slot[T]) bool {
	if a.ok != b.ok {
		return false
	}
	if !a.ok {
		return true
	}
	ea, err1 := c.opts.Encode(a.v)
	eb, err2 := c.opts.Encode(b.v)
	return err1 == nil && err2 == nil && ea == eb
}

func (c *Cell[T]) Name() string { return c.name }

// Get returns the value and whether the cookie is present.
func (c *Cell[T]) Get() (T, bool) {
	s := c.ref.Get()
	return s.v, s.ok
}

// Value returns the value, or the zero T when absent.
func (c *Cell[T]) Value() T {
	v, _ := c.Get()
	return v
}

func (c *Cell[T]) Set(v T) { c.ref.Set(slot[T]{v: v, ok: true}) }

// Delete makes the cookie absent; it is serialized as an expired cookie.
func (c *Cell[T]) Delete() { c.ref.Set(slot[T]{}) }

func (c *Cell[T]) Watch(fn func()) (stop func()) { return c.ref.Watch(fn) }

// Close detaches the cell from its broadcast channel.
func (c *Cell[T]) Close() error {
	if c.ch == nil {
		return nil
	}
	return c.ch.Close()
}

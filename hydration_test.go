package asyncdata

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
)

func counting[T any](n *atomic.Int32, v T) Producer[T] {
	return func(context.Context, *App) (T, error) {
		n.Add(1)
		return v, nil
	}
}

func TestHydrationAdoptsPayloadWithoutProducing(t *testing.T) {
	hooks := &countHooks{}
	doc := &Document{Data: map[string]any{"k": 7}, ServerRendered: true}
	app := newClientApp(t, doc, func(o *AppOptions) { o.Hooks = hooks })
	if !app.IsHydrating() {
		t.Fatalf("client restored from a server render must start hydrating")
	}

	var calls atomic.Int32
	h := use(t, app, Options[int]{Key: "k"}, counting(&calls, 1))
	st := h.State()
	if st.Pending || st.Status != StatusSuccess || h.Data() != 7 {
		t.Fatalf("adopted state: %+v", st)
	}

	// refreshing a cached key while hydrating is short-circuited too
	wait(t, h.Refresh(ExecuteOptions{}))
	if calls.Load() != 0 || hooks.reused.Load() != 1 {
		t.Fatalf("calls=%d reused=%d", calls.Load(), hooks.reused.Load())
	}

	release := app.DeferHydration()
	release()
	wait(t, h.Refresh(ExecuteOptions{}))
	if calls.Load() != 1 || h.Data() != 1 {
		t.Fatalf("after hydration: calls=%d data=%d", calls.Load(), h.Data())
	}
}

func TestHydrationRestoresPayloadErrors(t *testing.T) {
	doc := &Document{
		Data:           map[string]any{"e": nil},
		Errors:         map[string]*PayloadError{"e": {StatusCode: 404, Message: "not found"}},
		ServerRendered: true,
	}
	app := newClientApp(t, doc, nil)
	var calls atomic.Int32
	h := use(t, app, Options[string]{Key: "e"}, counting(&calls, "x"))

	var pe *PayloadError
	if !errors.As(h.Error(), &pe) || pe.StatusCode != 404 {
		t.Fatalf("restored error: %v", h.Error())
	}
	if h.Status() != StatusError || h.Pending() || calls.Load() != 0 {
		t.Fatalf("state=%+v calls=%d", h.State(), calls.Load())
	}
}

func TestServerRenderRoundTripsToClient(t *testing.T) {
	var serverCalls, clientCalls atomic.Int32
	srv := newServerApp(t, nil)
	use(t, srv, Options[user]{Key: "u"}, counting(&serverCalls, user{ID: "1", Name: "Ada"}))
	doc, err := srv.Render(context.Background(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Document
	if err := json.Unmarshal(b, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	cli := newClientApp(t, &restored, nil)
	h := use(t, cli, Options[user]{Key: "u"}, counting(&clientCalls, user{}))
	got, err := h.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if got != (user{ID: "1", Name: "Ada"}) || serverCalls.Load() != 1 || clientCalls.Load() != 0 {
		t.Fatalf("got=%+v server=%d client=%d", got, serverCalls.Load(), clientCalls.Load())
	}
}

func TestDeferHydrationCompletesAfterLastRelease(t *testing.T) {
	app := newClientApp(t, &Document{ServerRendered: true}, nil)
	var ready atomic.Int32
	app.OnReady(func() { ready.Add(1) })

	r1 := app.DeferHydration()
	r2 := app.DeferHydration()
	r1()
	r1()
	if !app.IsHydrating() || ready.Load() != 0 {
		t.Fatalf("hydration ended early: hydrating=%v ready=%d", app.IsHydrating(), ready.Load())
	}
	r2()
	if app.IsHydrating() || ready.Load() != 1 {
		t.Fatalf("hydration did not end: hydrating=%v ready=%d", app.IsHydrating(), ready.Load())
	}
	select {
	case <-app.HydrationResolved():
	default:
		t.Fatalf("resolved channel still open")
	}

	// after hydration OnReady runs right away and releases are no-ops
	app.OnReady(func() { ready.Add(1) })
	app.DeferHydration()()
	if ready.Load() != 2 {
		t.Fatalf("late OnReady: %d", ready.Load())
	}
}

func TestNonHydratingClientIsReady(t *testing.T) {
	app := newClientApp(t, nil, nil)
	if app.IsHydrating() {
		t.Fatalf("client without a server render must not hydrate")
	}
	select {
	case <-app.HydrationResolved():
	default:
		t.Fatalf("resolved channel must be closed")
	}
}

func TestHydratingMissesWaitForMount(t *testing.T) {
	app := newClientApp(t, &Document{ServerRendered: true}, nil)
	c := NewInstance()
	var calls atomic.Int32
	use(t, app, Options[int]{Key: "x", Component: c}, counting(&calls, 1))
	use(t, app, Options[int]{Key: "y", Component: c}, counting(&calls, 2))
	if calls.Load() != 0 {
		t.Fatalf("producer ran before mount")
	}

	c.Mount()
	wait(t, app.inflightFuture("x"))
	wait(t, app.inflightFuture("y"))
	if calls.Load() != 2 {
		t.Fatalf("mount must run the deferred batch: calls=%d", calls.Load())
	}
}

func TestDeferredBatchDroppedOnUnmount(t *testing.T) {
	app := newClientApp(t, nil, nil)
	c := NewInstance()
	var calls atomic.Int32
	useLazy(t, app, Options[int]{Key: "lazy", Component: c}, counting(&calls, 1))

	c.Unmount()
	c.Mount()
	if calls.Load() != 0 {
		t.Fatalf("unmounted component ran its deferred batch")
	}
}

func TestLazyWithoutComponentRunsImmediately(t *testing.T) {
	app := newClientApp(t, nil, nil)
	var calls atomic.Int32
	h := useLazy(t, app, Options[int]{Key: "lazy"}, counting(&calls, 3))
	wait(t, h.initial)
	if calls.Load() != 1 || h.Data() != 3 {
		t.Fatalf("calls=%d data=%d", calls.Load(), h.Data())
	}
}

package asyncdata

import (
	"context"
	"errors"
	"testing"
	"time"

	gen "github.com/unkn0wn-root/asyncdata/genstore"
)

// slowGens wraps a local store with a gate on Bump and injectable failures.
type slowGens struct {
	*gen.LocalGenStore
	gate    chan struct{}
	bumpErr error
	snapErr error
}

func newSlowGens() *slowGens {
	return &slowGens{LocalGenStore: gen.NewLocalGenStore()}
}

func (g *slowGens) Bump(ctx context.Context, k string) (uint64, error) {
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if g.bumpErr != nil {
		return 0, g.bumpErr
	}
	return g.LocalGenStore.Bump(ctx, k)
}

func (g *slowGens) Snapshot(ctx context.Context, k string) (uint64, error) {
	if g.snapErr != nil {
		return 0, g.snapErr
	}
	return g.LocalGenStore.Snapshot(ctx, k)
}

func within(t *testing.T, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s blocked", what)
	}
}

func TestSlowGenStoreDoesNotBlockApp(t *testing.T) {
	gens := newSlowGens()
	gens.gate = make(chan struct{})
	app := newClientApp(t, nil, func(o *AppOptions) { o.GenStore = gens })

	var (
		h   *AsyncData[string]
		err error
	)
	within(t, "UseAsyncData", func() { h, err = UseAsyncData(app, Options[string]{Key: "k"}, value("v")) })
	if err != nil {
		t.Fatalf("UseAsyncData: %v", err)
	}
	if st := h.State(); !st.Pending || st.Status != StatusPending {
		t.Fatalf("want pending while the token is taken, got %+v", st)
	}
	within(t, "Keys", func() { _ = app.Keys() })
	within(t, "ClearData", func() { app.ClearData("other") })
	within(t, "Refresh", func() { _ = h.Refresh(ExecuteOptions{Dedupe: DedupeDefer}) })

	close(gens.gate)
	wait(t, h.initial)
	if st := h.State(); st.Pending || st.Status != StatusSuccess || st.Data != "v" {
		t.Fatalf("after bump: %+v", st)
	}
}

func TestGenBumpFailureFailsEntry(t *testing.T) {
	boom := errors.New("store down")
	gens := newSlowGens()
	gens.bumpErr = boom
	hooks := &countHooks{}
	app := newClientApp(t, nil, func(o *AppOptions) {
		o.GenStore = gens
		o.Hooks = hooks
	})

	called := false
	h := use(t, app, Options[string]{Key: "k", Default: func() string { return "d" }},
		func(context.Context, *App) (string, error) {
			called = true
			return "v", nil
		})
	wait(t, h.initial)

	st := h.State()
	if st.Pending || st.Status != StatusError || !errors.Is(st.Err, boom) || st.Data != "d" {
		t.Fatalf("want error state with default, got %+v", st)
	}
	if called {
		t.Fatalf("producer ran without a token")
	}
	if hooks.genErrs.Load() != 1 || hooks.failed.Load() != 0 {
		t.Fatalf("hooks: gen=%d failed=%d", hooks.genErrs.Load(), hooks.failed.Load())
	}
}

func TestGenSnapshotFailureFailsEntry(t *testing.T) {
	boom := errors.New("store down")
	gens := newSlowGens()
	gens.snapErr = boom
	hooks := &countHooks{}
	app := newClientApp(t, nil, func(o *AppOptions) {
		o.GenStore = gens
		o.Hooks = hooks
	})

	h := use(t, app, Options[string]{Key: "k"}, value("v"))
	wait(t, h.initial)
	if st := h.State(); st.Pending || st.Status != StatusError || !errors.Is(st.Err, boom) {
		t.Fatalf("want error state, got %+v", st)
	}
	if hooks.genErrs.Load() != 1 {
		t.Fatalf("GenError fired %d times", hooks.genErrs.Load())
	}
}

func TestExternalGenBumpDropsResult(t *testing.T) {
	gens := gen.NewLocalGenStore()
	hooks := &countHooks{}
	app := newClientApp(t, nil, func(o *AppOptions) {
		o.GenStore = gens
		o.Hooks = hooks
	})
	s := newScripted(1)
	h := use(t, app, Options[string]{Key: "k"}, s.produce)
	s.awaitStart(t, 1)

	// another holder of the store invalidates the key mid-flight
	if _, err := gens.Bump(context.Background(), "k"); err != nil {
		t.Fatalf("Bump: %v", err)
	}
	close(s.gates[0])
	wait(t, h.initial)

	app.mu.Lock()
	inflight := len(app.inflight)
	_, stored := app.payload.Data["k"]
	app.mu.Unlock()
	if st := h.State(); st.Pending || st.Status != StatusIdle || h.Data() != "" {
		t.Fatalf("want idle without data, got %+v", st)
	}
	if inflight != 0 || stored {
		t.Fatalf("inflight=%d stored=%v", inflight, stored)
	}
	if hooks.superseded.Load() != 1 {
		t.Fatalf("superseded hook fired %d times", hooks.superseded.Load())
	}
}

func TestClearDuringSlowBumpKeepsLaterExecution(t *testing.T) {
	gens := newSlowGens()
	gens.gate = make(chan struct{})
	app := newClientApp(t, nil, func(o *AppOptions) { o.GenStore = gens })

	h := use(t, app, Options[string]{Key: "k"}, value("v1"))
	first := h.initial
	app.ClearData("k")
	second := h.Refresh(ExecuteOptions{})

	close(gens.gate)
	wait(t, first)
	wait(t, second)
	if st := h.State(); st.Pending || st.Status != StatusSuccess || st.Data != "v1" {
		t.Fatalf("later execution lost to an earlier bump: %+v", st)
	}
}

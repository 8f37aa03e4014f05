package asyncdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type countHooks struct {
	NopHooks
	superseded atomic.Int32
	failed     atomic.Int32
	reused     atomic.Int32
	genErrs    atomic.Int32
}

func (h *countHooks) ExecutionSuperseded(string)    { h.superseded.Add(1) }
func (h *countHooks) ExecutionFailed(string, error) { h.failed.Add(1) }
func (h *countHooks) HydrationReused(string)        { h.reused.Add(1) }
func (h *countHooks) GenError(string, error)        { h.genErrs.Add(1) }

func newClientApp(t *testing.T, doc *Document, optsOpt func(*AppOptions)) *App {
	t.Helper()
	opts := AppOptions{Env: EnvClient, Payload: doc}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	app, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func newServerApp(t *testing.T, optsOpt func(*AppOptions)) *App {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	opts := AppOptions{Env: EnvServer, Event: &RequestEvent{Request: req, Response: httptest.NewRecorder()}}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	app, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func value[T any](v T) Producer[T] {
	return func(context.Context, *App) (T, error) { return v, nil }
}

func wait(t *testing.T, f *Future) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.Wait(ctx); err != nil {
		t.Fatalf("future did not settle: %v", err)
	}
}

func use[T any](t *testing.T, app *App, opts Options[T], p Producer[T]) *AsyncData[T] {
	t.Helper()
	h, err := UseAsyncData(app, opts, p)
	if err != nil {
		t.Fatalf("UseAsyncData: %v", err)
	}
	return h
}

func useLazy[T any](t *testing.T, app *App, opts Options[T], p Producer[T]) *AsyncData[T] {
	t.Helper()
	h, err := UseLazyAsyncData(app, opts, p)
	if err != nil {
		t.Fatalf("UseLazyAsyncData: %v", err)
	}
	return h
}

func isDone(f *Future) bool {
	select {
	case <-f.Done():
		return true
	default:
		return false
	}
}

package asyncdata

import (
	"context"
	"slices"
	"strings"
	"testing"
)

func settledHandle(t *testing.T, app *App, key string, v int) *AsyncData[int] {
	t.Helper()
	h := use(t, app, Options[int]{Key: key}, value(v))
	wait(t, h.initial)
	return h
}

func assertIdle(t *testing.T, h *AsyncData[int]) {
	t.Helper()
	st := h.State()
	if st.Data != nil || st.Err != nil || st.Pending || st.Status != StatusIdle {
		t.Fatalf("%s not reset: %+v", h.Key(), st)
	}
}

func TestClearDataAll(t *testing.T) {
	app := newClientApp(t, nil, nil)
	a := settledHandle(t, app, "a", 1)
	b := settledHandle(t, app, "b", 2)

	app.ClearData()
	assertIdle(t, a)
	assertIdle(t, b)
	if doc := app.Payload(); len(doc.Data) != 0 || len(doc.Errors) != 0 {
		t.Fatalf("payload not cleared: %+v", doc)
	}
}

func TestClearDataOneKey(t *testing.T) {
	app := newClientApp(t, nil, nil)
	a := settledHandle(t, app, "a", 1)
	b := settledHandle(t, app, "b", 2)

	app.ClearData("a", "never-registered")
	assertIdle(t, a)
	if b.Data() != 2 || b.Status() != StatusSuccess {
		t.Fatalf("b must be untouched: %+v", b.State())
	}
	if _, ok := app.PayloadData("a"); ok {
		t.Fatalf("payload still holds a")
	}
}

func TestClearDataFunc(t *testing.T) {
	app := newClientApp(t, nil, nil)
	u1 := settledHandle(t, app, "user:1", 1)
	p1 := settledHandle(t, app, "post:1", 2)

	app.ClearDataFunc(func(k string) bool { return strings.HasPrefix(k, "user:") })
	assertIdle(t, u1)
	if p1.Status() != StatusSuccess {
		t.Fatalf("post:1 cleared by a non-matching filter")
	}
}

func TestClearDuringExecutionDiscardsLateResult(t *testing.T) {
	hooks := &countHooks{}
	app := newClientApp(t, nil, func(o *AppOptions) { o.Hooks = hooks })
	release := make(chan struct{})
	h := use(t, app, Options[int]{Key: "slow"}, func(ctx context.Context, _ *App) (int, error) {
		<-release
		return 9, nil
	})

	app.ClearData("slow")
	close(release)
	wait(t, h.initial)

	assertIdle(t, h)
	if _, ok := app.PayloadData("slow"); ok {
		t.Fatalf("late settlement resurrected the payload value")
	}
	if hooks.superseded.Load() != 1 {
		t.Fatalf("superseded hook: %d", hooks.superseded.Load())
	}
}

func TestKeysUnionsPayloadAndEntries(t *testing.T) {
	app := newClientApp(t, &Document{Data: map[string]any{"p": 1}}, nil)
	use(t, app, Options[int]{Key: "e", DisableImmediate: true}, value(1))
	got := app.Keys()
	if len(got) != 2 || got[0] != "e" || got[1] != "p" {
		t.Fatalf("Keys: %v", got)
	}
}

func TestUseDataCreatesKeyAndFollowsExecutions(t *testing.T) {
	app := newClientApp(t, nil, nil)
	if _, err := app.UseData(""); err != ErrInvalidKey {
		t.Fatalf("empty key: err=%v", err)
	}

	e, err := app.UseData("later")
	if err != nil {
		t.Fatalf("UseData: %v", err)
	}
	if d := e.State().Data; d != nil {
		t.Fatalf("new key data=%v, want nil", d)
	}
	if keys := app.Keys(); !slices.Contains(keys, "later") {
		t.Fatalf("UseData did not register the key: %v", keys)
	}

	seen := make(chan State, 8)
	stop := e.Subscribe(func(st State) { seen <- st })
	defer stop()

	h := settledHandle(t, app, "later", 7)
	if e.State().Data != 7 {
		t.Fatalf("entry does not follow the execution: %+v", e.State())
	}
	select {
	case <-seen:
	default:
		t.Fatalf("subscriber not notified")
	}

	if err := app.SetData("later", 8); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if h.Data() != 8 {
		t.Fatalf("handle data=%d after SetData", h.Data())
	}
	if v, ok := app.PayloadData("later"); !ok || v != 8 {
		t.Fatalf("payload data=%v ok=%v", v, ok)
	}
}

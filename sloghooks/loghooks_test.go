package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactsKeysAndSamples(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := New(l, Options{SupersededEvery: 2})

	h.ExecutionFailed("user:42", errors.New("boom"))
	if out := buf.String(); strings.Contains(out, "user:42") || !strings.Contains(out, "boom") {
		t.Fatalf("failed event: %q", out)
	}

	buf.Reset()
	for i := 0; i < 4; i++ {
		h.ExecutionSuperseded("k")
	}
	if n := strings.Count(buf.String(), "asyncdata.execution_superseded"); n != 2 {
		t.Fatalf("sampled events: %d", n)
	}
}

func TestCustomRedactor(t *testing.T) {
	var buf bytes.Buffer
	h := New(slog.New(slog.NewTextHandler(&buf, nil)), Options{Redact: func(string) string { return "X" }})
	h.ProviderSetRejected("payload:ns:/secret")
	if !strings.Contains(buf.String(), "key=X") {
		t.Fatalf("redactor not applied: %q", buf.String())
	}
}

func TestNilLoggerIsSilent(t *testing.T) {
	h := New(nil, Options{})
	h.GenError("k", errors.New("x"))
	h.PayloadSelfHeal("k", "corrupt")
}

package slog

import (
	"bytes"
	"errors"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/asyncdata"
)

func TestGroupedSortedFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(stdslog.New(stdslog.NewTextHandler(&buf, nil)))

	l.Debug("dropped", asyncdata.Fields{"key": "k"})
	if buf.Len() != 0 {
		t.Fatalf("debug must be filtered at info level: %q", buf.String())
	}

	l.Error("asyncdata: gen error", asyncdata.Fields{"key": "k", "err": errors.New("down")})
	out := buf.String()
	if !strings.Contains(out, "asyncdata.err=down asyncdata.key=k") {
		t.Fatalf("record: %q", out)
	}
}

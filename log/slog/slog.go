//go:build go1.21

// Package slog adapts a *log/slog.Logger to asyncdata.Logger.
package slog

import (
	"context"
	stdslog "log/slog"
	"sort"

	"github.com/unkn0wn-root/asyncdata"
)

var _ asyncdata.Logger = Logger{}

type Logger struct{ L *stdslog.Logger }

// New groups every record's fields under "asyncdata".
func New(l *stdslog.Logger) Logger { return Logger{L: l.WithGroup("asyncdata")} }

func (s Logger) Debug(msg string, f asyncdata.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f asyncdata.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f asyncdata.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f asyncdata.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(level stdslog.Level, msg string, f asyncdata.Fields) {
	ctx := context.Background()
	if !s.L.Enabled(ctx, level) {
		return
	}
	s.L.LogAttrs(ctx, level, msg, attrs(f)...)
}

func attrs(f asyncdata.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]stdslog.Attr, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, stdslog.String(k, err.Error()))
			continue
		}
		out = append(out, stdslog.Any(k, f[k]))
	}
	return out
}

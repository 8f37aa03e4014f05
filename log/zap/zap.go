// Package zap adapts a *zap.Logger to asyncdata.Logger.
package zap

import (
	"sort"

	"github.com/unkn0wn-root/asyncdata"
	"go.uber.org/zap"
)

var _ asyncdata.Logger = Logger{}

// Logger writes asyncdata records through L. Fields are emitted in key order;
// error values become zap.Error fields under their key.
type Logger struct{ L *zap.Logger }

// New names l "asyncdata" so records can be filtered by logger name.
func New(l *zap.Logger) Logger { return Logger{L: l.Named("asyncdata")} }

func (z Logger) Debug(msg string, f asyncdata.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f asyncdata.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f asyncdata.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f asyncdata.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f asyncdata.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}

// Package zerolog adapts a zerolog.Logger to asyncdata.Logger.
package zerolog

import (
	"github.com/rs/zerolog"
	"github.com/unkn0wn-root/asyncdata"
)

var _ asyncdata.Logger = Logger{}

type Logger struct{ L zerolog.Logger }

func New(l zerolog.Logger) Logger {
	return Logger{L: l.With().Str("component", "asyncdata").Logger()}
}

func (z Logger) Debug(msg string, f asyncdata.Fields) { send(z.L.Debug(), msg, f) }
func (z Logger) Info(msg string, f asyncdata.Fields)  { send(z.L.Info(), msg, f) }
func (z Logger) Warn(msg string, f asyncdata.Fields)  { send(z.L.Warn(), msg, f) }
func (z Logger) Error(msg string, f asyncdata.Fields) { send(z.L.Error(), msg, f) }

// e is nil when the level is disabled; zerolog's methods are nil-safe.
func send(e *zerolog.Event, msg string, f asyncdata.Fields) {
	for k, v := range f {
		if err, ok := v.(error); ok {
			e = e.AnErr(k, err)
			continue
		}
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}

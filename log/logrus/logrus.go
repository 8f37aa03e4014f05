// Package logrus adapts a *logrus.Entry to asyncdata.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/asyncdata"
)

var _ asyncdata.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New tags every record with component=asyncdata.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "asyncdata")}
}

func (l Logger) Debug(msg string, f asyncdata.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f asyncdata.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f asyncdata.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f asyncdata.Fields) { l.with(f).Error(msg) }

// with moves an "err" field to logrus.ErrorKey so formatters render it.
func (l Logger) with(f asyncdata.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			lf[logrus.ErrorKey] = err
			continue
		}
		lf[k] = v
	}
	return l.E.WithFields(lf)
}

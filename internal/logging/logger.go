// Package logging provides the structured logger used throughout the cache
// core. Every component takes a Logger as an explicit constructor argument;
// there is no package-level logger and no global state.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the logging seam every component depends on. Keeping it this
// small means tests can supply a no-op or recording implementation without
// pulling in zerolog.
type Logger interface {
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
}

// zerologLogger adapts zerolog.Logger to the Logger interface, pairing kv
// arguments two at a time ("key", value, "key", value, ...).
type zerologLogger struct {
	z zerolog.Logger
}

// New returns a Logger that writes structured, leveled output via zerolog.
func New(component string) Logger {
	z := zerolog.New(os.Stderr).With().Timestamp().Str("component", component).Logger()
	return &zerologLogger{z: z}
}

func (l *zerologLogger) Debug(msg string, kv ...interface{}) { l.event(l.z.Debug(), msg, kv) }
func (l *zerologLogger) Info(msg string, kv ...interface{})  { l.event(l.z.Info(), msg, kv) }
func (l *zerologLogger) Warn(msg string, kv ...interface{})  { l.event(l.z.Warn(), msg, kv) }
func (l *zerologLogger) Error(msg string, kv ...interface{}) { l.event(l.z.Error(), msg, kv) }

func (l *zerologLogger) event(e *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}

// Nop returns a Logger that discards everything. Useful as a test default.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

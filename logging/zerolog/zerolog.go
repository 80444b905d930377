// Package zerolog implements core.Logger on top of rs/zerolog.
package zerolog

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/Swind/go-forkjoin/core"
)

type Logger struct {
	Z zerolog.Logger
}

// compile time assertion
var _ core.Logger = (*Logger)(nil)

// New returns a Logger writing JSON lines to w, tagged with a component
// field.
func New(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{Z: zerolog.New(w).Level(level).With().Timestamp().Str("component", "forkjoin").Logger()}
}

func (x *Logger) Debug(msg string, fields ...core.Field) { x.write(x.Z.Debug(), msg, fields) }
func (x *Logger) Info(msg string, fields ...core.Field)  { x.write(x.Z.Info(), msg, fields) }
func (x *Logger) Warn(msg string, fields ...core.Field)  { x.write(x.Z.Warn(), msg, fields) }
func (x *Logger) Error(msg string, fields ...core.Field) { x.write(x.Z.Error(), msg, fields) }

func (x *Logger) write(e *zerolog.Event, msg string, fields []core.Field) {
	// disabled levels return a nil event
	if e == nil {
		return
	}
	if len(fields) > 0 {
		e = e.Fields(core.Fields(fields))
	}
	e.Msg(msg)
}

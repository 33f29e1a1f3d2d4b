// Package enginelog provides the engine's control/idle-thread logger.
//
// The teacher (clapgo) forwards log calls to its host's CLAP_EXT_LOG
// extension, because clapgo builds plugins that run inside someone else's
// host. This module IS the host, so there is nothing upstream to forward
// to - instead every Engine owns a *Logger backed directly by
// charmbracelet/log, with the teacher's five-level severity naming kept
// (Debug/Info/Warning/Error/Fatal) for continuity with the rest of the
// package layout.
//
// Never call a Logger method from the RT thread: charmbracelet/log
// allocates and performs I/O. RT-thread diagnostics travel through
// pkg/queue's post-RT ring as Debug events, which the engine's idle
// thread relays as DebugEvent callbacks (see pkg/engine).
package enginelog

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger is a thin, leveled wrapper around charmbracelet/log.
type Logger struct {
	l      *log.Logger
	prefix string
}

// New creates a Logger writing to w (os.Stderr if w is nil) with the given prefix.
func New(w io.Writer, prefix string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	return &Logger{l: l, prefix: prefix}
}

// With returns a child logger sharing the same writer, prefixed with name.
func (lg *Logger) With(name string) *Logger {
	if lg == nil {
		return nil
	}
	child := lg.l.With("component", name)
	return &Logger{l: child, prefix: lg.prefix}
}

func (lg *Logger) Debug(msg string) {
	if lg != nil {
		lg.l.Debug(msg)
	}
}

func (lg *Logger) Info(msg string) {
	if lg != nil {
		lg.l.Info(msg)
	}
}

func (lg *Logger) Warning(msg string) {
	if lg != nil {
		lg.l.Warn(msg)
	}
}

func (lg *Logger) Error(msg string) {
	if lg != nil {
		lg.l.Error(msg)
	}
}

func (lg *Logger) Fatal(msg string) {
	if lg != nil {
		lg.l.Fatal(msg)
	}
}

func (lg *Logger) Debugf(format string, args ...interface{}) { lg.Debug(fmt.Sprintf(format, args...)) }
func (lg *Logger) Infof(format string, args ...interface{})  { lg.Info(fmt.Sprintf(format, args...)) }
func (lg *Logger) Warningf(format string, args ...interface{}) {
	lg.Warning(fmt.Sprintf(format, args...))
}
func (lg *Logger) Errorf(format string, args ...interface{}) { lg.Error(fmt.Sprintf(format, args...)) }

// Package carlaerr implements the engine's error-kind taxonomy.
//
// Every public engine call returns a plain error; callers that need to
// branch on the failure category use errors.As to recover an *Error and
// inspect its Kind. The engine's RT-path calls (Process, ProcessPatchbay)
// return an *Error like any other call and also report it through the
// engine's Error callback action (see pkg/engine).
package carlaerr

import (
	"errors"
	"fmt"
)

// Kind is one of the error categories the engine distinguishes.
type Kind int

const (
	// Driver covers device/client open, activation, and async shutdown failures.
	Driver Kind = iota
	// PluginLoad covers library load, symbol, instantiation, and discovery failures.
	PluginLoad
	// InvalidState covers activate/deactivate misordering and operating on missing ids.
	InvalidState
	// InvalidArgument covers out-of-range indices, channels, and buffer size mismatches.
	InvalidArgument
	// Capacity covers a full registry, a full event buffer, or ring overflow.
	Capacity
	// RtDrainTimeout covers a bounded wait for the RT thread to observe a state change.
	RtDrainTimeout
	// UnsupportedFormat covers a file that doesn't match its claimed format or a missing feature.
	UnsupportedFormat
)

func (k Kind) String() string {
	switch k {
	case Driver:
		return "driver"
	case PluginLoad:
		return "plugin-load"
	case InvalidState:
		return "invalid-state"
	case InvalidArgument:
		return "invalid-argument"
	case Capacity:
		return "capacity"
	case RtDrainTimeout:
		return "rt-drain-timeout"
	case UnsupportedFormat:
		return "unsupported-format"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by public engine calls.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error that wraps cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

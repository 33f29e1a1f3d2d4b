// Package param implements the per-plugin parameter model (spec §3,
// §4.D): ranges, current/default values, MIDI CC bindings, and RT-safe
// atomic storage so the control thread can read a parameter's current
// value without synchronising with the RT thread.
package param

import (
	"errors"
	"sync/atomic"
	"unsafe"
)

// Common parameter errors.
var (
	ErrInvalidParam      = errors.New("param: invalid parameter ID")
	ErrListenerLimit     = errors.New("param: listener limit reached")
	ErrValueBelowMinimum = errors.New("param: value below minimum")
	ErrValueAboveMaximum = errors.New("param: value above maximum")
	ErrParameterExists   = errors.New("param: parameter ID already exists")
)

// MaxListeners bounds how many change listeners a Manager may register.
const MaxListeners = 16

// Flag bits describing parameter behaviour (kept from the teacher's flag
// vocabulary; IsBoundedBelow/IsBoundedAbove are exposed as functions
// rather than flag aliases, since "is this bounded" is a query, not a
// settable bit distinct from the Flag it tests).
const (
	FlagAutomatable     uint32 = 1 << 0
	FlagModulatable     uint32 = 1 << 1
	FlagStepped         uint32 = 1 << 2
	FlagReadonly        uint32 = 1 << 3
	FlagHidden          uint32 = 1 << 4
	FlagBypass          uint32 = 1 << 5
	FlagBoundedBelow    uint32 = 1 << 6
	FlagBoundedAbove    uint32 = 1 << 7
	FlagRequiresProcess uint32 = 1 << 8
)

func IsBoundedBelow(flags uint32) bool { return flags&FlagBoundedBelow != 0 }
func IsBoundedAbove(flags uint32) bool { return flags&FlagBoundedAbove != 0 }

// Ranges holds a parameter's bounds and its three step granularities
// (spec §3: "ranges: {min, max, def, step, step_small, step_large}").
type Ranges struct {
	Min       float64
	Max       float64
	Default   float64
	Step      float64
	StepSmall float64
	StepLarge float64
}

// Info is a parameter's static description (spec §3): name, unit, flags,
// ranges, and MIDI CC/channel binding. MidiCC and MidiChannel are -1 when
// unbound/omni.
type Info struct {
	ID          uint32
	Name        string
	Unit        string
	Module      string // grouping path, e.g. "Filter/Cutoff"
	Flags       uint32
	Ranges      Ranges
	MidiCC      int32
	MidiChannel int32
}

// Parameter pairs an Info with RT-safe current-value storage. The value
// is stored as float64 bits in an int64 (teacher's pkg/param/atomic.go
// idiom) so the control thread can read a parameter touched by the RT
// thread's fast path without locking.
type Parameter struct {
	Info  Info
	value int64
}

// NewParameter creates a parameter initialised to its default value.
func NewParameter(info Info) *Parameter {
	p := &Parameter{Info: info}
	atomic.StoreInt64(&p.value, floatToBits(info.Ranges.Default))
	return p
}

// Value returns the current value atomically.
func (p *Parameter) Value() float64 {
	return bitsToFloat(atomic.LoadInt64(&p.value))
}

// SetValue clamps value to the parameter's range, stores it atomically,
// and returns the stored (post-clamp) value.
func (p *Parameter) SetValue(value float64) float64 {
	value = ClampValue(value, p.Info.Ranges.Min, p.Info.Ranges.Max)
	atomic.StoreInt64(&p.value, floatToBits(value))
	return value
}

func floatToBits(f float64) int64 {
	return int64(*(*uint64)(unsafe.Pointer(&f)))
}

func bitsToFloat(b int64) float64 {
	return *(*float64)(unsafe.Pointer(&b))
}

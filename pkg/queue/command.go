// Package queue implements the two single-producer/single-consumer rings
// that cross the control/RT thread boundary (spec §4.F): a Command ring
// (control -> RT) and a PostRtEvent ring (RT -> control). Both are
// fixed-capacity arrays with atomic head/tail indices, following the
// teacher's float-as-bits atomic-storage idiom (pkg/util/atomic.go) rather
// than channels, since channels may block or allocate and the RT side of
// this boundary must never do either.
package queue

import "sync/atomic"

// CommandKind enumerates the control-to-RT command variants (spec §4.F).
type CommandKind int32

const (
	PluginEnable CommandKind = iota
	PluginDisable
	SetParam
	SetProgram
	SetMidiProgram
	NoteOn
	NoteOff
	PanicAll
)

// Command is one control-to-RT message. Not every field is meaningful for
// every Kind; see the spec §4.F table for the per-kind payload.
type Command struct {
	Kind     CommandKind
	PluginID uint32
	Index    int32   // parameter/program/midi-program index
	Value    float32 // SetParam value
	Channel  uint8   // NoteOn/NoteOff
	Note     uint8   // NoteOn/NoteOff
	Velocity uint8   // NoteOn
}

// CommandRingCapacity is the default ring size (spec §4.F: "e.g. 512 entries").
const CommandRingCapacity = 512

// CommandRing is a fixed-capacity SPSC ring of Command values. The control
// thread is the sole producer (Push); the RT thread is the sole consumer
// (Drain), called once at the top of every process cycle. Pushing past
// capacity is a contract violation the spec forbids ("drops are not
// permitted") - callers must size the ring for the worst-case write burst
// and treat a full ring as a bug, surfaced via the returned ok value.
type CommandRing struct {
	buf  [CommandRingCapacity]Command
	head uint64 // next slot to write (producer-owned)
	tail uint64 // next slot to read (consumer-owned)
}

// NewCommandRing creates an empty ring.
func NewCommandRing() *CommandRing { return &CommandRing{} }

// Push enqueues a command. Returns false if the ring is full; the spec
// requires callers never let this happen, so a false return indicates the
// producer side is misconfigured or the consumer has stalled.
func (r *CommandRing) Push(c Command) bool {
	head := atomic.LoadUint64(&r.head)
	tail := atomic.LoadUint64(&r.tail)
	if head-tail >= CommandRingCapacity {
		return false
	}
	r.buf[head%CommandRingCapacity] = c
	atomic.StoreUint64(&r.head, head+1)
	return true
}

// Drain appends every currently queued command to dst, in enqueue order,
// and returns the extended slice. Intended to be called once per process
// cycle from the RT thread.
func (r *CommandRing) Drain(dst []Command) []Command {
	head := atomic.LoadUint64(&r.head)
	tail := atomic.LoadUint64(&r.tail)
	for tail < head {
		dst = append(dst, r.buf[tail%CommandRingCapacity])
		tail++
	}
	atomic.StoreUint64(&r.tail, tail)
	return dst
}

// Len reports the number of commands currently queued.
func (r *CommandRing) Len() int {
	return int(atomic.LoadUint64(&r.head) - atomic.LoadUint64(&r.tail))
}

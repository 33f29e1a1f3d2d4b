package queue

import "sync/atomic"

// PostRtEventKind enumerates the RT-to-control event variants (spec §4.F).
type PostRtEventKind int32

const (
	ParameterChange PostRtEventKind = iota
	ProgramChange
	MidiProgramChange
	NoteOnEvent
	NoteOffEvent
	Debug
)

// PostRtEvent is one RT-to-control message, matching the spec's
// PluginPostRtEvent{kind, v1: i32, v2: i32, v3: f32} shape.
type PostRtEvent struct {
	Kind     PostRtEventKind
	PluginID uint32
	V1       int32
	V2       int32
	V3       float32
}

// PostRtRingCapacity bounds the ring; sized generously since it absorbs one
// event per parameter/note change across every active plugin per block.
const PostRtRingCapacity = 4096

// PostRtRing is the RT-to-control counterpart of CommandRing: the RT
// thread is the sole producer, the non-RT "idle" step is the sole
// consumer. Unlike CommandRing, a full ring here silently drops the
// newest event rather than blocking the RT thread - losing a debug or
// redundant parameter-echo event is preferable to ever stalling the audio
// callback.
type PostRtRing struct {
	buf      [PostRtRingCapacity]PostRtEvent
	head     uint64
	tail     uint64
	overflow uint64
}

// NewPostRtRing creates an empty ring.
func NewPostRtRing() *PostRtRing { return &PostRtRing{} }

// Push enqueues an event from the RT thread. Returns false (and bumps the
// overflow counter) if the ring is full.
func (r *PostRtRing) Push(e PostRtEvent) bool {
	head := atomic.LoadUint64(&r.head)
	tail := atomic.LoadUint64(&r.tail)
	if head-tail >= PostRtRingCapacity {
		atomic.AddUint64(&r.overflow, 1)
		return false
	}
	r.buf[head%PostRtRingCapacity] = e
	atomic.StoreUint64(&r.head, head+1)
	return true
}

// Drain appends every queued event to dst, preserving per-producer order
// (spec §4.F ordering guarantee), and returns the extended slice.
func (r *PostRtRing) Drain(dst []PostRtEvent) []PostRtEvent {
	head := atomic.LoadUint64(&r.head)
	tail := atomic.LoadUint64(&r.tail)
	for tail < head {
		dst = append(dst, r.buf[tail%PostRtRingCapacity])
		tail++
	}
	atomic.StoreUint64(&r.tail, tail)
	return dst
}

// Overflow reports how many events have been dropped due to a full ring.
func (r *PostRtRing) Overflow() uint64 { return atomic.LoadUint64(&r.overflow) }

// Len reports the number of events currently queued.
func (r *PostRtRing) Len() int {
	return int(atomic.LoadUint64(&r.head) - atomic.LoadUint64(&r.tail))
}

// Package port implements the engine's typed port model (spec §3, §4.A).
//
// A port is typed (audio / CV / event), directional (input / output), and
// has a process-mode-dependent identity: in rack/device mode its buffer is
// a plain Go slice owned by the engine; in patchbay/external-graph mode
// the same Port wraps a driver-native buffer handle instead. The port
// itself is stable for the client's lifetime; only the buffer binding
// changes, once per block, via Bind.
package port

import "github.com/carla-project/carla-engine/pkg/event"

// Kind identifies what a port carries.
type Kind int

const (
	Audio Kind = iota
	CV
	Event
)

func (k Kind) String() string {
	switch k {
	case Audio:
		return "audio"
	case CV:
		return "cv"
	case Event:
		return "event"
	default:
		return "unknown"
	}
}

// Direction identifies which way data flows through a port.
type Direction int

const (
	Input Direction = iota
	Output
)

// MaxEventsPerBlock bounds the number of events an event port buffers per cycle.
const MaxEventsPerBlock = 2048

// AudioPort is a single audio or CV channel's buffer for the current block.
//
// Its buffer is re-bound every cycle by Bind; the slice backing it may
// belong to the engine (rack/device mode) or be a zero-copy view into a
// driver-owned buffer (patchbay/external-graph mode) - AudioPort does not
// care which, it only requires len(buf) == block size while bound.
type AudioPort struct {
	kind      Kind // Audio or CV
	dir       Direction
	name      string
	formatIdx uint32 // format-level index into the owning plugin's port list
	buf       []float32
}

// NewAudioPort creates an audio or CV port; kind must be Audio or CV.
func NewAudioPort(kind Kind, dir Direction, name string, formatIdx uint32) *AudioPort {
	return &AudioPort{kind: kind, dir: dir, name: name, formatIdx: formatIdx}
}

func (p *AudioPort) Kind() Kind          { return p.kind }
func (p *AudioPort) Direction() Direction { return p.dir }
func (p *AudioPort) Name() string        { return p.name }
func (p *AudioPort) FormatIndex() uint32 { return p.formatIdx }

// Bind attaches buf as this port's buffer for the current block.
// buf is not copied; the caller retains ownership.
func (p *AudioPort) Bind(buf []float32) { p.buf = buf }

// Buffer returns the currently bound buffer. It is only valid between Bind
// calls for the same block and must not be retained past the block.
func (p *AudioPort) Buffer() []float32 { return p.buf }

// Clear zeroes the bound buffer. Called by the engine on internal output
// ports before a plugin writes into them.
func (p *AudioPort) Clear() {
	for i := range p.buf {
		p.buf[i] = 0
	}
}

// WriteBuffer flushes a CV output port's smoothed values. Audio ports are
// written in place by the plugin and need no explicit commit; some driver
// buffer types for CV ports require an explicit flush hook, matching the
// spec's write_buffer requirement for output CV ports.
func (p *AudioPort) WriteBuffer(flush func([]float32)) {
	if p.kind != CV || p.dir != Output || flush == nil {
		return
	}
	flush(p.buf)
}

// EventPort owns a bounded queue of EngineEvents for one direction of one client.
//
// For internal drivers (rack, device) the queue is a plain ring owned by
// the port. For graph drivers (external-graph, patchbay) a Port still
// exists at this level for API uniformity, but real event storage and
// transport is delegated to the driver; EventPort's ring is simply primed
// with events the driver handed the engine for this block, or drained of
// events the engine wants the driver to emit.
type EventPort struct {
	dir    Direction
	events []event.EngineEvent
}

// NewEventPort creates an event port in the given direction.
func NewEventPort(dir Direction) *EventPort {
	return &EventPort{dir: dir, events: make([]event.EngineEvent, 0, MaxEventsPerBlock)}
}

func (p *EventPort) Direction() Direction { return p.dir }

// Reset clears the port's event buffer at the start of a block.
func (p *EventPort) Reset() { p.events = p.events[:0] }

// Count returns the number of events currently queued (input side).
func (p *EventPort) Count() uint32 { return uint32(len(p.events)) }

// Get returns the event at index (input side). Reads from an output port
// are a contract violation per spec §4.A and return a neutral event.
func (p *EventPort) Get(index uint32) event.EngineEvent {
	if p.dir != Input || index >= uint32(len(p.events)) {
		return event.EngineEvent{}
	}
	return p.events[index]
}

// Push appends an event to the port's internal buffer. Used by the engine
// to prime an input port for the block, or by an output port's Write*
// helpers. Clips time to the final valid sample and drops events once
// MaxEventsPerBlock is reached (the buffer is bounded per spec §3).
func (p *EventPort) Push(e event.EngineEvent, blockSize uint32) bool {
	if len(p.events) >= MaxEventsPerBlock {
		return false
	}
	if blockSize > 0 && e.Time >= blockSize {
		e.Time = blockSize - 1
	}
	p.events = append(p.events, e)
	return true
}

// WriteControl appends a control event to an output port. Writes to an
// input port are a contract violation per spec §4.A and are silently dropped.
func (p *EventPort) WriteControl(time uint32, channel uint8, subkind event.ControlSubkind, param uint16, value float32, blockSize uint32) {
	if p.dir != Output {
		return
	}
	p.Push(event.EngineEvent{
		Time:    time,
		Channel: channel,
		Kind: event.Control{
			Subkind: subkind,
			ParamID: param,
			Value:   value,
		},
	}, blockSize)
}

// WriteMIDI appends a raw MIDI event to an output port.
func (p *EventPort) WriteMIDI(time uint32, channel uint8, portOffset uint8, data []byte, blockSize uint32) {
	if p.dir != Output || len(data) == 0 || len(data) > 3 {
		return
	}
	var buf [3]byte
	copy(buf[:], data)
	p.Push(event.EngineEvent{
		Time:    time,
		Channel: channel,
		Kind: event.Midi{
			PortOffset: portOffset,
			Data:       buf,
			Size:       uint8(len(data)),
		},
	}, blockSize)
}

// All returns a snapshot slice of the port's queued events, for iteration
// by processors that want to range over events rather than index-get them.
func (p *EventPort) All() []event.EngineEvent { return p.events }

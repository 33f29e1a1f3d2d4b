// Package bridge implements the sub-process bridge wire protocol (spec
// §6): a shared-memory audio/event page, a two-semaphore handshake
// (see internal/shm), and a line-oriented control channel carrying the
// OSC-style address handshake the original engine exchanges before any
// audio flows (spec's supplemented OSC control bridge addresses
// feature).
package bridge

import (
	"encoding/binary"
	"math"

	"github.com/carla-project/carla-engine/pkg/carlaerr"
	"github.com/carla-project/carla-engine/pkg/event"
)

// audioHeaderSize is the fixed prefix of the audio page: frame count,
// transport playing flag, frame position, and usecs (spec §4.I's
// TimeInfo, minus BBT - a bridged plugin doesn't need bar/beat position
// to produce correct audio).
const audioHeaderSize = 4 + 1 + 8 + 8

// AudioPage is the fixed-layout shared-memory region carrying one
// block's interleaved-stereo input/output and a compact transport
// snapshot. Its size is audioHeaderSize + 2*2*maxFrames*4 bytes.
type AudioPage struct {
	buf       []byte
	maxFrames uint32
}

// NewAudioPage wraps buf (backed by an shm.Segment) as an AudioPage
// sized for up to maxFrames frames of stereo in/out.
func NewAudioPage(buf []byte, maxFrames uint32) (*AudioPage, error) {
	want := audioHeaderSize + 2*2*int(maxFrames)*4
	if len(buf) < want {
		return nil, carlaerr.New(carlaerr.Capacity, "bridge: audio page smaller than maxFrames requires")
	}
	return &AudioPage{buf: buf, maxFrames: maxFrames}, nil
}

// WriteHeader stamps the block's frame count and transport snapshot
// (called by the parent before posting the server semaphore).
func (p *AudioPage) WriteHeader(frames uint32, playing bool, frame, usecs uint64) {
	binary.LittleEndian.PutUint32(p.buf[0:4], frames)
	if playing {
		p.buf[4] = 1
	} else {
		p.buf[4] = 0
	}
	binary.LittleEndian.PutUint64(p.buf[5:13], frame)
	binary.LittleEndian.PutUint64(p.buf[13:21], usecs)
}

// ReadHeader decodes the block's frame count and transport snapshot
// (called by the bridge child after waiting on the server semaphore).
func (p *AudioPage) ReadHeader() (frames uint32, playing bool, frame, usecs uint64) {
	frames = binary.LittleEndian.Uint32(p.buf[0:4])
	playing = p.buf[4] != 0
	frame = binary.LittleEndian.Uint64(p.buf[5:13])
	usecs = binary.LittleEndian.Uint64(p.buf[13:21])
	return
}

func (p *AudioPage) inOffset() int  { return audioHeaderSize }
func (p *AudioPage) outOffset() int { return audioHeaderSize + 2*int(p.maxFrames)*4 }

// WriteInput copies interleaved-stereo samples into the page's input
// region (parent side).
func (p *AudioPage) WriteInput(interleaved []float32) {
	writeFloats(p.buf[p.inOffset():], interleaved)
}

// ReadInput decodes frames*2 interleaved-stereo samples from the page's
// input region (child side).
func (p *AudioPage) ReadInput(frames uint32) []float32 {
	return readFloats(p.buf[p.inOffset():], int(frames)*2)
}

// WriteOutput copies interleaved-stereo samples into the page's output
// region (child side, after processing).
func (p *AudioPage) WriteOutput(interleaved []float32) {
	writeFloats(p.buf[p.outOffset():], interleaved)
}

// ReadOutput decodes frames*2 interleaved-stereo samples from the
// page's output region (parent side, after the client semaphore posts).
func (p *AudioPage) ReadOutput(frames uint32) []float32 {
	return readFloats(p.buf[p.outOffset():], int(frames)*2)
}

func writeFloats(dst []byte, samples []float32) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(dst[i*4:i*4+4], math.Float32bits(s))
	}
}

func readFloats(src []byte, count int) []float32 {
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4 : i*4+4]))
	}
	return out
}

// eventPageMax is the maximum events a page holds per block, matching
// port.MaxEventsPerBlock so a bridged plugin's event traffic can never
// exceed what a native-hosted one could produce.
const eventPageMax = 2048

// eventRecordSize is the fixed on-wire size of one encoded EngineEvent:
// time(4) + channel(1) + tag(1) + subkind/portOffset(1) + paramID(2) +
// value/midi-bytes(4+3) + size(1).
const eventRecordSize = 4 + 1 + 1 + 1 + 2 + 4 + 3 + 1

// EventPage is the fixed-layout shared-memory region carrying one
// block's outgoing events (post-processing parameter echoes, MIDI
// thru). Its size is 4 + eventPageMax*eventRecordSize bytes.
type EventPage struct {
	buf []byte
}

// NewEventPage wraps buf as an EventPage.
func NewEventPage(buf []byte) (*EventPage, error) {
	want := 4 + eventPageMax*eventRecordSize
	if len(buf) < want {
		return nil, carlaerr.New(carlaerr.Capacity, "bridge: event page too small")
	}
	return &EventPage{buf: buf}, nil
}

// WriteEvents encodes events into the page (child side, after Process).
// Events beyond eventPageMax are dropped; the caller should log this as
// a post-RT Debug event rather than fail the block.
func (p *EventPage) WriteEvents(events []event.EngineEvent) (dropped int) {
	n := len(events)
	if n > eventPageMax {
		dropped = n - eventPageMax
		n = eventPageMax
	}
	binary.LittleEndian.PutUint32(p.buf[0:4], uint32(n))
	for i := 0; i < n; i++ {
		encodeEvent(p.buf[4+i*eventRecordSize:4+(i+1)*eventRecordSize], events[i])
	}
	return dropped
}

// ReadEvents decodes the page's events (parent side).
func (p *EventPage) ReadEvents() []event.EngineEvent {
	n := int(binary.LittleEndian.Uint32(p.buf[0:4]))
	if n > eventPageMax {
		n = eventPageMax
	}
	out := make([]event.EngineEvent, n)
	for i := 0; i < n; i++ {
		out[i] = decodeEvent(p.buf[4+i*eventRecordSize : 4+(i+1)*eventRecordSize])
	}
	return out
}

const (
	tagControl byte = 0
	tagMidi    byte = 1
)

func encodeEvent(rec []byte, e event.EngineEvent) {
	binary.LittleEndian.PutUint32(rec[0:4], e.Time)
	rec[4] = e.Channel
	switch k := e.Kind.(type) {
	case event.Control:
		rec[5] = tagControl
		rec[6] = byte(k.Subkind)
		binary.LittleEndian.PutUint16(rec[7:9], k.ParamID)
		binary.LittleEndian.PutUint32(rec[9:13], math.Float32bits(k.Value))
	case event.Midi:
		rec[5] = tagMidi
		rec[6] = k.PortOffset
		copy(rec[9:12], k.Data[:])
		rec[15] = k.Size
	}
}

func decodeEvent(rec []byte) event.EngineEvent {
	e := event.EngineEvent{
		Time:    binary.LittleEndian.Uint32(rec[0:4]),
		Channel: rec[4],
	}
	switch rec[5] {
	case tagControl:
		e.Kind = event.Control{
			Subkind: event.ControlSubkind(rec[6]),
			ParamID: binary.LittleEndian.Uint16(rec[7:9]),
			Value:   math.Float32frombits(binary.LittleEndian.Uint32(rec[9:13])),
		}
	case tagMidi:
		var data [3]byte
		copy(data[:], rec[9:12])
		e.Kind = event.Midi{PortOffset: rec[6], Data: data, Size: rec[15]}
	}
	return e
}

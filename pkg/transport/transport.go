// Package transport implements the engine's Time & Transport model
// (spec §4.I): a point-in-time snapshot sampled once at block start and
// held immutable for the block's duration, plus an internal clock the
// engine runs when its driver has none of its own.
package transport

import (
	"math"
	"sync/atomic"
)

// BBT is the optional bars/beats/ticks musical position carried by a
// TimeInfo, mirroring the teacher's EngineTimeInfoBBT fields.
type BBT struct {
	Bar           int32
	Beat          int32
	Tick          int32
	BarStartTick  float64
	BeatsPerBar   float32
	BeatType      float32
	TicksPerBeat  float64
	BeatsPerMinute float64
}

// TimeInfo is the transport snapshot handed to a block's processing
// pass. It is a value type: once sampled it is never mutated in place.
type TimeInfo struct {
	Playing bool
	Frame   uint64
	Usecs   uint64
	BBT     *BBT // nil when the driver/clock has no musical position
}

// defaultBPM and defaultTimeSignature seed an internally-maintained BBT
// when no driver supplies one (spec §4.I "synthesised internally").
const (
	defaultBPM          = 120.0
	defaultBeatsPerBar  = 4.0
	defaultBeatType     = 4.0
	defaultTicksPerBeat = 1920.0
)

// Clock is the engine's internally-maintained transport, used whenever
// the active driver has no transport of its own (spec §4.I). All state
// is accessed only from the RT thread at block boundaries except Play/
// Pause/Relocate, which are called from the control thread and must not
// race a concurrent block snapshot; a single mutex-free design is
// achieved by storing frame/playing as atomics and reserving BBT
// recomputation for Snapshot itself, which the RT thread calls.
type Clock struct {
	sampleRate float64
	playing    int32  // atomic bool
	frame      uint64 // atomic
	bpm        int64  // atomic, float64 bits
	beatsPerBar float32
	beatType    float32
}

// NewClock creates an internal transport clock at sampleRate, stopped,
// at frame zero, defaulting to 120 BPM 4/4.
func NewClock(sampleRate float64) *Clock {
	c := &Clock{
		sampleRate:  sampleRate,
		beatsPerBar: defaultBeatsPerBar,
		beatType:    defaultBeatType,
	}
	atomic.StoreInt64(&c.bpm, int64(math.Float64bits(defaultBPM)))
	return c
}

// Play starts the clock (transport_play, spec §4.B).
func (c *Clock) Play() { atomic.StoreInt32(&c.playing, 1) }

// Pause stops the clock without resetting position (transport_pause).
func (c *Clock) Pause() { atomic.StoreInt32(&c.playing, 0) }

// IsPlaying reports whether the clock is currently running.
func (c *Clock) IsPlaying() bool { return atomic.LoadInt32(&c.playing) != 0 }

// Relocate jumps the clock to frame (transport_relocate, spec §4.B).
func (c *Clock) Relocate(frame uint64) { atomic.StoreUint64(&c.frame, frame) }

// SetBPM changes the clock's tempo; used by callers adjusting a project's
// internal tempo map (no BBT source exists otherwise).
func (c *Clock) SetBPM(bpm float64) { atomic.StoreInt64(&c.bpm, int64(math.Float64bits(bpm))) }

// Snapshot samples the clock into an immutable TimeInfo and advances its
// frame position by frames if playing, called once at each block's start
// (spec §4.I, §5 ordering step 1). sampleRate usecs are derived here
// since usecs is a function of frame and sample rate, not separately
// tracked state.
func (c *Clock) Snapshot(frames uint32) TimeInfo {
	playing := c.IsPlaying()
	frame := atomic.LoadUint64(&c.frame)
	bpm := math.Float64frombits(uint64(atomic.LoadInt64(&c.bpm)))

	usecs := uint64(0)
	if c.sampleRate > 0 {
		usecs = uint64(float64(frame) / c.sampleRate * 1_000_000)
	}

	ticksPerBeat := defaultTicksPerBeat
	beatsPerBar := float64(c.beatsPerBar)
	beatsPerSecond := bpm / 60.0
	ticksPerSecond := beatsPerSecond * ticksPerBeat
	totalTicks := float64(frame) / c.sampleRate * ticksPerSecond

	ticksPerBar := ticksPerBeat * beatsPerBar
	bar := int32(totalTicks/ticksPerBar) + 1
	tickInBar := totalTicks - float64(bar-1)*ticksPerBar
	beat := int32(tickInBar/ticksPerBeat) + 1
	tick := int32(tickInBar - float64(beat-1)*ticksPerBeat)

	bbt := &BBT{
		Bar:            bar,
		Beat:           beat,
		Tick:           tick,
		BarStartTick:   float64(bar-1) * ticksPerBar,
		BeatsPerBar:    c.beatsPerBar,
		BeatType:       c.beatType,
		TicksPerBeat:   ticksPerBeat,
		BeatsPerMinute: bpm,
	}

	if playing {
		atomic.AddUint64(&c.frame, uint64(frames))
	}

	return TimeInfo{Playing: playing, Frame: frame, Usecs: usecs, BBT: bbt}
}

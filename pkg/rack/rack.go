// Package rack implements the rack processing topology (spec §4.G): a
// fixed 2-audio-in/2-audio-out/1-event-in/1-event-out bus that every
// enabled plugin is chained onto in registry index order. Unlike the
// patchbay topology, no plugin owns its own ports here - the bus buffers
// and the single event stream are the only thing plugins ever see.
package rack

import (
	"github.com/carla-project/carla-engine/pkg/audio"
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/carla-project/carla-engine/pkg/plugin"
	"github.com/carla-project/carla-engine/pkg/registry"
)

// Peaks records the input/output peak levels observed for one plugin
// during its last process call, readable through Processor.Peaks.
type Peaks struct {
	InLeft   float32
	InRight  float32
	OutLeft  float32
	OutRight float32
}

// Processor runs the rack topology's per-block chain over a registry.
type Processor struct {
	reg        *registry.Registry
	sampleRate float64
	maxFrames  uint32

	// scratch buffers reused block to block to avoid per-block allocation
	// on the RT path; sized to maxFrames and resliced to the block's
	// actual frame count each call.
	monoIn    []float32
	pluginOut audio.Buffer // up to 2 channels

	peaks map[uint32]Peaks
}

// New creates a rack processor bound to reg. maxFrames bounds the largest
// block size Process will ever be called with; scratch buffers are
// pre-allocated at that size so Process itself never allocates.
func New(reg *registry.Registry, sampleRate float64, maxFrames uint32) *Processor {
	return &Processor{
		reg:        reg,
		sampleRate: sampleRate,
		maxFrames:  maxFrames,
		monoIn:     make([]float32, maxFrames),
		pluginOut:  audio.NewBuffer(2, int(maxFrames)),
		peaks:      make(map[uint32]Peaks),
	}
}

// Peaks returns the last-observed input/output peaks for id, or the zero
// value if id has never been processed.
func (p *Processor) Peaks(id uint32) Peaks {
	return p.peaks[id]
}

// Process runs one block through the rack chain. bus is the fixed stereo
// bus, read as the driver's input and left holding the chain's final
// output; eventsIn is this block's normalised input event stream.
// Process returns the cumulative event output every plugin wanted to emit.
func (p *Processor) Process(frames uint32, bus audio.Buffer, eventsIn []event.EngineEvent) []event.EngineEvent {
	eventsIn = normalizeEvents(eventsIn, frames)

	var eventsOut []event.EngineEvent
	for _, entry := range p.reg.OrderedEntries() {
		if !entry.Enabled {
			continue
		}
		eventsOut = append(eventsOut, p.processOne(entry, frames, bus, eventsIn)...)
	}
	return eventsOut
}

// normalizeEvents drops events whose declared shape violates spec §4.A
// and clips every event's Time into [0, frames) (spec §3's event buffer
// invariant - a block never emits past its own end).
func normalizeEvents(in []event.EngineEvent, frames uint32) []event.EngineEvent {
	out := in[:0:0]
	for _, e := range in {
		if err := e.Validate(); err != nil {
			continue
		}
		if frames > 0 && e.Time >= frames {
			e.Time = frames - 1
		}
		out = append(out, e)
	}
	return out
}

// processOne runs a single enabled plugin's turn in the chain: build its
// input view from the shared bus, invoke Process, fold its output back
// into the bus through the post-process chain, and record peaks.
func (p *Processor) processOne(entry *registry.Entry, frames uint32, bus audio.Buffer, eventsIn []event.EngineEvent) []event.EngineEvent {
	w := entry.Wrapper
	filtered := event.FilterByChannel(eventsIn, entry.CtrlInChannel)

	peak := Peaks{
		InLeft:  audio.GetPeak(audio.Buffer{bus[0][:frames]}),
		InRight: audio.GetPeak(audio.Buffer{bus[1][:frames]}),
	}

	pluginIn := p.bindInput(w, frames, bus)
	pluginOut := p.bindOutput(w, frames)
	w.InitBuffers(pluginIn, pluginOut)

	var pluginEvents []event.EngineEvent
	result := w.Process(frames, filtered, &pluginEvents)
	if result.IsError() {
		// A plugin that errors is expected to have silenced its own
		// outputs; the chain still runs the post-process step so
		// downstream plugins see silence rather than stale samples.
		for ch := range pluginOut {
			for i := range pluginOut[ch][:frames] {
				pluginOut[ch][i] = 0
			}
		}
	}

	p.foldOutput(entry, pluginOut, frames, bus)

	peak.OutLeft = audio.GetPeak(audio.Buffer{bus[0][:frames]})
	peak.OutRight = audio.GetPeak(audio.Buffer{bus[1][:frames]})
	p.peaks[entry.ID] = peak

	return pluginEvents
}

// bindInput builds the plugin's input view of the bus: mono plugins
// receive (L+R)/2, stereo plugins share the bus directly, and
// zero-input plugins (pure synths) receive no input channels at all.
func (p *Processor) bindInput(w plugin.Wrapper, frames uint32, bus audio.Buffer) [][]float32 {
	switch w.AudioInCount() {
	case 0:
		return nil
	case 1:
		mono := p.monoIn[:frames]
		for i := uint32(0); i < frames; i++ {
			mono[i] = (bus[0][i] + bus[1][i]) / 2
		}
		return [][]float32{mono}
	default:
		return [][]float32{bus[0][:frames], bus[1][:frames]}
	}
}

// bindOutput returns a scratch output view sized to the plugin's actual
// output channel count.
func (p *Processor) bindOutput(w plugin.Wrapper, frames uint32) [][]float32 {
	switch w.AudioOutCount() {
	case 0:
		return nil
	case 1:
		return [][]float32{p.pluginOut[0][:frames]}
	default:
		return [][]float32{p.pluginOut[0][:frames], p.pluginOut[1][:frames]}
	}
}

// foldOutput applies the plugin's post-process chain (dry/wet, volume,
// balance, panning) and writes the result back into the shared bus.
// Mono-out plugins drive both bus channels identically before balance is
// applied, matching the spec's "both channels always produced even for
// mono plugins via the balance law" rule.
func (p *Processor) foldOutput(entry *registry.Entry, pluginOut [][]float32, frames uint32, bus audio.Buffer) {
	post := entry.Wrapper.(interface{ PostProcess() plugin.PostProcess })
	pp := post.PostProcess()

	var wetL, wetR []float32
	switch len(pluginOut) {
	case 0:
		return
	case 1:
		wetL = pluginOut[0][:frames]
		wetR = pluginOut[0][:frames]
	default:
		wetL = pluginOut[0][:frames]
		wetR = pluginOut[1][:frames]
	}

	dry := 1 - pp.DryWet
	outL := bus[0][:frames]
	outR := bus[1][:frames]
	for i := uint32(0); i < frames; i++ {
		mixedL := outL[i]*dry + wetL[i]*pp.DryWet
		mixedR := outR[i]*dry + wetR[i]*pp.DryWet
		outL[i] = mixedL * pp.Volume
		outR[i] = mixedR * pp.Volume
	}

	applyBalance(outL, outR, pp.BalanceLeft, pp.BalanceRight)
	applyPanning(outL, outR, pp.Panning)
}

// applyBalance cross-mixes the stereo pair according to balanceLeft and
// balanceRight, each in [-1,1] (spec §3). A balance of -1/1 (the default)
// leaves the pair untouched; moving either value toward its opposite pole
// bleeds that channel's signal across the bus.
func applyBalance(outL, outR []float32, balanceLeft, balanceRight float32) {
	rangeL := (balanceLeft + 1) / 2
	rangeR := (balanceRight + 1) / 2
	for i := range outL {
		oldL := outL[i]
		oldR := outR[i]
		outL[i] = oldL*(1-rangeL) + oldR*(1-rangeR)
		outR[i] = oldR*rangeR + oldL*rangeL
	}
}

// applyPanning applies equal-power-ish linear panning in [-1,1]; 0 is
// centred and leaves both channels at unity.
func applyPanning(outL, outR []float32, panning float32) {
	if panning == 0 {
		return
	}
	gainL := 1 - panning
	gainR := 1 + panning
	if gainL > 1 {
		gainL = 1
	}
	if gainR > 1 {
		gainR = 1
	}
	for i := range outL {
		outL[i] *= gainL
		outR[i] *= gainR
	}
}

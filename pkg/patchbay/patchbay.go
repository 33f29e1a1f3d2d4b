// Package patchbay implements the patchbay processing topology (spec
// §4.H): unlike the rack's shared stereo bus, every plugin owns its own
// audio/event ports and the driver performs the actual inter-port
// routing. The engine's job per block is only to invoke each plugin with
// its own buffers and track latency propagation; connect/disconnect/
// refresh are delegated straight through to the driver.
package patchbay

import (
	"sync"

	"github.com/carla-project/carla-engine/pkg/audio"
	"github.com/carla-project/carla-engine/pkg/carlaerr"
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/carla-project/carla-engine/pkg/port"
	"github.com/carla-project/carla-engine/pkg/registry"
)

// Peaks records the input/output peak levels observed for one plugin
// during its last process call.
type Peaks struct {
	In  []float32
	Out []float32
}

// PortSet is one plugin's own ports, bound by the driver (or, for the
// internal rack-adjacent patchbay-over-device case, by the engine
// itself) before the processor's first block.
type PortSet struct {
	AudioIn  []*port.AudioPort
	AudioOut []*port.AudioPort
	EventIn  *port.EventPort
	EventOut *port.EventPort
}

// LatencyTracker accumulates the graph's aggregate compensation delay
// from per-plugin capture/playback latency callbacks (spec §4.H: "on a
// capture-latency callback, add the plugin's reported latency to the
// incoming range; on a playback-latency callback, subtract").
type LatencyTracker struct {
	mu     sync.Mutex
	frames int64
}

// OnCaptureLatency adds frames to the tracked incoming latency range.
func (lt *LatencyTracker) OnCaptureLatency(frames uint32) {
	lt.mu.Lock()
	lt.frames += int64(frames)
	lt.mu.Unlock()
}

// OnPlaybackLatency subtracts frames from the tracked incoming latency
// range.
func (lt *LatencyTracker) OnPlaybackLatency(frames uint32) {
	lt.mu.Lock()
	lt.frames -= int64(frames)
	lt.mu.Unlock()
}

// Frames returns the tracker's current accumulated value.
func (lt *LatencyTracker) Frames() int64 {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.frames
}

// Processor runs the patchbay topology's per-block plugin invocations
// over a registry, using each plugin's own PortSet rather than a shared
// bus.
type Processor struct {
	reg     *registry.Registry
	latency LatencyTracker

	mu    sync.RWMutex
	ports map[uint32]*PortSet
	peaks map[uint32]Peaks
}

// New creates a patchbay processor bound to reg.
func New(reg *registry.Registry) *Processor {
	return &Processor{
		reg:   reg,
		ports: make(map[uint32]*PortSet),
		peaks: make(map[uint32]Peaks),
	}
}

// BindPorts associates a plugin id with the PortSet the driver created
// for it (spec §4.C: ports are driver-owned handles in patchbay mode).
// Calling BindPorts again for the same id replaces its PortSet, which
// the driver does on a buffer-size change.
func (p *Processor) BindPorts(id uint32, ports *PortSet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ports[id] = ports
}

// UnbindPorts drops the PortSet for id, called when the plugin is removed.
func (p *Processor) UnbindPorts(id uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.ports, id)
	delete(p.peaks, id)
}

// Latency returns the processor's latency tracker, for the engine to
// wire a plugin's capture/playback latency callbacks into.
func (p *Processor) Latency() *LatencyTracker { return &p.latency }

// Peaks returns the last-observed peaks for id, or the zero value if id
// has never been processed.
func (p *Processor) Peaks(id uint32) Peaks {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.peaks[id]
}

// Process invokes every enabled plugin once, each against its own bound
// ports, in registry order (spec §5's "plugins in ... driver order
// (patchbay)" - here driver order and registry order coincide since the
// driver adds clients through the same registry the engine maintains).
func (p *Processor) Process(frames uint32) error {
	for _, entry := range p.reg.OrderedEntries() {
		if !entry.Enabled {
			continue
		}
		if err := p.processOne(entry, frames); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) processOne(entry *registry.Entry, frames uint32) error {
	p.mu.RLock()
	ports, ok := p.ports[entry.ID]
	p.mu.RUnlock()
	if !ok {
		return carlaerr.New(carlaerr.InvalidState, "patchbay: no ports bound for plugin")
	}

	audioIn := make([][]float32, len(ports.AudioIn))
	for i, ap := range ports.AudioIn {
		audioIn[i] = ap.Buffer()
	}
	audioOut := make([][]float32, len(ports.AudioOut))
	for i, ap := range ports.AudioOut {
		audioOut[i] = ap.Buffer()
	}

	inPeaks := make([]float32, len(audioIn))
	for i, buf := range audioIn {
		inPeaks[i] = audio.GetPeak(audio.Buffer{buf[:frames]})
	}

	var inEvents []event.EngineEvent
	if ports.EventIn != nil {
		inEvents = event.FilterByChannel(ports.EventIn.All(), entry.CtrlInChannel)
	}

	entry.Wrapper.InitBuffers(audioIn, audioOut)

	var outEvents []event.EngineEvent
	entry.Wrapper.Process(frames, inEvents, &outEvents)

	outPeaks := make([]float32, len(audioOut))
	for i, buf := range audioOut {
		outPeaks[i] = audio.GetPeak(audio.Buffer{buf[:frames]})
	}

	if ports.EventOut != nil {
		ports.EventOut.Reset()
		for _, e := range outEvents {
			switch k := e.Kind.(type) {
			case event.Control:
				ports.EventOut.WriteControl(e.Time, e.Channel, k.Subkind, k.ParamID, k.Value, frames)
			case event.Midi:
				ports.EventOut.WriteMIDI(e.Time, e.Channel, k.PortOffset, k.Data[:k.Size], frames)
			}
		}
	}
	if ports.EventIn != nil {
		ports.EventIn.Reset()
	}

	p.mu.Lock()
	p.peaks[entry.ID] = Peaks{In: inPeaks, Out: outPeaks}
	p.mu.Unlock()

	return nil
}


// Package engine implements the top-level Engine (spec §6/§7): it owns
// the plugin registry, the active driver, the rack or patchbay
// processor, the command/post-RT rings that cross the RT boundary, the
// transport, and the single callback surface every public operation
// reports through.
package engine

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carla-project/carla-engine/pkg/audio"
	"github.com/carla-project/carla-engine/pkg/carlaerr"
	"github.com/carla-project/carla-engine/pkg/driver"
	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/engineopts"
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/carla-project/carla-engine/pkg/patchbay"
	"github.com/carla-project/carla-engine/pkg/performance"
	"github.com/carla-project/carla-engine/pkg/port"
	"github.com/carla-project/carla-engine/pkg/queue"
	"github.com/carla-project/carla-engine/pkg/rack"
	"github.com/carla-project/carla-engine/pkg/registry"
	"github.com/carla-project/carla-engine/pkg/transport"
	"github.com/getsentry/sentry-go"
)

// idlePollInterval is how often the auxiliary idle thread drains the
// post-RT ring (spec §5: "periodically drains... may block").
const idlePollInterval = 5 * time.Millisecond

// minDrainTimeout is the floor used alongside 4x the block period when
// computing how long a control operation waits for the RT thread to
// observe a state change (spec §5).
const minDrainTimeout = 200 * time.Millisecond

// snapshotter is implemented by every driver.Driver variant this engine
// ships with (spec §4.I: each owns its own transport clock); the engine
// falls back to its own internal clock for any driver that doesn't.
type snapshotter interface {
	Snapshot(frames uint32) transport.TimeInfo
}

// audioBinder is implemented by driver variants that expose real,
// interleaved-stereo hardware I/O buffers for the block in progress
// (currently only driver.DeviceDriver); other variants are driven by an
// external caller supplying buffers directly to Process.
type audioBinder interface {
	AudioBuffers() (in, out []float32)
}

// Engine is the central orchestrator (spec §6).
type Engine struct {
	opts engineopts.Options
	log  *enginelog.Logger

	reg *registry.Registry
	drv driver.Driver

	rackProc *rack.Processor
	pbProc   *patchbay.Processor
	bus      audio.Buffer

	clock *transport.Clock

	cmdRing  *queue.CommandRing
	postRing *queue.PostRtRing

	metrics atomic.Value // *performance.PerformanceMetrics
	allocs  *performance.AllocationTracker

	cb      atomic.Value // Callback
	lastErr atomic.Value // string

	bufferSize   uint32 // atomic
	sampleRate   uint64 // atomic, float64 bits
	drainTimeout atomic.Value // time.Duration

	running      int32 // atomic bool
	aboutToClose int32 // atomic bool
	closeOnce    sync.Once
	idleStop     chan struct{}
	idleDone     chan struct{}

	sentryEnabled bool
}

// New creates an Engine bound to opts, logging through log. The engine
// does nothing RT-relevant until Init is called with a driver.
func New(opts engineopts.Options, log *enginelog.Logger) *Engine {
	e := &Engine{
		opts:     opts,
		log:      log,
		reg:      registry.New(opts.MaxPluginCount),
		cmdRing:  queue.NewCommandRing(),
		postRing: queue.NewPostRtRing(),
		allocs:   performance.NewAllocationTracker(),
	}
	e.drainTimeout.Store(minDrainTimeout)
	if opts.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: opts.SentryDSN}); err != nil {
			log.Warningf("engine: sentry init failed: %v", err)
		} else {
			e.sentryEnabled = true
		}
	}
	return e
}

// SetCallback installs the engine's single notification sink (spec §6).
func (e *Engine) SetCallback(cb Callback) { e.cb.Store(cb) }

func (e *Engine) emit(action Action, pluginID uint32, v1, v2 int32, v3 float32, text string) {
	if cb, ok := e.cb.Load().(Callback); ok && cb != nil {
		cb(action, pluginID, v1, v2, v3, text)
	}
	if action == Error && e.sentryEnabled {
		sentry.CaptureException(carlaerr.New(carlaerr.Driver, text))
	}
}

func (e *Engine) fail(err error) error {
	if err == nil {
		return nil
	}
	e.lastErr.Store(err.Error())
	e.emit(Error, 0, 0, 0, 0, err.Error())
	return err
}

// LastError returns the most recently recorded failure string (spec §7).
func (e *Engine) LastError() string {
	if v, ok := e.lastErr.Load().(string); ok {
		return v
	}
	return ""
}

func (e *Engine) BufferSize() uint32   { return atomic.LoadUint32(&e.bufferSize) }
func (e *Engine) SampleRate() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.sampleRate))
}

func (e *Engine) setSampleRate(rate float64) {
	atomic.StoreUint64(&e.sampleRate, math.Float64bits(rate))
}

func computeDrainTimeout(bufferSize uint32, sampleRate float64) time.Duration {
	if sampleRate <= 0 {
		return minDrainTimeout
	}
	blockPeriod := time.Duration(float64(bufferSize) / sampleRate * float64(time.Second))
	if fourBlocks := 4 * blockPeriod; fourBlocks > minDrainTimeout {
		return fourBlocks
	}
	return minDrainTimeout
}

// Init opens drv, builds the rack or patchbay processor its process
// mode calls for, and starts the auxiliary idle thread (spec §5/§6).
func (e *Engine) Init(drv driver.Driver) error {
	res, err := drv.Open(e.processFromDriver, e.onBufferSizeChanged, e.onSampleRateChanged)
	if err != nil {
		return e.fail(carlaerr.Wrap(carlaerr.Driver, "engine: driver open failed", err))
	}

	e.drv = drv
	atomic.StoreUint32(&e.bufferSize, res.BufferSize)
	e.setSampleRate(res.SampleRate)
	e.clock = transport.NewClock(res.SampleRate)
	e.drainTimeout.Store(computeDrainTimeout(res.BufferSize, res.SampleRate))
	e.metrics.Store(performance.NewPerformanceMetrics(uint32(res.SampleRate), res.BufferSize))

	switch e.opts.ProcessMode {
	case engineopts.Patchbay:
		e.pbProc = patchbay.New(e.reg)
	default:
		// SingleClient, MultipleClients, ContinuousRack, and Bridge all
		// chain plugins onto a fixed stereo bus (spec §4.G).
		e.rackProc = rack.New(e.reg, res.SampleRate, res.BufferSize)
		e.bus = audio.NewBuffer(2, int(res.BufferSize))
	}

	atomic.StoreInt32(&e.running, 1)
	e.idleStop = make(chan struct{})
	e.idleDone = make(chan struct{})
	go e.idleLoop()

	return nil
}

func (e *Engine) idleLoop() {
	defer close(e.idleDone)
	actions := [...]Action{ParameterValueChanged, ProgramChanged, MidiProgramChanged, NoteOn, NoteOff, DebugEvent}
	for atomic.LoadInt32(&e.aboutToClose) == 0 {
		select {
		case <-e.idleStop:
			return
		case <-time.After(idlePollInterval):
		}
		for _, ev := range e.postRing.Drain(nil) {
			e.emit(actions[ev.Kind], ev.PluginID, ev.V1, ev.V2, ev.V3, "")
		}
	}
}

func (e *Engine) onBufferSizeChanged(newSize uint32) {
	atomic.StoreUint32(&e.bufferSize, newSize)
	e.drainTimeout.Store(computeDrainTimeout(newSize, e.SampleRate()))
	if e.rackProc != nil {
		e.rackProc = rack.New(e.reg, e.SampleRate(), newSize)
		e.bus = audio.NewBuffer(2, int(newSize))
	}
	e.metrics.Store(performance.NewPerformanceMetrics(uint32(e.SampleRate()), newSize))
	e.emit(BufferSizeChanged, 0, int32(newSize), 0, 0, "")
}

func (e *Engine) onSampleRateChanged(newRate float64) {
	e.setSampleRate(newRate)
	e.drainTimeout.Store(computeDrainTimeout(e.BufferSize(), newRate))
	if e.rackProc != nil {
		e.rackProc = rack.New(e.reg, newRate, e.BufferSize())
	}
	e.metrics.Store(performance.NewPerformanceMetrics(uint32(newRate), e.BufferSize()))
	e.emit(SampleRateChanged, 0, 0, 0, float32(newRate), "")
}

// Metrics returns a snapshot of RT process-loop timing and buffer
// underrun counters (spec §5's real-time deadline concern), useful for
// a host's own health dashboard. Safe to call from any thread.
func (e *Engine) Metrics() performance.PerformanceStats {
	if pm, ok := e.metrics.Load().(*performance.PerformanceMetrics); ok && pm != nil {
		return pm.GetStats()
	}
	return performance.PerformanceStats{}
}

// AllocationStats returns a snapshot of the RT-thread allocation tracker
// (spec §5's zero-allocation-on-the-audio-thread concern). The engine
// never calls performance.EnableAllocationTracking, so the debug-build
// GC-pressure hook stays off; this method itself is safe in any build
// since the tracker is a counter, not a profiler.
func (e *Engine) AllocationStats() performance.AllocationStats {
	return e.allocs.GetStats()
}

// IsRunning reports whether the engine has been Init'd and not yet Closed.
func (e *Engine) IsRunning() bool { return atomic.LoadInt32(&e.running) != 0 }

// SetAboutToClose quiesces worker threads ahead of Close so close() is
// race-free (spec §5): the idle thread stops draining after this call
// observes it, though Close itself still waits for it to exit cleanly.
func (e *Engine) SetAboutToClose() { atomic.StoreInt32(&e.aboutToClose, 1) }

// Close stops the idle thread, destroys every plugin, and closes the
// driver. Safe to call more than once; only the first call does work
// (spec §8 scenario 6: "no RT callback fires after close() returns").
func (e *Engine) Close() error {
	var closeErr error
	e.closeOnce.Do(func() {
		e.SetAboutToClose()
		atomic.StoreInt32(&e.running, 0)
		if e.idleStop != nil {
			close(e.idleStop)
			<-e.idleDone
		}
		e.reg.RemoveAll()
		if e.drv != nil {
			closeErr = e.drv.Close()
		}
		e.emit(Quit, 0, 0, 0, 0, "")
	})
	return closeErr
}

// --- Plugin lifecycle (spec §4.E) ---

// AddPlugin loads and activates a plugin via loader, installing it at
// the registry's next id (or a pending Replace earmark).
func (e *Engine) AddPlugin(loader registry.Loader, uniqueID, filename, label, name string) (uint32, error) {
	id, err := e.reg.Add(loader, uniqueID, filename, label, name)
	if err != nil {
		return 0, e.fail(err)
	}
	entry, _ := e.reg.Get(id)
	if err := entry.Wrapper.Activate(e.SampleRate(), e.BufferSize()); err != nil {
		_ = e.reg.Remove(id)
		return 0, e.fail(carlaerr.Wrap(carlaerr.PluginLoad, "engine: activate failed", err))
	}
	_ = e.reg.SetActive(id, true)
	e.emit(AddedPlugin, id, 0, 0, 0, entry.Name)
	return id, nil
}

// RemovePlugin disables the plugin, waits (bounded) for the RT thread
// to observe the disable, then destroys it (spec §5, §8 scenario 1).
func (e *Engine) RemovePlugin(id uint32) error {
	if err := e.reg.SetEnabled(id, false); err != nil {
		return e.fail(err)
	}
	if err := e.pushCommand(queue.Command{Kind: queue.PluginDisable, PluginID: id}); err != nil {
		return err
	}
	if err := e.waitForActive(id, false); err != nil {
		return e.fail(err)
	}
	name := ""
	if entry, err := e.reg.Get(id); err == nil {
		name = entry.Name
	}
	if err := e.reg.Remove(id); err != nil {
		return e.fail(err)
	}
	e.emit(RemovedPlugin, id, 0, 0, 0, name)
	return nil
}

// ReplacePlugin earmarks id for reuse by the next AddPlugin call.
func (e *Engine) ReplacePlugin(id uint32) error {
	if err := e.reg.Replace(id); err != nil {
		return e.fail(err)
	}
	return nil
}

// ClonePlugin duplicates id into a fresh, activated registry slot.
func (e *Engine) ClonePlugin(id uint32) (uint32, error) {
	newID, err := e.reg.Clone(id)
	if err != nil {
		return 0, e.fail(err)
	}
	entry, _ := e.reg.Get(newID)
	if err := entry.Wrapper.Activate(e.SampleRate(), e.BufferSize()); err != nil {
		return 0, e.fail(carlaerr.Wrap(carlaerr.PluginLoad, "engine: clone activate failed", err))
	}
	_ = e.reg.SetActive(newID, true)
	e.emit(AddedPlugin, newID, 0, 0, 0, entry.Name)
	return newID, nil
}

// SwapPlugins exchanges two disabled plugins' registry slots (spec §8
// scenario 4); the registry itself enforces the both-disabled precondition.
func (e *Engine) SwapPlugins(a, b uint32) error {
	if err := e.reg.Swap(a, b); err != nil {
		return e.fail(err)
	}
	return nil
}

// RenamePlugin disambiguates and applies newName, returning the name
// actually stored.
func (e *Engine) RenamePlugin(id uint32, newName string) (string, error) {
	name, err := e.reg.Rename(id, newName)
	if err != nil {
		return "", e.fail(err)
	}
	e.emit(RenamedPlugin, id, 0, 0, 0, name)
	return name, nil
}

// SetPluginEnabled records the control-thread enable/disable intent
// immediately (spec §5: the registry's Enabled field is control-owned)
// and enqueues the matching RT-side activate/deactivate transition.
func (e *Engine) SetPluginEnabled(id uint32, enabled bool) error {
	if err := e.reg.SetEnabled(id, enabled); err != nil {
		return e.fail(err)
	}
	kind := queue.PluginDisable
	if enabled {
		kind = queue.PluginEnable
	}
	return e.pushCommand(queue.Command{Kind: kind, PluginID: id})
}

// SetCtrlInChannel narrows the MIDI channel (0-15, or -1 for omni) the
// rack/patchbay processor filters id's incoming events by.
func (e *Engine) SetCtrlInChannel(id uint32, channel int8) error {
	if err := e.reg.SetCtrlInChannel(id, channel); err != nil {
		return e.fail(err)
	}
	return nil
}

func (e *Engine) waitForActive(id uint32, want bool) error {
	timeout, _ := e.drainTimeout.Load().(time.Duration)
	deadline := time.Now().Add(timeout)
	for {
		entry, err := e.reg.Get(id)
		if err != nil {
			return err
		}
		if entry.Active == want {
			return nil
		}
		if time.Now().After(deadline) {
			return carlaerr.New(carlaerr.RtDrainTimeout, "engine: rt thread did not observe the requested state change")
		}
		time.Sleep(time.Millisecond)
	}
}

// --- Control-to-RT commands (spec §4.F) ---

func (e *Engine) pushCommand(c queue.Command) error {
	if !e.cmdRing.Push(c) {
		return e.fail(carlaerr.New(carlaerr.Capacity, "engine: command ring full"))
	}
	return nil
}

// SetParam enqueues a control-thread parameter write, applied by the RT
// thread at the top of its next block (spec §8 round-trip property).
func (e *Engine) SetParam(id uint32, index int, value float64) error {
	return e.pushCommand(queue.Command{Kind: queue.SetParam, PluginID: id, Index: int32(index), Value: float32(value)})
}

// SetProgram enqueues a control-thread program change.
func (e *Engine) SetProgram(id uint32, index int) error {
	return e.pushCommand(queue.Command{Kind: queue.SetProgram, PluginID: id, Index: int32(index)})
}

// SetMidiProgram enqueues a control-thread MIDI program change.
func (e *Engine) SetMidiProgram(id uint32, index int) error {
	return e.pushCommand(queue.Command{Kind: queue.SetMidiProgram, PluginID: id, Index: int32(index)})
}

// NoteOn enqueues a control-thread note-on, injected into the plugin's
// event stream at the start of the next block it processes.
func (e *Engine) NoteOn(id uint32, channel, note, velocity uint8) error {
	if channel >= 16 {
		return e.fail(carlaerr.New(carlaerr.InvalidArgument, "engine: channel must be < 16"))
	}
	return e.pushCommand(queue.Command{Kind: queue.NoteOn, PluginID: id, Channel: channel, Note: note, Velocity: velocity})
}

// NoteOff enqueues a control-thread note-off.
func (e *Engine) NoteOff(id uint32, channel, note uint8) error {
	if channel >= 16 {
		return e.fail(carlaerr.New(carlaerr.InvalidArgument, "engine: channel must be < 16"))
	}
	return e.pushCommand(queue.Command{Kind: queue.NoteOff, PluginID: id, Channel: channel, Note: note})
}

// PanicAll enqueues an all-notes-off broadcast to every plugin.
func (e *Engine) PanicAll() error {
	return e.pushCommand(queue.Command{Kind: queue.PanicAll})
}

// --- Transport (spec §4.I) ---

func (e *Engine) TransportPlay() {
	if e.drv != nil {
		e.drv.TransportPlay()
	}
}

func (e *Engine) TransportPause() {
	if e.drv != nil {
		e.drv.TransportPause()
	}
}

func (e *Engine) TransportRelocate(frame uint64) {
	if e.drv != nil {
		e.drv.TransportRelocate(frame)
	}
}

func (e *Engine) snapshotTransport(frames uint32) transport.TimeInfo {
	if e.opts.TransportMode == engineopts.ExternalGraph {
		if sn, ok := e.drv.(snapshotter); ok {
			return sn.Snapshot(frames)
		}
	}
	return e.clock.Snapshot(frames)
}

// --- RT-path processing (spec §5 ordering) ---

// applyCommands drains the command ring and applies every queued
// command against the registry/wrapper, returning any synthetic events
// (note on/off, panic) that must be folded into this block's event
// stream before the plugins are processed.
func (e *Engine) applyCommands() []event.EngineEvent {
	var cmds []queue.Command
	cmds = e.cmdRing.Drain(cmds)

	var synthetic []event.EngineEvent
	for _, c := range cmds {
		entry, err := e.reg.Get(c.PluginID)
		hasEntry := err == nil

		switch c.Kind {
		case queue.PluginEnable:
			if hasEntry {
				if err := entry.Wrapper.Activate(e.SampleRate(), e.BufferSize()); err == nil {
					_ = e.reg.SetActive(c.PluginID, true)
				}
			}
		case queue.PluginDisable:
			if hasEntry {
				entry.Wrapper.Deactivate()
			}
			_ = e.reg.SetActive(c.PluginID, false)
		case queue.SetParam:
			if !hasEntry {
				continue
			}
			entry.Wrapper.SetParam(int(c.Index), float64(c.Value), true, false)
			e.postRing.Push(queue.PostRtEvent{Kind: queue.ParameterChange, PluginID: c.PluginID, V1: c.Index, V3: c.Value})
		case queue.SetProgram:
			if !hasEntry {
				continue
			}
			entry.Wrapper.SetProgram(int(c.Index), true, false)
			e.postRing.Push(queue.PostRtEvent{Kind: queue.ProgramChange, PluginID: c.PluginID, V1: c.Index})
		case queue.SetMidiProgram:
			if !hasEntry {
				continue
			}
			entry.Wrapper.SetMidiProgram(int(c.Index), true, false)
			e.postRing.Push(queue.PostRtEvent{Kind: queue.MidiProgramChange, PluginID: c.PluginID, V1: c.Index})
		case queue.NoteOn:
			synthetic = append(synthetic, event.EngineEvent{
				Channel: c.Channel,
				Kind:    event.Midi{Data: [3]byte{0x90 | c.Channel, c.Note, c.Velocity}, Size: 3},
			})
			e.postRing.Push(queue.PostRtEvent{Kind: queue.NoteOnEvent, PluginID: c.PluginID, V1: int32(c.Channel), V2: int32(c.Note), V3: float32(c.Velocity) / 127.0})
		case queue.NoteOff:
			synthetic = append(synthetic, event.EngineEvent{
				Channel: c.Channel,
				Kind:    event.Midi{Data: [3]byte{0x80 | c.Channel, c.Note, 0}, Size: 3},
			})
			e.postRing.Push(queue.PostRtEvent{Kind: queue.NoteOffEvent, PluginID: c.PluginID, V1: int32(c.Channel), V2: int32(c.Note)})
		case queue.PanicAll:
			synthetic = append(synthetic, event.EngineEvent{Channel: 0, Kind: event.Control{Subkind: event.AllNotesOff}})
		}
	}
	return synthetic
}

// Process runs one rack-mode block: transport snapshot, command drain,
// the rack chain, and peak/event bookkeeping (spec §5 ordering). audioIn
// is copied into the shared bus, the bus is processed in place, and the
// result is copied into audioOut. Valid only in a non-Patchbay process
// mode.
func (e *Engine) Process(frames uint32, audioIn, audioOut audio.Buffer, eventsIn []event.EngineEvent) ([]event.EngineEvent, error) {
	if e.rackProc == nil {
		return nil, e.fail(carlaerr.New(carlaerr.InvalidState, "engine: Process requires a rack-family process mode"))
	}
	if atomic.LoadInt32(&e.aboutToClose) != 0 {
		return nil, e.fail(carlaerr.New(carlaerr.InvalidState, "engine: about to close, no further processing"))
	}

	pm, _ := e.metrics.Load().(*performance.PerformanceMetrics)
	var start time.Time
	if pm != nil {
		start = pm.StartProcess()
	}
	e.allocs.StartBuffer()
	defer e.allocs.EndBuffer()

	e.snapshotTransport(frames)
	synthetic := e.applyCommands()
	merged := append(append([]event.EngineEvent{}, eventsIn...), synthetic...)
	for range merged {
		if pm != nil {
			pm.RecordEvent()
		}
	}

	if err := audio.Copy(e.bus, audioIn); err != nil {
		return nil, e.fail(carlaerr.Wrap(carlaerr.InvalidArgument, "engine: audio buffer shape mismatch", err))
	}
	eventsOut := e.rackProc.Process(frames, e.bus, merged)
	if err := audio.Copy(audioOut, e.bus); err != nil {
		return nil, e.fail(carlaerr.Wrap(carlaerr.InvalidArgument, "engine: audio buffer shape mismatch", err))
	}

	if pm != nil {
		if performance.CheckGCPauses() {
			pm.RecordGCPause()
		}
		pm.EndProcess(start)
	}

	return eventsOut, nil
}

// processFromDriver is the ProcessFunc handed to driver.Open. For the
// device driver (which owns real hardware buffers) it runs the full
// rack pipeline against those buffers; other driver variants are meant
// to be driven directly via Process/Patchbay by their embedder, so this
// is a no-op for them.
func (e *Engine) processFromDriver(frames uint32) {
	if atomic.LoadInt32(&e.aboutToClose) != 0 || e.rackProc == nil {
		return
	}
	ab, ok := e.drv.(audioBinder)
	if !ok {
		return
	}
	rawIn, rawOut := ab.AudioBuffers()
	in := audio.NewBuffer(2, int(frames))
	deinterleave(rawIn, in)
	out, err := e.Process(frames, in, audio.NewBuffer(2, int(frames)), nil)
	_ = out
	if err != nil {
		return
	}
	interleave(e.bus, rawOut)
}

func deinterleave(src []float32, dst audio.Buffer) {
	frames := dst.Frames()
	for i := 0; i < frames && i*2+1 < len(src); i++ {
		dst[0][i] = src[i*2]
		dst[1][i] = src[i*2+1]
	}
}

func interleave(src audio.Buffer, dst []float32) {
	frames := src.Frames()
	for i := 0; i < frames && i*2+1 < len(dst); i++ {
		dst[i*2] = src[0][i]
		dst[i*2+1] = src[1][i]
	}
}

// Patchbay returns the patchbay processor for drivers/callers to bind
// per-plugin ports onto (spec §4.H). Nil outside Patchbay process mode.
func (e *Engine) Patchbay() *patchbay.Processor { return e.pbProc }

// ProcessPatchbay runs one patchbay-mode block: transport snapshot,
// command drain (synthetic note/panic events are dropped since patchbay
// plugins take events from their own bound EventPort, primed by the
// driver ahead of this call, not from a shared stream), then one
// process invocation per bound plugin.
func (e *Engine) ProcessPatchbay(frames uint32) error {
	if e.pbProc == nil {
		return e.fail(carlaerr.New(carlaerr.InvalidState, "engine: ProcessPatchbay requires patchbay process mode"))
	}
	if atomic.LoadInt32(&e.aboutToClose) != 0 {
		return e.fail(carlaerr.New(carlaerr.InvalidState, "engine: about to close, no further processing"))
	}
	pm, _ := e.metrics.Load().(*performance.PerformanceMetrics)
	var start time.Time
	if pm != nil {
		start = pm.StartProcess()
	}
	e.allocs.StartBuffer()
	defer e.allocs.EndBuffer()

	e.snapshotTransport(frames)
	e.applyCommands()
	if err := e.pbProc.Process(frames); err != nil {
		return e.fail(err)
	}

	if pm != nil {
		pm.EndProcess(start)
	}
	return nil
}

// AddClientPorts is a convenience for the patchbay demo path: it asks
// the active driver for an Engine Client (spec §4.C) and creates a
// mono-or-stereo PortSet from it, bound immediately onto id.
func (e *Engine) AddClientPorts(id uint32, name string, audioIns, audioOuts int) (*patchbay.PortSet, error) {
	if e.drv == nil || e.pbProc == nil {
		return nil, e.fail(carlaerr.New(carlaerr.InvalidState, "engine: patchbay client ports require an open driver in patchbay mode"))
	}
	c := e.drv.AddClient(name)
	if err := c.Activate(); err != nil {
		return nil, e.fail(err)
	}

	frames := int(e.BufferSize())
	ports := &patchbay.PortSet{
		EventIn:  port.NewEventPort(port.Input),
		EventOut: port.NewEventPort(port.Output),
	}
	for i := 0; i < audioIns; i++ {
		p := port.NewAudioPort(port.Audio, port.Input, "in", uint32(i))
		p.Bind(make([]float32, frames))
		ports.AudioIn = append(ports.AudioIn, p)
	}
	for i := 0; i < audioOuts; i++ {
		p := port.NewAudioPort(port.Audio, port.Output, "out", uint32(i))
		p.Bind(make([]float32, frames))
		ports.AudioOut = append(ports.AudioOut, p)
	}
	e.pbProc.BindPorts(id, ports)
	return ports, nil
}

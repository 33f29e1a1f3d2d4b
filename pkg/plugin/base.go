package plugin

import (
	"sync"
	"sync/atomic"

	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/param"
	"github.com/carla-project/carla-engine/pkg/thread"
)

// Base provides the lifecycle/parameter/custom-data plumbing shared by
// every format variant (spec §4.D), following the teacher's PluginBase
// embedding pattern (pkg/plugin/base.go) minus its cgo host handle - a
// host-engine plugin has no foreign host pointer to carry, only its own
// parameter manager, program lists, and activation state.
type Base struct {
	info   Info
	Params *param.Manager
	Logger *enginelog.Logger

	sampleRate float64
	maxFrames  uint32
	active     int32 // atomic bool

	mu           sync.RWMutex
	programs     []ProgramInfo
	curProgram   int32
	midiPrograms []MidiProgramInfo
	curMidi      int32
	customData   []CustomData
	post         PostProcess
}

// NewBase creates a Base with an empty parameter manager and no programs.
func NewBase(info Info, logger *enginelog.Logger) *Base {
	return &Base{
		info:       info,
		Params:     param.NewManager(),
		Logger:     logger,
		curProgram: -1,
		curMidi:    -1,
		post:       DefaultPostProcess(),
	}
}

func (b *Base) Info() Info { return b.info }

func (b *Base) ParameterCount() int { return int(b.Params.Count()) }

func (b *Base) ParamInfo(i int) param.Info {
	info, _ := b.Params.GetInfoByIndex(uint32(i))
	return info
}

func (b *Base) ParamValue(i int) float64 {
	info, err := b.Params.GetInfoByIndex(uint32(i))
	if err != nil {
		return 0
	}
	return b.Params.Get(info.ID)
}

// SetParam applies a parameter write through the manager. Per spec §4.D
// the slow path (control thread) and fast path (fromRT) differ only in
// who calls this - both always clamp and store, since clamping cost is
// identical either way and the command ring already marshalled the call
// off the control thread before this runs.
func (b *Base) SetParam(i int, value float64, sendCallback, fromRT bool) {
	info, err := b.Params.GetInfoByIndex(uint32(i))
	if err != nil {
		return
	}
	if !sendCallback {
		// Store without going through notifyListeners's change callbacks.
		if p, perr := b.Params.GetParameter(info.ID); perr == nil {
			p.SetValue(value)
		}
		return
	}
	_ = b.Params.Set(info.ID, value)
}

func (b *Base) ProgramCount() int { return len(b.programs) }

func (b *Base) CurrentProgram() int { return int(atomic.LoadInt32(&b.curProgram)) }

// SetProgram records the active program index. It only tracks the
// index: no parameter values are restored, and none of the format
// variants in this package overrides it.
func (b *Base) SetProgram(i int, sendCallback, fromRT bool) {
	if i < 0 || i >= len(b.programs) {
		return
	}
	atomic.StoreInt32(&b.curProgram, int32(i))
}

// SetPrograms installs the plugin's program list (called once by the
// concrete wrapper's constructor).
func (b *Base) SetPrograms(programs []ProgramInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.programs = programs
}

func (b *Base) MidiProgramCount() int { return len(b.midiPrograms) }

func (b *Base) CurrentMidiProgram() int { return int(atomic.LoadInt32(&b.curMidi)) }

func (b *Base) SetMidiProgram(i int, sendCallback, fromRT bool) {
	if i < 0 || i >= len(b.midiPrograms) {
		return
	}
	atomic.StoreInt32(&b.curMidi, int32(i))
}

func (b *Base) SetMidiPrograms(programs []MidiProgramInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.midiPrograms = programs
}

func (b *Base) MidiPrograms() []MidiProgramInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]MidiProgramInfo, len(b.midiPrograms))
	copy(out, b.midiPrograms)
	return out
}

func (b *Base) CustomDataList() []CustomData {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]CustomData, len(b.customData))
	copy(out, b.customData)
	return out
}

func (b *Base) SetCustomData(typ, key, value string, sendGUI bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, cd := range b.customData {
		if cd.Type == typ && cd.Key == key {
			b.customData[i].Value = value
			return
		}
	}
	b.customData = append(b.customData, CustomData{Type: typ, Key: key, Value: value})
}

// PostProcess returns the current post-process coefficients (spec §3).
func (b *Base) PostProcess() PostProcess {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.post
}

func (b *Base) SetPostProcess(pp PostProcess) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.post = pp
}

func (b *Base) Activate(sampleRate float64, maxFrames uint32) error {
	thread.AssertNotAudioThread("Activate")
	b.sampleRate = sampleRate
	b.maxFrames = maxFrames
	atomic.StoreInt32(&b.active, 1)
	return nil
}

func (b *Base) Deactivate() {
	thread.AssertNotAudioThread("Deactivate")
	atomic.StoreInt32(&b.active, 0)
}

func (b *Base) IsActive() bool { return atomic.LoadInt32(&b.active) != 0 }

func (b *Base) SampleRate() float64 { return b.sampleRate }
func (b *Base) MaxFrames() uint32   { return b.maxFrames }

// Chunk/SetChunk default to unsupported; format variants with real
// binary state (LV2, VST) shadow these with their own methods.
func (b *Base) Chunk() ([]byte, bool)  { return nil, false }
func (b *Base) SetChunk([]byte) error { return nil }

// CopyStateInto copies parameter values, program selection, MIDI program
// selection, and custom data from b into dst. Used by each format
// variant's Clone to duplicate a freshly constructed sibling's state
// (spec §4.E clone: "identical metadata, parameter values, program, and
// custom data").
func (b *Base) CopyStateInto(dst *Base) {
	b.mu.RLock()
	customData := append([]CustomData(nil), b.customData...)
	post := b.post
	b.mu.RUnlock()

	for i := 0; i < b.ParameterCount(); i++ {
		info, err := b.Params.GetInfoByIndex(uint32(i))
		if err != nil {
			continue
		}
		dst.SetParam(i, b.Params.Get(info.ID), false, false)
	}
	dst.SetProgram(b.CurrentProgram(), false, false)
	dst.SetMidiProgram(b.CurrentMidiProgram(), false, false)

	dst.mu.Lock()
	dst.customData = customData
	dst.post = post
	dst.mu.Unlock()
}

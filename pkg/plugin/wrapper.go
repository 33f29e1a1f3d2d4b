// Package plugin defines the uniform contract every plugin format
// variant honours (spec §4.D) - LADSPA, DSSI, LV2, VST, and SoundFont -
// so the registry, rack, and patchbay processors can drive any of them
// without knowing which wire format backs a given Client.
package plugin

import (
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/carla-project/carla-engine/pkg/param"
	"github.com/carla-project/carla-engine/pkg/process"
)

// Category classifies a plugin's general role, surfaced to hosts/UIs.
type Category int

const (
	CategoryNone Category = iota
	CategorySynth
	CategoryDelay
	CategoryEQ
	CategoryFilter
	CategoryDistortion
	CategoryDynamics
	CategoryModulator
	CategoryUtility
	CategoryOther
)

// Hint bits describing capabilities beyond the base contract.
const (
	HintIsRTSafe         uint32 = 1 << 0
	HintIsSynth          uint32 = 1 << 1
	HintHasCustomUI      uint32 = 1 << 2
	HintCanRunAsStandalone uint32 = 1 << 3
	HintUsesPanning      uint32 = 1 << 4
	HintFixedBuffers     uint32 = 1 << 5
)

// Format identifies which wire format a wrapper speaks.
type Format int

const (
	FormatLADSPA Format = iota
	FormatDSSI
	FormatLV2
	FormatVST
	FormatSoundFont
)

func (f Format) String() string {
	switch f {
	case FormatLADSPA:
		return "LADSPA"
	case FormatDSSI:
		return "DSSI"
	case FormatLV2:
		return "LV2"
	case FormatVST:
		return "VST"
	case FormatSoundFont:
		return "SoundFont"
	default:
		return "unknown"
	}
}

// Info is a plugin's read-only static metadata (spec §4.D).
type Info struct {
	Format   Format
	Category Category
	Hints    uint32
	Name     string
	Filename string
	Label    string
	UniqueID string // original-format-specific unique id
}

// ProgramInfo describes one entry in a plugin's parameter-preset list.
type ProgramInfo struct {
	Index int32
	Name  string
}

// MidiProgramInfo describes one entry in a plugin's MIDI bank/program list.
type MidiProgramInfo struct {
	Bank    uint32
	Program uint32
	Name    string
}

// CustomData is one plugin-private persistent key/value entry (spec §3).
type CustomData struct {
	Type  string
	Key   string
	Value string
}

// PostProcess holds the per-plugin post-process parameters (spec §3) the
// Rack Processor applies after a plugin's own process() call.
type PostProcess struct {
	DryWet       float32 // [0,1]
	Volume       float32 // [0,inf)
	BalanceLeft  float32 // [-1,1]
	BalanceRight float32 // [-1,1]
	Panning      float32 // [-1,1]
}

// DefaultPostProcess returns the identity post-process settings (fully
// wet, unity gain, centred balance/pan).
func DefaultPostProcess() PostProcess {
	return PostProcess{DryWet: 1.0, Volume: 1.0, BalanceLeft: -1.0, BalanceRight: 1.0, Panning: 0.0}
}

// Wrapper is the uniform contract every plugin format variant honours
// (spec §4.D). Ports and parameters are addressed by 0-based index; a
// Wrapper is free to hold its own native state behind that index space.
type Wrapper interface {
	Info() Info

	AudioInCount() int
	AudioOutCount() int
	MidiInCount() int
	MidiOutCount() int
	ParameterCount() int

	ParamInfo(i int) param.Info
	ParamValue(i int) float64
	// SetParam applies a parameter write. fromRT is true only for the
	// fast path (spec §4.D): a call made from inside Process itself.
	SetParam(i int, value float64, sendCallback, fromRT bool)

	ProgramCount() int
	CurrentProgram() int
	SetProgram(i int, sendCallback, fromRT bool)

	MidiProgramCount() int
	CurrentMidiProgram() int
	SetMidiProgram(i int, sendCallback, fromRT bool)
	MidiPrograms() []MidiProgramInfo

	CustomDataList() []CustomData
	SetCustomData(typ, key, value string, sendGUI bool)

	// Chunk returns opaque full-state bytes, for formats that support it
	// (LV2 state extension, VST chunk). ok is false when unsupported.
	Chunk() (data []byte, ok bool)
	SetChunk(data []byte) error

	// InitBuffers is called by the RT thread immediately before Process,
	// rebinding the wrapper's view of its port buffers for this block.
	InitBuffers(audioIn, audioOut [][]float32)
	Activate(sampleRate float64, maxFrames uint32) error
	Deactivate()
	IsActive() bool

	// Process runs one audio block. inEvents carries this block's input
	// event port contents; outEvents receives any events the plugin
	// itself wants to emit (e.g. a synth echoing note-off on voice steal).
	Process(frames uint32, inEvents []event.EngineEvent, outEvents *[]event.EngineEvent) process.ProcessResult
}

// Cloner is implemented by wrappers the registry can duplicate for
// clone(id) (spec §4.E). A clone is a fresh instance of the same format
// variant with b's parameter values, program, MIDI program, and custom
// data copied in.
type Cloner interface {
	Clone() Wrapper
}

package plugin

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/carla-project/carla-engine/pkg/audio"
	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/carla-project/carla-engine/pkg/param"
	"github.com/carla-project/carla-engine/pkg/process"
)

const (
	vstParamDrive    = iota // pre-gain before the waveshaper
	vstParamTone            // lowpass applied post-shaping
	vstParamOutLevel        // post-gain
)

// VSTDistortion is a demonstration VST-format wrapper: a soft-clip
// distortion with a tone-control lowpass, grounded on the teacher's
// pkg/audio dsp/synth helpers (SoftClip semantics inlined here since the
// plugin wants per-sample control mid-stage, not a whole-buffer pass).
type VSTDistortion struct {
	*Base
	tone *audio.SimpleLowPassFilter

	in, out []float32
}

// NewVSTDistortion creates a VST distortion wrapper identified by uniqueID.
func NewVSTDistortion(uniqueID, filename string, logger *enginelog.Logger) *VSTDistortion {
	info := Info{
		Format:   FormatVST,
		Category: CategoryDistortion,
		Hints:    HintIsRTSafe,
		Name:     "Soft Clip Distortion",
		Filename: filename,
		Label:    "soft_clip",
		UniqueID: uniqueID,
	}
	w := &VSTDistortion{Base: NewBase(info, logger)}
	_ = w.Params.RegisterAll(
		param.Volume(vstParamDrive, "Drive"),
		param.Cutoff(vstParamTone, "Tone"),
		param.Volume(vstParamOutLevel, "Output Level"),
	)
	return w
}

func (w *VSTDistortion) AudioInCount() int  { return 1 }
func (w *VSTDistortion) AudioOutCount() int { return 1 }
func (w *VSTDistortion) MidiInCount() int   { return 0 }
func (w *VSTDistortion) MidiOutCount() int  { return 0 }

func (w *VSTDistortion) Activate(sampleRate float64, maxFrames uint32) error {
	if err := w.Base.Activate(sampleRate, maxFrames); err != nil {
		return err
	}
	w.tone = audio.NewSimpleLowPassFilter(sampleRate)
	w.tone.SetCutoff(w.Params.Get(vstParamTone))
	return nil
}

func (w *VSTDistortion) InitBuffers(audioIn, audioOut [][]float32) {
	if len(audioIn) > 0 {
		w.in = audioIn[0]
	}
	if len(audioOut) > 0 {
		w.out = audioOut[0]
	}
}

// Clone returns a new VSTDistortion with identical metadata, parameter
// values, and activation state (spec §4.E clone).
func (w *VSTDistortion) Clone() Wrapper {
	clone := NewVSTDistortion(w.Info().UniqueID, w.Info().Filename, w.Logger)
	if w.IsActive() {
		_ = clone.Activate(w.SampleRate(), w.MaxFrames())
	}
	w.CopyStateInto(clone.Base)
	return clone
}

func (w *VSTDistortion) Process(frames uint32, inEvents []event.EngineEvent, outEvents *[]event.EngineEvent) process.ProcessResult {
	if !w.IsActive() {
		return process.NewProcessResult(process.ProcessSleep)
	}

	drive := float32(w.Params.Get(vstParamDrive))
	outLevel := float32(w.Params.Get(vstParamOutLevel))
	w.tone.SetCutoff(w.Params.Get(vstParamTone))

	n := int(frames)
	if n > len(w.in) {
		n = len(w.in)
	}
	if n > len(w.out) {
		n = len(w.out)
	}
	for i := 0; i < n; i++ {
		driven := w.in[i] * drive
		shaped := float32(math.Tanh(float64(driven)))
		w.out[i] = float32(w.tone.Process(float64(shaped))) * outLevel
	}
	return process.NewProcessResult(process.ProcessContinueIfNotQuiet)
}

// Chunk persists drive/tone/output-level as a fixed 12-byte record,
// exercising the optional get_chunk/set_chunk contract (spec §4.D).
func (w *VSTDistortion) Chunk() ([]byte, bool) {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(w.Params.Get(vstParamDrive))))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(w.Params.Get(vstParamTone))))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(float32(w.Params.Get(vstParamOutLevel))))
	return buf, true
}

func (w *VSTDistortion) SetChunk(data []byte) error {
	if len(data) < 12 {
		return fmt.Errorf("plugin: vst distortion chunk too short (%d bytes)", len(data))
	}
	w.SetParam(vstParamDrive, float64(math.Float32frombits(binary.LittleEndian.Uint32(data[0:4]))), false, false)
	w.SetParam(vstParamTone, float64(math.Float32frombits(binary.LittleEndian.Uint32(data[4:8]))), false, false)
	w.SetParam(vstParamOutLevel, float64(math.Float32frombits(binary.LittleEndian.Uint32(data[8:12]))), false, false)
	return nil
}

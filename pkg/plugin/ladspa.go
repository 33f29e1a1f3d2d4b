package plugin

import (
	"github.com/carla-project/carla-engine/pkg/audio"
	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/carla-project/carla-engine/pkg/param"
	"github.com/carla-project/carla-engine/pkg/process"
)

const (
	ladspaParamCutoff = iota
	ladspaParamResonance
	ladspaParamGain
)

// LADSPAFilter is a demonstration LADSPA-format wrapper: a mono-in/
// mono-out state-variable lowpass filter with gain, grounded on the
// teacher's pkg/audio.StateVariableFilter.
type LADSPAFilter struct {
	*Base
	filter *audio.StateVariableFilter

	in, out []float32
}

// NewLADSPAFilter creates a LADSPA filter wrapper identified by uniqueID.
func NewLADSPAFilter(uniqueID, filename string, logger *enginelog.Logger) *LADSPAFilter {
	info := Info{
		Format:   FormatLADSPA,
		Category: CategoryFilter,
		Hints:    HintIsRTSafe,
		Name:     "Simple Lowpass Filter",
		Filename: filename,
		Label:    "lowpass_filter",
		UniqueID: uniqueID,
	}
	w := &LADSPAFilter{Base: NewBase(info, logger)}
	_ = w.Params.RegisterAll(
		param.Cutoff(ladspaParamCutoff, "Cutoff"),
		param.Resonance(ladspaParamResonance, "Resonance"),
		param.Volume(ladspaParamGain, "Gain"),
	)
	return w
}

func (w *LADSPAFilter) AudioInCount() int  { return 1 }
func (w *LADSPAFilter) AudioOutCount() int { return 1 }
func (w *LADSPAFilter) MidiInCount() int   { return 0 }
func (w *LADSPAFilter) MidiOutCount() int  { return 0 }

func (w *LADSPAFilter) Activate(sampleRate float64, maxFrames uint32) error {
	if err := w.Base.Activate(sampleRate, maxFrames); err != nil {
		return err
	}
	w.filter = audio.NewStateVariableFilter(sampleRate)
	w.filter.SetFrequency(w.Params.Get(ladspaParamCutoff))
	w.filter.SetResonance(w.Params.Get(ladspaParamResonance))
	return nil
}

func (w *LADSPAFilter) InitBuffers(audioIn, audioOut [][]float32) {
	if len(audioIn) > 0 {
		w.in = audioIn[0]
	}
	if len(audioOut) > 0 {
		w.out = audioOut[0]
	}
}

// Clone returns a new LADSPAFilter with identical metadata, parameter
// values, and activation state (spec §4.E clone).
func (w *LADSPAFilter) Clone() Wrapper {
	clone := NewLADSPAFilter(w.Info().UniqueID, w.Info().Filename, w.Logger)
	if w.IsActive() {
		_ = clone.Activate(w.SampleRate(), w.MaxFrames())
	}
	w.CopyStateInto(clone.Base)
	return clone
}

func (w *LADSPAFilter) Process(frames uint32, inEvents []event.EngineEvent, outEvents *[]event.EngineEvent) process.ProcessResult {
	if !w.IsActive() {
		return process.NewProcessResult(process.ProcessSleep)
	}

	// Apply any fast-path parameter writes queued for this block (events
	// normalised to Control kind carry automation from the RT command ring).
	for _, e := range inEvents {
		if c, ok := e.Kind.(event.Control); ok && c.Subkind == event.Parameter {
			switch c.ParamID {
			case ladspaParamCutoff:
				w.SetParam(ladspaParamCutoff, 20.0+float64(c.Value)*19980.0, true, true)
				w.filter.SetFrequency(w.Params.Get(ladspaParamCutoff))
			case ladspaParamResonance:
				w.SetParam(ladspaParamResonance, float64(c.Value), true, true)
				w.filter.SetResonance(w.Params.Get(ladspaParamResonance))
			}
		}
	}

	gain := float32(w.Params.Get(ladspaParamGain))
	n := int(frames)
	if n > len(w.in) {
		n = len(w.in)
	}
	if n > len(w.out) {
		n = len(w.out)
	}
	for i := 0; i < n; i++ {
		w.out[i] = float32(w.filter.ProcessLowpass(float64(w.in[i]))) * gain
	}
	return process.NewProcessResult(process.ProcessContinue)
}

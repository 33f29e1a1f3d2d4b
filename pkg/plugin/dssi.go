package plugin

import (
	"math"

	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/carla-project/carla-engine/pkg/param"
	"github.com/carla-project/carla-engine/pkg/process"
)

const (
	dssiParamAttack = iota
	dssiParamDecay
	dssiParamSustain
	dssiParamRelease
)

const dssiMaxVoices = 8

// dssiVoice is one note of the wrapper's stand-in instrument: a sine
// oscillator gated by a four-stage envelope. A DSSI host never runs the
// plugin's own synthesis - it only ferries MIDI in and audio out - so
// the wrapper's job is to look like that boundary, not to carry a synth
// engine in the host.
type dssiVoice struct {
	active    bool
	note      int16
	channel   int16
	freq      float64
	phase     float64
	velocity  float64
	stage     int // 0 idle, 1 attack, 2 decay/sustain, 3 release
	level     float64
	stageTime float64
}

// DSSISynth is a demonstration DSSI-format wrapper: DSSI extends LADSPA
// with MIDI-driven instrument control, so unlike LADSPAFilter this
// variant has no audio inputs and renders from the input event port.
type DSSISynth struct {
	*Base
	voices [dssiMaxVoices]dssiVoice

	out []float32
}

// NewDSSISynth creates a DSSI synth wrapper identified by uniqueID.
func NewDSSISynth(uniqueID, filename string, logger *enginelog.Logger) *DSSISynth {
	info := Info{
		Format:   FormatDSSI,
		Category: CategorySynth,
		Hints:    HintIsRTSafe | HintIsSynth,
		Name:     "Simple Poly Synth",
		Filename: filename,
		Label:    "poly_synth",
		UniqueID: uniqueID,
	}
	w := &DSSISynth{Base: NewBase(info, logger)}
	_ = w.Params.RegisterAll(
		param.ADSR(dssiParamAttack, "Attack", 2.0),
		param.ADSR(dssiParamDecay, "Decay", 2.0),
		param.Percentage(dssiParamSustain, "Sustain", 70),
		param.ADSR(dssiParamRelease, "Release", 4.0),
	)
	w.SetPrograms([]ProgramInfo{{Index: 0, Name: "Init"}, {Index: 1, Name: "Pad"}})
	return w
}

func (w *DSSISynth) AudioInCount() int  { return 0 }
func (w *DSSISynth) AudioOutCount() int { return 1 }
func (w *DSSISynth) MidiInCount() int   { return 1 }
func (w *DSSISynth) MidiOutCount() int  { return 0 }

func (w *DSSISynth) Activate(sampleRate float64, maxFrames uint32) error {
	if err := w.Base.Activate(sampleRate, maxFrames); err != nil {
		return err
	}
	w.voices = [dssiMaxVoices]dssiVoice{}
	return nil
}

func (w *DSSISynth) InitBuffers(audioIn, audioOut [][]float32) {
	if len(audioOut) > 0 {
		w.out = audioOut[0]
	}
}

// Clone returns a new DSSISynth with identical metadata, parameter
// values, program, and activation state (spec §4.E clone). Active
// voices are not carried over - a clone starts silent.
func (w *DSSISynth) Clone() Wrapper {
	clone := NewDSSISynth(w.Info().UniqueID, w.Info().Filename, w.Logger)
	if w.IsActive() {
		_ = clone.Activate(w.SampleRate(), w.MaxFrames())
	}
	w.CopyStateInto(clone.Base)
	return clone
}

func dssiNoteToFreq(note int16) float64 {
	return 440.0 * math.Pow(2.0, (float64(note)-69.0)/12.0)
}

func (w *DSSISynth) noteOn(note, channel int16, velocity float64) {
	for i := range w.voices {
		if !w.voices[i].active {
			w.voices[i] = dssiVoice{
				active:   true,
				note:     note,
				channel:  channel,
				freq:     dssiNoteToFreq(note),
				velocity: velocity,
				stage:    1,
			}
			return
		}
	}
}

func (w *DSSISynth) noteOff(note, channel int16) {
	for i := range w.voices {
		v := &w.voices[i]
		if v.active && v.note == note && v.channel == channel && v.stage != 3 {
			v.stage = 3
			v.stageTime = 0
		}
	}
}

// Process drains note events in block order before rendering, matching
// the spec's per-block note-on/note-off timing contract.
func (w *DSSISynth) Process(frames uint32, inEvents []event.EngineEvent, outEvents *[]event.EngineEvent) process.ProcessResult {
	if !w.IsActive() {
		return process.NewProcessResult(process.ProcessSleep)
	}

	for _, e := range inEvents {
		m, ok := e.Kind.(event.Midi)
		if !ok {
			continue
		}
		status := m.Data[0] & 0xF0
		switch {
		case status == event.StatusNoteOn && m.Size >= 3 && m.Data[2] > 0:
			w.noteOn(int16(m.Data[1]), int16(e.Channel), float64(m.Data[2])/127.0)
		case status == event.StatusNoteOff || (status == event.StatusNoteOn && m.Size >= 3 && m.Data[2] == 0):
			w.noteOff(int16(m.Data[1]), int16(e.Channel))
		}
	}

	attack := w.Params.Get(dssiParamAttack)
	decay := w.Params.Get(dssiParamDecay)
	sustain := w.Params.Get(dssiParamSustain)
	release := w.Params.Get(dssiParamRelease)
	sampleDur := 1.0 / w.SampleRate()

	n := int(frames)
	if n > len(w.out) {
		n = len(w.out)
	}
	for i := range w.out {
		w.out[i] = 0
	}

	active := 0
	for vi := range w.voices {
		v := &w.voices[vi]
		if !v.active {
			continue
		}
		active++
		phaseInc := v.freq * sampleDur

		for i := 0; i < n; i++ {
			switch v.stage {
			case 1: // attack
				if attack > 0 {
					v.level += sampleDur / attack
				} else {
					v.level = 1.0
				}
				if v.level >= 1.0 {
					v.level = 1.0
					v.stage = 2
					v.stageTime = 0
				}
			case 2: // decay into sustain
				if decay > 0 && v.stageTime < decay {
					progress := v.stageTime / decay
					v.level = 1.0 - progress*(1.0-sustain)
					v.stageTime += sampleDur
				} else {
					v.level = sustain
				}
			case 3: // release
				if release > 0 {
					v.level -= sustain * sampleDur / release
				} else {
					v.level = 0
				}
				if v.level <= 0 {
					v.level = 0
					v.active = false
				}
			}

			w.out[i] += float32(math.Sin(2.0*math.Pi*v.phase) * v.level * v.velocity)
			v.phase += phaseInc
			if v.phase >= 1.0 {
				v.phase -= math.Trunc(v.phase)
			}
		}
	}

	if active == 0 {
		return process.NewProcessResult(process.ProcessSleep)
	}
	return process.NewProcessResult(process.ProcessContinue)
}

package plugin

import (
	"math"

	"github.com/carla-project/carla-engine/pkg/audio"
	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/carla-project/carla-engine/pkg/param"
	"github.com/carla-project/carla-engine/pkg/process"
)

const (
	sfParamCutoff    = iota // filter cutoff
	sfParamResonance        // filter Q
	sfParamEnvAmount        // filter envelope amount
)

const sfMaxVoices = 8

// sfVoice is one sounding note: a sine source through a per-voice
// state-variable filter, gated by a simple on/off envelope scaled by
// sfParamEnvAmount. A SoundFont host never renders the bank itself -
// Carla only selects the MIDI program and ferries audio out - so this
// stands in for "a note is sounding", not for wavetable playback.
type sfVoice struct {
	active  bool
	note    int16
	channel int16
	freq    float64
	phase   float64
	level   float64
	filter  *audio.StateVariableFilter
}

// SoundFontSynth is a demonstration SoundFont-format wrapper: a bank/
// program-selectable polyphonic voice. Unlike DSSISynth this variant
// exposes a MIDI bank/program list (spec §3's midi_programs), matching
// how a real SoundFont exposes presets.
type SoundFontSynth struct {
	*Base
	voices     [sfMaxVoices]sfVoice
	sampleRate float64

	out []float32
}

// NewSoundFontSynth creates a SoundFont synth wrapper identified by uniqueID.
func NewSoundFontSynth(uniqueID, filename string, logger *enginelog.Logger) *SoundFontSynth {
	info := Info{
		Format:   FormatSoundFont,
		Category: CategorySynth,
		Hints:    HintIsRTSafe | HintIsSynth,
		Name:     "SoundFont Bank",
		Filename: filename,
		Label:    "soundfont_bank",
		UniqueID: uniqueID,
	}
	w := &SoundFontSynth{Base: NewBase(info, logger)}
	_ = w.Params.RegisterAll(
		param.Cutoff(sfParamCutoff, "Cutoff"),
		param.Resonance(sfParamResonance, "Resonance"),
		param.Percentage(sfParamEnvAmount, "Envelope Amount", 0),
	)
	w.SetMidiPrograms([]MidiProgramInfo{
		{Bank: 0, Program: 0, Name: "Grand Piano"},
		{Bank: 0, Program: 1, Name: "Warm Pad"},
		{Bank: 128, Program: 0, Name: "Standard Drum Kit"},
	})
	return w
}

func (w *SoundFontSynth) AudioInCount() int  { return 0 }
func (w *SoundFontSynth) AudioOutCount() int { return 1 }
func (w *SoundFontSynth) MidiInCount() int   { return 1 }
func (w *SoundFontSynth) MidiOutCount() int  { return 0 }

func (w *SoundFontSynth) Activate(sampleRate float64, maxFrames uint32) error {
	if err := w.Base.Activate(sampleRate, maxFrames); err != nil {
		return err
	}
	w.sampleRate = sampleRate
	w.voices = [sfMaxVoices]sfVoice{}
	return nil
}

func (w *SoundFontSynth) InitBuffers(audioIn, audioOut [][]float32) {
	if len(audioOut) > 0 {
		w.out = audioOut[0]
	}
}

// Clone returns a new SoundFontSynth with identical metadata, parameter
// values, MIDI program selection, and activation state (spec §4.E
// clone). Active voices are not carried over - a clone starts silent.
func (w *SoundFontSynth) Clone() Wrapper {
	clone := NewSoundFontSynth(w.Info().UniqueID, w.Info().Filename, w.Logger)
	if w.IsActive() {
		_ = clone.Activate(w.SampleRate(), w.MaxFrames())
	}
	w.CopyStateInto(clone.Base)
	return clone
}

func sfNoteToFreq(note int16) float64 {
	return 440.0 * math.Pow(2.0, (float64(note)-69.0)/12.0)
}

func (w *SoundFontSynth) noteOn(note, channel int16) {
	for i := range w.voices {
		if !w.voices[i].active {
			w.voices[i] = sfVoice{
				active:  true,
				note:    note,
				channel: channel,
				freq:    sfNoteToFreq(note),
				filter:  audio.NewStateVariableFilter(w.sampleRate),
			}
			return
		}
	}
}

func (w *SoundFontSynth) noteOff(note, channel int16) {
	for i := range w.voices {
		v := &w.voices[i]
		if v.active && v.note == note && v.channel == channel {
			v.active = false
		}
	}
}

func (w *SoundFontSynth) activeVoiceCount() int {
	n := 0
	for i := range w.voices {
		if w.voices[i].active || w.voices[i].level > 0 {
			n++
		}
	}
	return n
}

func (w *SoundFontSynth) Process(frames uint32, inEvents []event.EngineEvent, outEvents *[]event.EngineEvent) process.ProcessResult {
	if !w.IsActive() {
		return process.NewProcessResult(process.ProcessSleep)
	}

	for _, e := range inEvents {
		switch k := e.Kind.(type) {
		case event.Midi:
			status := k.Data[0] & 0xF0
			switch {
			case status == event.StatusNoteOn && k.Size >= 3 && k.Data[2] > 0:
				w.noteOn(int16(k.Data[1]), int16(e.Channel))
			case status == event.StatusNoteOff || (status == event.StatusNoteOn && k.Size >= 3 && k.Data[2] == 0):
				w.noteOff(int16(k.Data[1]), int16(e.Channel))
			}
		case event.Control:
			if k.Subkind == event.MidiProgram {
				w.SetMidiProgram(int(k.ParamID), true, true)
			}
		}
	}

	cutoff := w.Params.Get(sfParamCutoff)
	resonance := w.Params.Get(sfParamResonance)
	envAmount := w.Params.Get(sfParamEnvAmount)

	n := int(frames)
	if n > len(w.out) {
		n = len(w.out)
	}
	for i := range w.out {
		w.out[i] = 0
	}

	sampleDur := 1.0 / w.sampleRate
	for vi := range w.voices {
		v := &w.voices[vi]
		if v.filter == nil {
			continue
		}
		if v.active && v.level < 1.0 {
			v.level += sampleDur / 0.01 // 10ms attack
			if v.level > 1.0 {
				v.level = 1.0
			}
		} else if !v.active && v.level > 0 {
			v.level -= sampleDur / 0.2 // 200ms release
			if v.level < 0 {
				v.level = 0
			}
		}
		if v.level == 0 && !v.active {
			continue
		}

		v.filter.SetFrequency(cutoff * (1.0 + envAmount*v.level*3.0))
		v.filter.SetResonance(resonance)

		phaseInc := v.freq * sampleDur
		for i := 0; i < n; i++ {
			sample := math.Sin(2.0 * math.Pi * v.phase)
			w.out[i] += float32(v.filter.ProcessLowpass(sample) * v.level)
			v.phase += phaseInc
			if v.phase >= 1.0 {
				v.phase -= math.Trunc(v.phase)
			}
		}
	}

	if w.activeVoiceCount() == 0 {
		return process.NewProcessResult(process.ProcessSleep)
	}
	return process.NewProcessResult(process.ProcessContinue)
}

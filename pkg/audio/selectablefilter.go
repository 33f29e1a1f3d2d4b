package audio

import "math"

// StateVariableFilter is a Chamberlin-topology filter that yields
// lowpass, highpass, bandpass and notch outputs from a single pass,
// used by hosted-plugin wrappers that need an RT-safe filter stage
// (see pkg/plugin's LADSPA wrapper) without pulling in a full synth
// engine.
type StateVariableFilter struct {
	sampleRate float64
	frequency  float64
	resonance  float64

	lowpass  float64
	highpass float64
	bandpass float64
	notch    float64

	prevBandpass float64
	prevLowpass  float64
}

// NewStateVariableFilter creates a filter tuned to 1kHz/Q1 by default.
func NewStateVariableFilter(sampleRate float64) *StateVariableFilter {
	return &StateVariableFilter{
		sampleRate: sampleRate,
		frequency:  1000.0,
		resonance:  1.0,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetFrequency sets the corner frequency in Hz, clamped to
// [20, 0.45 x sample rate] (0.9 of Nyquist) to keep the SVF recursion
// stable.
func (f *StateVariableFilter) SetFrequency(freq float64) {
	f.frequency = clamp(freq, 20.0, f.sampleRate*0.45)
}

// SetResonance sets the Q factor.
func (f *StateVariableFilter) SetResonance(q float64) {
	f.resonance = clamp(q, 0.5, 20.0)
}

// Process runs one sample through the filter, returning all four taps.
func (f *StateVariableFilter) Process(input float64) (lowpass, highpass, bandpass, notch float64) {
	w := f.frequency / f.sampleRate
	fc := 2.0 * math.Sin(math.Pi*w)
	if fc > 1.5 {
		fc = 1.5 // keeps the recursion from diverging near Nyquist
	}
	damp := 2.0 / f.resonance

	f.highpass = input - f.prevLowpass - damp*f.prevBandpass
	f.bandpass = fc*f.highpass + f.prevBandpass
	f.lowpass = fc*f.bandpass + f.prevLowpass
	f.notch = f.highpass + f.lowpass

	if math.Abs(f.lowpass) > 10.0 {
		f.lowpass = 10.0 * math.Tanh(f.lowpass/10.0)
	}
	if math.Abs(f.bandpass) > 10.0 {
		f.bandpass = 10.0 * math.Tanh(f.bandpass/10.0)
	}

	f.prevBandpass = f.bandpass
	f.prevLowpass = f.lowpass

	return f.lowpass, f.highpass, f.bandpass, f.notch
}

// ProcessLowpass runs the filter and discards every tap but lowpass.
func (f *StateVariableFilter) ProcessLowpass(input float64) float64 {
	lp, _, _, _ := f.Process(input)
	return lp
}

// ProcessHighpass runs the filter and discards every tap but highpass.
func (f *StateVariableFilter) ProcessHighpass(input float64) float64 {
	_, hp, _, _ := f.Process(input)
	return hp
}

// ProcessBandpass runs the filter and discards every tap but bandpass.
func (f *StateVariableFilter) ProcessBandpass(input float64) float64 {
	_, _, bp, _ := f.Process(input)
	return bp
}

// Reset clears filter memory, used when a hosted plugin resets between
// playback runs.
func (f *StateVariableFilter) Reset() {
	f.lowpass, f.highpass, f.bandpass, f.notch = 0, 0, 0, 0
	f.prevBandpass, f.prevLowpass = 0, 0
}

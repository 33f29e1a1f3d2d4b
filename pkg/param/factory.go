package param

// Common parameter factory functions for frequently used parameter shapes,
// used by the format demo plugins (pkg/plugin/ladspa, dssi, soundfont) to
// build their Info lists without repeating range/flag boilerplate.

// Volume creates a gain parameter (0 = -inf dB, 1 = unity, 2 = ~+6dB).
func Volume(id uint32, name string) Info {
	return Info{
		ID:          id,
		Name:        name,
		Unit:        "dB",
		Flags:       FlagAutomatable | FlagModulatable | FlagBoundedBelow | FlagBoundedAbove,
		Ranges:      Ranges{Min: 0.0, Max: 2.0, Default: 1.0, Step: 0.01, StepSmall: 0.001, StepLarge: 0.1},
		MidiCC:      -1,
		MidiChannel: -1,
	}
}

// Pan creates a pan parameter in [-1, 1].
func Pan(id uint32, name string) Info {
	return Info{
		ID:          id,
		Name:        name,
		Flags:       FlagAutomatable | FlagModulatable | FlagBoundedBelow | FlagBoundedAbove,
		Ranges:      Ranges{Min: -1.0, Max: 1.0, Default: 0.0, Step: 0.01, StepSmall: 0.001, StepLarge: 0.1},
		MidiCC:      -1,
		MidiChannel: -1,
	}
}

// Frequency creates a frequency parameter over an arbitrary Hz range.
func Frequency(id uint32, name string, minHz, maxHz, defaultHz float64) Info {
	return Info{
		ID:          id,
		Name:        name,
		Unit:        "Hz",
		Flags:       FlagAutomatable | FlagModulatable | FlagBoundedBelow | FlagBoundedAbove,
		Ranges:      Ranges{Min: minHz, Max: maxHz, Default: defaultHz, Step: 1, StepSmall: 0.1, StepLarge: 100},
		MidiCC:      -1,
		MidiChannel: -1,
	}
}

// Cutoff creates a filter cutoff parameter over the audible range.
func Cutoff(id uint32, name string) Info {
	return Frequency(id, name, 20.0, 20000.0, 1000.0)
}

// Resonance creates a filter resonance/Q parameter in [0, 1].
func Resonance(id uint32, name string) Info {
	return Info{
		ID:          id,
		Name:        name,
		Flags:       FlagAutomatable | FlagModulatable | FlagBoundedBelow | FlagBoundedAbove,
		Ranges:      Ranges{Min: 0.0, Max: 1.0, Default: 0.5, Step: 0.01, StepSmall: 0.001, StepLarge: 0.1},
		MidiCC:      -1,
		MidiChannel: -1,
	}
}

// ADSR creates an envelope-stage time parameter, in seconds.
func ADSR(id uint32, name string, maxSeconds float64) Info {
	return Info{
		ID:          id,
		Name:        name,
		Unit:        "s",
		Flags:       FlagAutomatable | FlagModulatable | FlagBoundedBelow | FlagBoundedAbove,
		Ranges:      Ranges{Min: 0.0, Max: maxSeconds, Default: 0.1, Step: 0.001, StepSmall: 0.0001, StepLarge: 0.01},
		MidiCC:      -1,
		MidiChannel: -1,
	}
}

// Switch creates a boolean (0/1) parameter.
func Switch(id uint32, name string, defaultOn bool) Info {
	def := 0.0
	if defaultOn {
		def = 1.0
	}
	return Info{
		ID:          id,
		Name:        name,
		Flags:       FlagAutomatable | FlagStepped | FlagBoundedBelow | FlagBoundedAbove,
		Ranges:      Ranges{Min: 0.0, Max: 1.0, Default: def, Step: 1},
		MidiCC:      -1,
		MidiChannel: -1,
	}
}

// Choice creates a stepped parameter selecting among numOptions discrete values.
func Choice(id uint32, name string, numOptions int, defaultOption int) Info {
	return Info{
		ID:          id,
		Name:        name,
		Flags:       FlagAutomatable | FlagStepped | FlagBoundedBelow | FlagBoundedAbove,
		Ranges:      Ranges{Min: 0.0, Max: float64(numOptions - 1), Default: float64(defaultOption), Step: 1},
		MidiCC:      -1,
		MidiChannel: -1,
	}
}

// Percentage creates a 0-100% parameter stored internally as [0,1].
func Percentage(id uint32, name string, defaultPercent float64) Info {
	return Info{
		ID:          id,
		Name:        name,
		Unit:        "%",
		Flags:       FlagAutomatable | FlagModulatable | FlagBoundedBelow | FlagBoundedAbove,
		Ranges:      Ranges{Min: 0.0, Max: 1.0, Default: defaultPercent / 100.0, Step: 0.01},
		MidiCC:      -1,
		MidiChannel: -1,
	}
}

// Bypass creates the plugin's bypass toggle parameter.
func Bypass(id uint32) Info {
	return Info{
		ID:          id,
		Name:        "Bypass",
		Flags:       FlagBypass | FlagStepped | FlagBoundedBelow | FlagBoundedAbove,
		Ranges:      Ranges{Min: 0.0, Max: 1.0, Default: 0.0, Step: 1},
		MidiCC:      -1,
		MidiChannel: -1,
	}
}

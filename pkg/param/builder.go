package param

import "errors"

// Builder provides a fluent interface for constructing a parameter Info,
// used by demo plugins to declare their parameter list without repeating
// the Ranges/Flags boilerplate inline.
type Builder struct {
	info Info
	err  error
}

// NewBuilder starts a builder defaulted to an automatable [0,1] parameter.
func NewBuilder(id uint32, name string) *Builder {
	return &Builder{
		info: Info{
			ID:          id,
			Name:        name,
			Flags:       FlagAutomatable,
			Ranges:      Ranges{Min: 0.0, Max: 1.0, Default: 0.5},
			MidiCC:      -1,
			MidiChannel: -1,
		},
	}
}

// Module sets the parameter's display grouping path.
func (b *Builder) Module(module string) *Builder {
	if b.err == nil {
		b.info.Module = module
	}
	return b
}

// Unit sets the parameter's display unit suffix (e.g. "Hz", "dB").
func (b *Builder) Unit(unit string) *Builder {
	if b.err == nil {
		b.info.Unit = unit
	}
	return b
}

// Range sets min, max, and default together, validating their ordering.
func (b *Builder) Range(min, max, defaultValue float64) *Builder {
	if b.err != nil {
		return b
	}
	if min >= max {
		b.err = errors.New("param: min value must be less than max value")
		return b
	}
	if defaultValue < min || defaultValue > max {
		b.err = errors.New("param: default value must be within min/max range")
		return b
	}
	b.info.Ranges.Min = min
	b.info.Ranges.Max = max
	b.info.Ranges.Default = defaultValue
	return b
}

// Steps sets the small/normal/large step increments used by stepper UIs.
func (b *Builder) Steps(step, small, large float64) *Builder {
	if b.err == nil {
		b.info.Ranges.Step = step
		b.info.Ranges.StepSmall = small
		b.info.Ranges.StepLarge = large
	}
	return b
}

// MidiBinding sets the MIDI CC number and channel this parameter tracks.
func (b *Builder) MidiBinding(cc, channel int32) *Builder {
	if b.err == nil {
		b.info.MidiCC = cc
		b.info.MidiChannel = channel
	}
	return b
}

// Flags overwrites the parameter's flag set.
func (b *Builder) Flags(flags uint32) *Builder {
	if b.err == nil {
		b.info.Flags = flags
	}
	return b
}

// AddFlags ORs additional flags into the parameter's flag set.
func (b *Builder) AddFlags(flags uint32) *Builder {
	if b.err == nil {
		b.info.Flags |= flags
	}
	return b
}

func (b *Builder) Automatable() *Builder { return b.AddFlags(FlagAutomatable) }
func (b *Builder) Modulatable() *Builder { return b.AddFlags(FlagModulatable) }
func (b *Builder) Stepped() *Builder     { return b.AddFlags(FlagStepped) }
func (b *Builder) Hidden() *Builder      { return b.AddFlags(FlagHidden) }
func (b *Builder) ReadOnly() *Builder    { return b.AddFlags(FlagReadonly) }
func (b *Builder) Bypass() *Builder      { return b.AddFlags(FlagBypass) }
func (b *Builder) Bounded() *Builder     { return b.AddFlags(FlagBoundedBelow | FlagBoundedAbove) }

// Build finalises the Info, reporting any error accumulated along the way.
func (b *Builder) Build() (Info, error) {
	if b.err != nil {
		return Info{}, b.err
	}
	if b.info.Name == "" {
		return Info{}, errors.New("param: name is required")
	}
	if b.info.Ranges.Min >= b.info.Ranges.Max {
		return Info{}, errors.New("param: min value must be less than max value")
	}
	if b.info.Ranges.Default < b.info.Ranges.Min || b.info.Ranges.Default > b.info.Ranges.Max {
		return Info{}, errors.New("param: default value must be within min/max range")
	}
	return b.info, nil
}

// MustBuild is Build, panicking on error - for package-init-time construction
// where a bad literal is a programming error, not a runtime condition.
func (b *Builder) MustBuild() Info {
	info, err := b.Build()
	if err != nil {
		panic(err)
	}
	return info
}

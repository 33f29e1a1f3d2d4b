package param

import (
	"fmt"
	"math"
)

// Binding pairs a registered parameter with display/choice metadata and an
// optional change callback, so a plugin wrapper's UI/automation glue can
// work in terms of "the cutoff knob" rather than bare parameter IDs.
type Binding struct {
	ID       uint32
	Format   Format
	Choices  []string // non-empty for choice/enum parameters
	OnChange func(float64)
	Min      float64
	Max      float64
	Default  float64
}

// Binder manages a plugin's Bindings atop a Manager, providing
// text<->value conversion and choice-aware clamping.
type Binder struct {
	bindings map[uint32]*Binding
	manager  *Manager
}

// NewBinder creates a binder atop the given parameter manager.
func NewBinder(manager *Manager) *Binder {
	return &Binder{bindings: make(map[uint32]*Binding), manager: manager}
}

func (b *Binder) bind(info Info, format Format, choices []string) {
	b.bindings[info.ID] = &Binding{
		ID:      info.ID,
		Format:  format,
		Choices: choices,
		Min:     info.Ranges.Min,
		Max:     info.Ranges.Max,
		Default: info.Ranges.Default,
	}
	_ = b.manager.Register(info)
}

// BindPercentage registers and binds a 0-100% parameter.
func (b *Binder) BindPercentage(id uint32, name string, defaultValue float64) {
	b.bind(Percentage(id, name, defaultValue), FormatPercentage, nil)
}

// BindChoice registers and binds a parameter that selects among string choices.
func (b *Binder) BindChoice(id uint32, name string, choices []string, defaultIndex int) {
	if defaultIndex < 0 || defaultIndex >= len(choices) {
		defaultIndex = 0
	}
	b.bind(Choice(id, name, len(choices), defaultIndex), FormatDefault, choices)
}

// BindCutoff registers and binds a filter cutoff parameter.
func (b *Binder) BindCutoff(id uint32, name string, defaultValue float64) {
	info := Cutoff(id, name)
	info.Ranges.Default = defaultValue
	b.bind(info, FormatHertz, nil)
}

// SetCallback installs a change callback for an already-bound parameter.
func (b *Binder) SetCallback(id uint32, callback func(float64)) {
	if binding, ok := b.bindings[id]; ok {
		binding.OnChange = callback
	}
}

// Apply clamps value (rounding for choice parameters), stores it via the
// manager, and invokes the binding's callback if set. Returns false for an
// unbound paramID.
func (b *Binder) Apply(paramID uint32, value float64) bool {
	binding, ok := b.bindings[paramID]
	if !ok {
		return false
	}
	if len(binding.Choices) > 0 {
		value = math.Round(value)
	}
	value = ClampValue(value, binding.Min, binding.Max)
	_ = b.manager.Set(paramID, value)
	if binding.OnChange != nil {
		binding.OnChange(value)
	}
	return true
}

// ValueToText renders a parameter's value as display text.
func (b *Binder) ValueToText(paramID uint32, value float64) (string, bool) {
	binding, ok := b.bindings[paramID]
	if !ok {
		return "", false
	}
	if len(binding.Choices) > 0 {
		index := int(math.Round(value))
		if index >= 0 && index < len(binding.Choices) {
			return binding.Choices[index], true
		}
		return "unknown", true
	}
	return FormatValue(value, binding.Format), true
}

// TextToValue parses display text back into a clamped parameter value.
func (b *Binder) TextToValue(paramID uint32, text string) (float64, error) {
	binding, ok := b.bindings[paramID]
	if !ok {
		return 0, fmt.Errorf("param: unknown parameter ID %d", paramID)
	}
	if len(binding.Choices) > 0 {
		for i, choice := range binding.Choices {
			if choice == text {
				return float64(i), nil
			}
		}
		return 0, fmt.Errorf("param: invalid choice %q", text)
	}
	value, err := NewParser(binding.Format).ParseValue(text)
	if err != nil {
		return 0, err
	}
	return ClampValue(value, binding.Min, binding.Max), nil
}

// Get returns the Binding for paramID, if bound.
func (b *Binder) Get(paramID uint32) (*Binding, bool) {
	binding, ok := b.bindings[paramID]
	return binding, ok
}

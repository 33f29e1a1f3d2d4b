package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterClampsOnSet(t *testing.T) {
	p := NewParameter(Cutoff(0, "Cutoff"))
	assert.Equal(t, 1000.0, p.Value())

	assert.Equal(t, 20000.0, p.SetValue(99999))
	assert.Equal(t, 20.0, p.SetValue(-5))
}

func TestManagerRegisterRejectsDuplicateID(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(Volume(0, "Volume")))
	assert.ErrorIs(t, m.Register(Volume(0, "Volume 2")), ErrParameterExists)
}

func TestManagerSetNotifiesListenersOnlyOnChange(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(Pan(1, "Pan")))

	var calls int
	require.NoError(t, m.AddListener(func(id uint32, old, new float64) {
		calls++
	}))

	require.NoError(t, m.Set(1, 0.5))
	assert.Equal(t, 1, calls)

	require.NoError(t, m.Set(1, 0.5)) // same value, no notification
	assert.Equal(t, 1, calls)
}

func TestManagerListenerLimit(t *testing.T) {
	m := NewManager()
	for i := 0; i < MaxListeners; i++ {
		require.NoError(t, m.AddListener(func(uint32, float64, float64) {}))
	}
	assert.ErrorIs(t, m.AddListener(func(uint32, float64, float64) {}), ErrListenerLimit)
}

func TestBinderChoiceRoundTrip(t *testing.T) {
	b := NewBinder(NewManager())
	b.BindChoice(0, "Waveform", []string{"sine", "saw", "square"}, 1)

	text, ok := b.ValueToText(0, 1)
	require.True(t, ok)
	assert.Equal(t, "saw", text)

	value, err := b.TextToValue(0, "square")
	require.NoError(t, err)
	assert.Equal(t, 2.0, value)
}

func TestFormatValueRoundTripsThroughParser(t *testing.T) {
	parser := NewParser(FormatHertz)
	value, err := parser.ParseValue(FormatValue(1234.5, FormatHertz))
	require.NoError(t, err)
	assert.InDelta(t, 1234.5, value, 0.01)
}

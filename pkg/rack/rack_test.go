package rack

import (
	"io"
	"testing"

	"github.com/carla-project/carla-engine/pkg/audio"
	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/carla-project/carla-engine/pkg/plugin"
	"github.com/carla-project/carla-engine/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *enginelog.Logger { return enginelog.New(io.Discard, "test") }

func ladspaLoader(uniqueID, filename, label string) (plugin.Wrapper, error) {
	return plugin.NewLADSPAFilter(uniqueID, filename, testLogger()), nil
}

func newActiveRegistry(t *testing.T, n int) *registry.Registry {
	t.Helper()
	reg := registry.New(8)
	for i := 0; i < n; i++ {
		id, err := reg.Add(ladspaLoader, "u", "f", "l", "Filter")
		require.NoError(t, err)
		e, err := reg.Get(id)
		require.NoError(t, err)
		require.NoError(t, e.Wrapper.Activate(48000, 256))
	}
	return reg
}

func constantBus(frames int, value float32) audio.Buffer {
	bus := audio.NewBuffer(2, frames)
	for ch := range bus {
		for i := range bus[ch] {
			bus[ch][i] = value
		}
	}
	return bus
}

func TestProcessRunsEveryEnabledPluginInOrder(t *testing.T) {
	reg := newActiveRegistry(t, 2)
	p := New(reg, 48000, 256)

	bus := constantBus(64, 0.5)
	out := p.Process(64, bus, nil)
	assert.Nil(t, out)

	// Both plugins ran: the bus should no longer equal the raw input,
	// since the filter's lowpass response attenuates a constant input.
	assert.NotEqual(t, float32(0.5), bus[0][10])
}

func TestDisabledPluginIsSkipped(t *testing.T) {
	reg := newActiveRegistry(t, 1)
	entries := reg.OrderedEntries()
	require.NoError(t, reg.SetEnabled(entries[0].ID, false))

	p := New(reg, 48000, 256)
	bus := constantBus(32, 0.25)
	p.Process(32, bus, nil)

	for i := range bus[0] {
		assert.Equal(t, float32(0.25), bus[0][i])
		assert.Equal(t, float32(0.25), bus[1][i])
	}
}

func TestMonoPluginReceivesAveragedInputAndDrivesBothChannels(t *testing.T) {
	reg := newActiveRegistry(t, 1)
	p := New(reg, 48000, 256)

	bus := audio.NewBuffer(2, 16)
	for i := range bus[0] {
		bus[0][i] = 1.0
		bus[1][i] = -1.0
	}
	p.Process(16, bus, nil)

	// (L+R)/2 == 0 feeds the filter, so both bus channels end up silent
	// (or the filter's own settling artifacts) and, crucially, identical
	// to each other since a mono-out plugin drives both channels alike.
	assert.Equal(t, bus[0], bus[1])
}

func TestCtrlInChannelFiltersEvents(t *testing.T) {
	reg := newActiveRegistry(t, 1)
	entries := reg.OrderedEntries()
	require.NoError(t, reg.SetCtrlInChannel(entries[0].ID, 3))

	p := New(reg, 48000, 256)
	bus := constantBus(8, 0.1)

	// An event on a different channel must not reach the plugin; its
	// cutoff parameter stays at its registered default rather than
	// jumping to the value the filtered-out event would have applied.
	evCh0 := event.EngineEvent{Time: 0, Channel: 0, Kind: event.Control{Subkind: event.Parameter, ParamID: 0, Value: 0.1}}
	p.Process(8, bus, []event.EngineEvent{evCh0})

	e, err := reg.Get(entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, e.Wrapper.ParamValue(0))
}

func TestPeaksAreRecordedPerPlugin(t *testing.T) {
	reg := newActiveRegistry(t, 1)
	entries := reg.OrderedEntries()
	p := New(reg, 48000, 256)

	bus := constantBus(16, 0.9)
	p.Process(16, bus, nil)

	peaks := p.Peaks(entries[0].ID)
	assert.Greater(t, peaks.InLeft, float32(0))
}

func TestNormalizeEventsClipsTimeIntoBlock(t *testing.T) {
	in := []event.EngineEvent{
		{Time: 1000, Channel: 0, Kind: event.Control{Subkind: event.Parameter, ParamID: 0, Value: 0.5}},
	}
	out := normalizeEvents(in, 64)
	require.Len(t, out, 1)
	assert.Equal(t, uint32(63), out[0].Time)
}

func TestNormalizeEventsDropsInvalid(t *testing.T) {
	in := []event.EngineEvent{
		{Time: 0, Channel: 99, Kind: event.Control{Subkind: event.Parameter, ParamID: 0, Value: 0.5}},
	}
	out := normalizeEvents(in, 64)
	assert.Empty(t, out)
}

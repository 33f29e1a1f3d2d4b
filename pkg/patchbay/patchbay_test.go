package patchbay

import (
	"io"
	"testing"

	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/carla-project/carla-engine/pkg/plugin"
	"github.com/carla-project/carla-engine/pkg/port"
	"github.com/carla-project/carla-engine/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *enginelog.Logger { return enginelog.New(io.Discard, "test") }

func ladspaLoader(uniqueID, filename, label string) (plugin.Wrapper, error) {
	return plugin.NewLADSPAFilter(uniqueID, filename, testLogger()), nil
}

func addActivePlugin(t *testing.T, reg *registry.Registry) uint32 {
	t.Helper()
	id, err := reg.Add(ladspaLoader, "u", "f", "l", "Filter")
	require.NoError(t, err)
	e, err := reg.Get(id)
	require.NoError(t, err)
	require.NoError(t, e.Wrapper.Activate(48000, 256))
	return id
}

func monoPortSet(frames int) (*PortSet, []float32, []float32) {
	in := make([]float32, frames)
	out := make([]float32, frames)
	inPort := port.NewAudioPort(port.Audio, port.Input, "in", 0)
	inPort.Bind(in)
	outPort := port.NewAudioPort(port.Audio, port.Output, "out", 0)
	outPort.Bind(out)
	return &PortSet{
		AudioIn:  []*port.AudioPort{inPort},
		AudioOut: []*port.AudioPort{outPort},
		EventIn:  port.NewEventPort(port.Input),
		EventOut: port.NewEventPort(port.Output),
	}, in, out
}

func TestProcessInvokesBoundPlugin(t *testing.T) {
	reg := registry.New(4)
	id := addActivePlugin(t, reg)

	p := New(reg)
	ports, in, out := monoPortSet(32)
	for i := range in {
		in[i] = 0.6
	}
	p.BindPorts(id, ports)

	require.NoError(t, p.Process(32))
	// The filter runs from rest so its first-block output won't simply
	// echo the input unchanged.
	assert.NotEqual(t, in, out)
}

func TestProcessErrorsWithoutBoundPorts(t *testing.T) {
	reg := registry.New(4)
	addActivePlugin(t, reg)

	p := New(reg)
	err := p.Process(32)
	require.Error(t, err)
}

func TestDisabledPluginSkipped(t *testing.T) {
	reg := registry.New(4)
	id := addActivePlugin(t, reg)
	require.NoError(t, reg.SetEnabled(id, false))

	p := New(reg)
	ports, in, out := monoPortSet(16)
	for i := range in {
		in[i] = 0.9
	}
	p.BindPorts(id, ports)

	require.NoError(t, p.Process(16))
	for i := range out {
		assert.Equal(t, float32(0), out[i])
	}
}

func TestUnbindPortsDropsPeaks(t *testing.T) {
	reg := registry.New(4)
	id := addActivePlugin(t, reg)

	p := New(reg)
	ports, in, _ := monoPortSet(8)
	for i := range in {
		in[i] = 0.3
	}
	p.BindPorts(id, ports)
	require.NoError(t, p.Process(8))
	assert.NotZero(t, p.Peaks(id).In)

	p.UnbindPorts(id)
	assert.Zero(t, p.Peaks(id))
}

func TestLatencyTrackerAddsAndSubtracts(t *testing.T) {
	var lt LatencyTracker
	lt.OnCaptureLatency(128)
	lt.OnCaptureLatency(64)
	lt.OnPlaybackLatency(32)
	assert.Equal(t, int64(160), lt.Frames())
}

func TestEventChannelFilteringAppliesDuringProcess(t *testing.T) {
	reg := registry.New(4)
	id := addActivePlugin(t, reg)
	require.NoError(t, reg.SetCtrlInChannel(id, 5))

	p := New(reg)
	ports, _, _ := monoPortSet(16)
	ports.EventIn.Push(event.EngineEvent{
		Time:    0,
		Channel: 2,
		Kind:    event.Control{Subkind: event.Parameter, ParamID: 0, Value: 0.2},
	}, 16)
	p.BindPorts(id, ports)

	require.NoError(t, p.Process(16))

	e, err := reg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, e.Wrapper.ParamValue(0))
}

package engine

import (
	"io"
	"testing"

	"github.com/carla-project/carla-engine/pkg/audio"
	"github.com/carla-project/carla-engine/pkg/carlaerr"
	"github.com/carla-project/carla-engine/pkg/driver"
	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/engineopts"
	"github.com/carla-project/carla-engine/pkg/plugin"
	"github.com/carla-project/carla-engine/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *enginelog.Logger { return enginelog.New(io.Discard, "test") }

func ladspaLoader(uniqueID, filename, label string) (plugin.Wrapper, error) {
	return plugin.NewLADSPAFilter(uniqueID, filename, testLogger()), nil
}

func newTestEngine(t *testing.T) (*Engine, driver.Driver) {
	t.Helper()
	opts := engineopts.Default()
	opts.ProcessMode = engineopts.ContinuousRack
	opts.MaxPluginCount = 4
	e := New(opts, testLogger())
	drv := driver.NewHostedAsPluginDriver(opts.Device.BufferSize, opts.Device.SampleRate)
	require.NoError(t, e.Init(drv))
	return e, drv
}

// Scenario 1 (spec §8): load, play, remove.
func TestLoadPlayRemove(t *testing.T) {
	e, _ := newTestEngine(t)
	defer e.Close()

	id, err := e.AddPlugin(ladspaLoader, "u0", "f0", "l0", "Filter")
	require.NoError(t, err)

	frames := uint32(64)
	in := audio.NewBuffer(2, int(frames))
	out := audio.NewBuffer(2, int(frames))
	for i := range in[0] {
		in[0][i], in[1][i] = 0.5, -0.5
	}

	_, err = e.Process(frames, in, out, nil)
	require.NoError(t, err)
	for ch := range out {
		for _, v := range out[ch] {
			assert.False(t, isNaNOrInf(v), "output must be finite")
		}
	}

	// RemovePlugin waits for the RT side to apply the disable, so keep
	// processing blocks while it waits, as a driver's RT thread would.
	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case <-stop:
				return
			default:
				_, _ = e.Process(frames, in, out, nil)
			}
		}
	}()
	err = e.RemovePlugin(id)
	close(stop)
	<-stopped
	require.NoError(t, err)
	_, err = e.reg.Get(id)
	assert.Error(t, err, "removed plugin must not remain in the registry")
}

// Scenario 4 (spec §8): swap.
func TestSwapPluginsRequiresBothDisabled(t *testing.T) {
	e, _ := newTestEngine(t)
	defer e.Close()

	a, err := e.AddPlugin(ladspaLoader, "u0", "f0", "l0", "A")
	require.NoError(t, err)
	b, err := e.AddPlugin(ladspaLoader, "u1", "f1", "l1", "B")
	require.NoError(t, err)

	err = e.SwapPlugins(a, b)
	assert.Error(t, err, "swap on enabled plugins must fail")
	assert.True(t, carlaerr.Is(err, carlaerr.InvalidState))

	entryA, _ := e.reg.Get(a)
	assert.Equal(t, "A", entryA.Name, "failed swap must not modify the registry")

	require.NoError(t, e.reg.SetEnabled(a, false))
	require.NoError(t, e.reg.SetEnabled(b, false))
	require.NoError(t, e.SwapPlugins(a, b))

	entryA2, _ := e.reg.Get(a)
	assert.Equal(t, "B", entryA2.Name)
}

// Scenario 5 (spec §8): registry density survives a failed add.
func TestRegistryStaysDenseAfterFailedAdd(t *testing.T) {
	e, _ := newTestEngine(t)
	defer e.Close()

	for i := 0; i < int(e.opts.MaxPluginCount); i++ {
		_, err := e.AddPlugin(ladspaLoader, "u", "f", "l", "P")
		require.NoError(t, err)
	}

	_, err := e.AddPlugin(ladspaLoader, "u", "f", "l", "Overflow")
	require.Error(t, err)
	assert.True(t, carlaerr.Is(err, carlaerr.Capacity))
	assert.True(t, e.reg.IDsAreDense())
	assert.False(t, e.reg.HasDuplicateNames())
}

// Scenario 6 (spec §8): quiesce on close.
func TestCloseIsIdempotentAndQuiescesProcessing(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.AddPlugin(ladspaLoader, "u0", "f0", "l0", "Filter")
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close(), "close must be safe to call twice")
	assert.False(t, e.IsRunning())

	frames := uint32(64)
	in := audio.NewBuffer(2, int(frames))
	out := audio.NewBuffer(2, int(frames))
	_, err = e.Process(frames, in, out, nil)
	assert.Error(t, err, "no processing may succeed after close")
}

func TestSetParamRoundTripsExactly(t *testing.T) {
	e, _ := newTestEngine(t)
	defer e.Close()

	id, err := e.AddPlugin(ladspaLoader, "u0", "f0", "l0", "Filter")
	require.NoError(t, err)

	// Parameter 1 (resonance, range [0,1]) holds 0.42 without clamping.
	require.NoError(t, e.SetParam(id, 1, 0.42))

	frames := uint32(64)
	in := audio.NewBuffer(2, int(frames))
	out := audio.NewBuffer(2, int(frames))
	_, err = e.Process(frames, in, out, nil)
	require.NoError(t, err)

	entry, err := e.reg.Get(id)
	require.NoError(t, err)
	assert.InDelta(t, 0.42, entry.Wrapper.ParamValue(1), 1e-9)
}

func TestRemovePluginFailsWithRtDrainTimeoutWhenRtNeverDrains(t *testing.T) {
	opts := engineopts.Default()
	opts.MaxPluginCount = 4
	e := New(opts, testLogger())
	e.reg = registry.New(4)
	e.drainTimeout.Store(minDrainTimeout / 100)

	id, err := e.reg.Add(ladspaLoader, "u0", "f0", "l0", "Filter")
	require.NoError(t, err)
	entry, _ := e.reg.Get(id)
	require.NoError(t, entry.Wrapper.Activate(48000, 256))
	require.NoError(t, e.reg.SetActive(id, true))

	err = e.RemovePlugin(id)
	require.Error(t, err)
	assert.True(t, carlaerr.Is(err, carlaerr.RtDrainTimeout))
}

func TestComputeDrainTimeoutUsesFourBlocksOrFloor(t *testing.T) {
	short := computeDrainTimeout(64, 48000)
	assert.Equal(t, minDrainTimeout, short, "tiny blocks fall back to the 200ms floor")

	long := computeDrainTimeout(1 << 20, 48000)
	assert.Greater(t, long, minDrainTimeout, "huge blocks exceed the floor")
}

func isNaNOrInf(v float32) bool {
	return v != v || v > 3.4e38 || v < -3.4e38
}

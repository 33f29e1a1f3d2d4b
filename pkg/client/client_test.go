package client

import (
	"testing"

	"github.com/carla-project/carla-engine/pkg/carlaerr"
	"github.com/carla-project/carla-engine/pkg/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivateDeactivateAreIdempotentGuarded(t *testing.T) {
	c := New("plugin-1", nil)
	require.NoError(t, c.Activate())
	assert.True(t, c.IsActive())

	err := c.Activate()
	require.Error(t, err)
	assert.True(t, carlaerr.Is(err, carlaerr.InvalidState))

	require.NoError(t, c.Deactivate())
	assert.False(t, c.IsActive())

	err = c.Deactivate()
	require.Error(t, err)
	assert.True(t, carlaerr.Is(err, carlaerr.InvalidState))
}

func TestAddPortIsNoOpWithoutFactory(t *testing.T) {
	c := New("rack-client", nil)
	p, err := c.AddPort(port.Audio, "in", true)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestAddPortDelegatesToFactory(t *testing.T) {
	called := false
	c := New("graph-client", func(kind port.Kind, name string, isInput bool) (interface{}, error) {
		called = true
		assert.Equal(t, "in_1", name)
		return "fake-port", nil
	})
	p, err := c.AddPort(port.Audio, "in_1", true)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "fake-port", p)
}

func TestSetLatencyInvokesCallback(t *testing.T) {
	c := New("plugin-1", nil)
	var got uint32
	c.OnLatencyChange(func(frames uint32) { got = frames })
	c.SetLatency(256)
	assert.Equal(t, uint32(256), got)
	assert.Equal(t, uint32(256), c.Latency())
}

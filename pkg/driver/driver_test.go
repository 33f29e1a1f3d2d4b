package driver

import (
	"testing"

	"github.com/carla-project/carla-engine/pkg/engineopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalGraphSingleClientAddsRealPorts(t *testing.T) {
	d := NewExternalGraphDriver(engineopts.SingleClient, engineopts.ExternalGraphOptions{}, 256, 48000)
	res, err := d.Open(func(uint32) {}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(256), res.BufferSize)
	assert.Equal(t, "carla", res.ClientName)

	c := d.AddClient("plugin-1")
	p, err := c.AddPort(0, "in_l", true)
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = c.AddPort(0, "in_l", true)
	require.Error(t, err)
}

func TestExternalGraphRackModeAddPortIsNoOp(t *testing.T) {
	d := NewExternalGraphDriver(engineopts.ContinuousRack, engineopts.ExternalGraphOptions{}, 256, 48000)
	_, err := d.Open(func(uint32) {}, nil, nil)
	require.NoError(t, err)

	c := d.AddClient("plugin-1")
	p, err := c.AddPort(0, "in_l", true)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestExternalGraphPatchbayConnectRequiresExistingPorts(t *testing.T) {
	d := NewExternalGraphDriver(engineopts.SingleClient, engineopts.ExternalGraphOptions{}, 256, 48000)
	_, err := d.Open(func(uint32) {}, nil, nil)
	require.NoError(t, err)
	c := d.AddClient("plugin-1")
	_, err = c.AddPort(0, "out_l", false)
	require.NoError(t, err)
	_, err = c.AddPort(0, "out_r", false)
	require.NoError(t, err)

	require.NoError(t, d.PatchbayConnect("out_l", "out_r"))
	err = d.PatchbayConnect("out_l", "missing")
	require.Error(t, err)
}

func TestHostedAsPluginForwardsProcessCalls(t *testing.T) {
	d := NewHostedAsPluginDriver(128, 44100)
	var calledWith uint32
	_, err := d.Open(func(frames uint32) { calledWith = frames }, nil, nil)
	require.NoError(t, err)

	d.Process(128)
	assert.Equal(t, uint32(128), calledWith)
}

func TestTransportPlayPauseRelocateOnExternalGraph(t *testing.T) {
	d := NewExternalGraphDriver(engineopts.ContinuousRack, engineopts.ExternalGraphOptions{}, 256, 48000)
	_, err := d.Open(func(uint32) {}, nil, nil)
	require.NoError(t, err)

	d.TransportPlay()
	snap := d.Snapshot(256)
	assert.True(t, snap.Playing)

	d.TransportRelocate(9999)
	snap = d.Snapshot(0)
	assert.Equal(t, uint64(9999), snap.Frame)

	d.TransportPause()
	snap = d.Snapshot(0)
	assert.False(t, snap.Playing)
}

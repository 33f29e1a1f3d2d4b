package driver

import (
	"sync/atomic"

	"github.com/carla-project/carla-engine/pkg/carlaerr"
	"github.com/carla-project/carla-engine/pkg/client"
	"github.com/carla-project/carla-engine/pkg/transport"
)

// Channel is the bridge wire protocol's engine-facing surface (spec
// §6): a shared-memory audio/event page plus a line-oriented control
// channel, concretely implemented by pkg/bridge. The driver depends
// only on this interface so pkg/driver never imports pkg/bridge's
// shared-memory/subprocess machinery directly.
type Channel interface {
	// RequestProcess signals the child to run one block and blocks
	// until it signals completion (spec §6's two-semaphore handshake).
	RequestProcess(frames uint32, snapshot transport.TimeInfo) error
	Close() error
}

// BridgeDriver is the variant that hosts exactly one plugin in a
// sub-process (spec §4.B), communicating over a Channel.
type BridgeDriver struct {
	channel    Channel
	bufferSize uint32
	sampleRate float64
	clock      *transport.Clock
	running    int32 // atomic bool
}

// NewBridgeDriver creates a bridge driver that drives channel for every
// block.
func NewBridgeDriver(channel Channel, bufferSize uint32, sampleRate float64) *BridgeDriver {
	return &BridgeDriver{channel: channel, bufferSize: bufferSize, sampleRate: sampleRate}
}

func (d *BridgeDriver) Type() Type { return TypeBridge }

func (d *BridgeDriver) Open(process ProcessFunc, onBufferSize BufferSizeChangeFunc, onSampleRate SampleRateChangeFunc) (InitResult, error) {
	d.clock = transport.NewClock(d.sampleRate)
	atomic.StoreInt32(&d.running, 1)
	_ = process
	_ = onBufferSize
	_ = onSampleRate
	return InitResult{BufferSize: d.bufferSize, SampleRate: d.sampleRate, ClientName: "carla-bridge"}, nil
}

func (d *BridgeDriver) Close() error {
	atomic.StoreInt32(&d.running, 0)
	return d.channel.Close()
}

func (d *BridgeDriver) Idle() {}

func (d *BridgeDriver) IsRunning() bool { return atomic.LoadInt32(&d.running) != 0 }
func (d *BridgeDriver) IsOffline() bool { return false }

// RunBlock drives the bridged child through one process cycle,
// sampling the driver's own transport since a bridged plugin never
// supplies its own.
func (d *BridgeDriver) RunBlock(frames uint32) error {
	snap := d.clock.Snapshot(frames)
	return d.channel.RequestProcess(frames, snap)
}

// AddClient returns a plain Client with no port factory: a bridge hosts
// exactly one plugin, whose ports come from the channel handshake.
func (d *BridgeDriver) AddClient(name string) *client.Client {
	return client.New(name, nil)
}

func (d *BridgeDriver) PatchbayConnect(portA, portB string) error {
	return carlaerr.New(carlaerr.UnsupportedFormat, "bridge: no patchbay, single plugin only")
}

func (d *BridgeDriver) PatchbayDisconnect(portA, portB string) error {
	return carlaerr.New(carlaerr.UnsupportedFormat, "bridge: no patchbay, single plugin only")
}

func (d *BridgeDriver) PatchbayRefresh() error { return nil }

func (d *BridgeDriver) TransportPlay()                 { d.clock.Play() }
func (d *BridgeDriver) TransportPause()                { d.clock.Pause() }
func (d *BridgeDriver) TransportRelocate(frame uint64) { d.clock.Relocate(frame) }

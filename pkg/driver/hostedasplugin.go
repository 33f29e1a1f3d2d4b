package driver

import (
	"sync"
	"sync/atomic"

	"github.com/carla-project/carla-engine/pkg/carlaerr"
	"github.com/carla-project/carla-engine/pkg/client"
	"github.com/carla-project/carla-engine/pkg/transport"
)

// HostedAsPluginDriver is the variant where the engine is itself a
// plugin inside a bigger host (spec §4.B): process is driven from
// outside, so Open just records the callback for the embedder to call
// through Process, rather than owning any callback source itself.
type HostedAsPluginDriver struct {
	bufferSize uint32
	sampleRate float64

	process ProcessFunc
	clock   *transport.Clock
	running int32 // atomic bool

	mu      sync.Mutex
	clients []*client.Client
}

// NewHostedAsPluginDriver creates a driver for running inside a bigger
// host at the given fixed block size / sample rate (the host dictates
// both; this driver never changes them itself).
func NewHostedAsPluginDriver(bufferSize uint32, sampleRate float64) *HostedAsPluginDriver {
	return &HostedAsPluginDriver{bufferSize: bufferSize, sampleRate: sampleRate}
}

func (d *HostedAsPluginDriver) Type() Type { return TypeHostedAsPlugin }

func (d *HostedAsPluginDriver) Open(process ProcessFunc, onBufferSize BufferSizeChangeFunc, onSampleRate SampleRateChangeFunc) (InitResult, error) {
	d.process = process
	d.clock = transport.NewClock(d.sampleRate)
	atomic.StoreInt32(&d.running, 1)
	_ = onBufferSize
	_ = onSampleRate
	return InitResult{BufferSize: d.bufferSize, SampleRate: d.sampleRate, ClientName: "carla-hosted"}, nil
}

func (d *HostedAsPluginDriver) Close() error {
	atomic.StoreInt32(&d.running, 0)
	return nil
}

func (d *HostedAsPluginDriver) Idle() {}

func (d *HostedAsPluginDriver) IsRunning() bool { return atomic.LoadInt32(&d.running) != 0 }
func (d *HostedAsPluginDriver) IsOffline() bool { return false }

// Process is called by the embedding host's own process callback; it
// forwards directly into the engine's process function registered at
// Open.
func (d *HostedAsPluginDriver) Process(frames uint32) {
	if d.process != nil {
		d.process(frames)
	}
}

// Resize notifies the driver of a host-initiated buffer-size change;
// the embedder calls this from its own resize callback since the host
// controls timing here, not this driver.
func (d *HostedAsPluginDriver) Resize(bufferSize uint32) { d.bufferSize = bufferSize }

func (d *HostedAsPluginDriver) AddClient(name string) *client.Client {
	c := client.New(name, nil)
	d.mu.Lock()
	d.clients = append(d.clients, c)
	d.mu.Unlock()
	return c
}

func (d *HostedAsPluginDriver) PatchbayConnect(portA, portB string) error {
	return carlaerr.New(carlaerr.UnsupportedFormat, "hosted-as-plugin: no patchbay, host owns routing")
}

func (d *HostedAsPluginDriver) PatchbayDisconnect(portA, portB string) error {
	return carlaerr.New(carlaerr.UnsupportedFormat, "hosted-as-plugin: no patchbay, host owns routing")
}

func (d *HostedAsPluginDriver) PatchbayRefresh() error { return nil }

// TransportPlay/Pause/Relocate always drive this driver's internal
// clock, which Snapshot samples; the embedding host's own transport is
// not consulted.
func (d *HostedAsPluginDriver) TransportPlay()                 { d.clock.Play() }
func (d *HostedAsPluginDriver) TransportPause()                { d.clock.Pause() }
func (d *HostedAsPluginDriver) TransportRelocate(frame uint64) { d.clock.Relocate(frame) }

func (d *HostedAsPluginDriver) Snapshot(frames uint32) transport.TimeInfo {
	return d.clock.Snapshot(frames)
}

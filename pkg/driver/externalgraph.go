package driver

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/carla-project/carla-engine/pkg/carlaerr"
	"github.com/carla-project/carla-engine/pkg/client"
	"github.com/carla-project/carla-engine/pkg/engineopts"
	"github.com/carla-project/carla-engine/pkg/port"
	"github.com/carla-project/carla-engine/pkg/transport"
)

// GraphPort is the JACK-style graph's own port handle, returned by a
// real add_port call in single/multiple-client mode (spec §4.B/§4.C).
type GraphPort struct {
	Name    string
	IsInput bool
}

// ExternalGraphDriver is the JACK-style driver variant (spec §4.B): a
// graph of named ports the host can patch freely, with three process
// sub-modes (single client, multiple clients, continuous rack).
type ExternalGraphDriver struct {
	opts       engineopts.ExternalGraphOptions
	processMode engineopts.ProcessMode
	bufferSize uint32
	sampleRate float64

	running int32 // atomic bool
	clock   *transport.Clock

	mu        sync.Mutex
	ports     map[string]*GraphPort
	patches   map[string]string // portA -> portB, symmetric entries both ways
	clients   []*client.Client
	nameSeq   int
}

// NewExternalGraphDriver creates an external-graph driver in the given
// process sub-mode (SingleClient, MultipleClients, or ContinuousRack;
// spec §4.B).
func NewExternalGraphDriver(mode engineopts.ProcessMode, opts engineopts.ExternalGraphOptions, bufferSize uint32, sampleRate float64) *ExternalGraphDriver {
	return &ExternalGraphDriver{
		opts:        opts,
		processMode: mode,
		bufferSize:  bufferSize,
		sampleRate:  sampleRate,
		ports:       make(map[string]*GraphPort),
		patches:     make(map[string]string),
	}
}

func (d *ExternalGraphDriver) Type() Type { return TypeExternalGraph }

func (d *ExternalGraphDriver) Open(process ProcessFunc, onBufferSize BufferSizeChangeFunc, onSampleRate SampleRateChangeFunc) (InitResult, error) {
	d.clock = transport.NewClock(d.sampleRate)
	atomic.StoreInt32(&d.running, 1)
	// A real JACK client would register a process callback here; this
	// driver's embedding host calls Process directly once Open returns,
	// matching how cmd/carla-host pumps blocks in-process.
	_ = process
	_ = onBufferSize
	_ = onSampleRate
	return InitResult{BufferSize: d.bufferSize, SampleRate: d.sampleRate, ClientName: d.chosenClientName()}, nil
}

func (d *ExternalGraphDriver) chosenClientName() string {
	switch d.processMode {
	case engineopts.SingleClient:
		return "carla"
	case engineopts.ContinuousRack:
		return "carla-rack"
	default:
		return "carla-multi"
	}
}

func (d *ExternalGraphDriver) Close() error {
	atomic.StoreInt32(&d.running, 0)
	return nil
}

func (d *ExternalGraphDriver) Idle() {}

func (d *ExternalGraphDriver) IsRunning() bool { return atomic.LoadInt32(&d.running) != 0 }
func (d *ExternalGraphDriver) IsOffline() bool { return false }

// AddClient issues a Client whose AddPort either creates a real graph
// port (single/multiple-client mode) or no-ops (continuous rack, spec
// §4.C).
func (d *ExternalGraphDriver) AddClient(name string) *client.Client {
	d.mu.Lock()
	d.nameSeq++
	uniqueName := name
	if d.processMode == engineopts.MultipleClients {
		uniqueName = fmt.Sprintf("%s_%d", name, d.nameSeq)
	}
	d.mu.Unlock()

	var factory PortFactory
	if d.processMode != engineopts.ContinuousRack {
		factory = d.makePort
	}
	c := client.New(uniqueName, factory)
	d.mu.Lock()
	d.clients = append(d.clients, c)
	d.mu.Unlock()
	return c
}

func (d *ExternalGraphDriver) makePort(kind port.Kind, name string, isInput bool) (interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := name
	if _, exists := d.ports[key]; exists {
		return nil, carlaerr.New(carlaerr.InvalidArgument, fmt.Sprintf("driver: port %q already exists", name))
	}
	p := &GraphPort{Name: key, IsInput: isInput}
	d.ports[key] = p
	return p, nil
}

func (d *ExternalGraphDriver) PatchbayConnect(portA, portB string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.ports[portA]; !ok {
		return carlaerr.New(carlaerr.InvalidArgument, fmt.Sprintf("driver: no such port %q", portA))
	}
	if _, ok := d.ports[portB]; !ok {
		return carlaerr.New(carlaerr.InvalidArgument, fmt.Sprintf("driver: no such port %q", portB))
	}
	d.patches[portA] = portB
	d.patches[portB] = portA
	return nil
}

func (d *ExternalGraphDriver) PatchbayDisconnect(portA, portB string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.patches, portA)
	delete(d.patches, portB)
	return nil
}

func (d *ExternalGraphDriver) PatchbayRefresh() error { return nil }

func (d *ExternalGraphDriver) TransportPlay()                  { d.clock.Play() }
func (d *ExternalGraphDriver) TransportPause()                 { d.clock.Pause() }
func (d *ExternalGraphDriver) TransportRelocate(frame uint64)  { d.clock.Relocate(frame) }

// Snapshot exposes the driver's internal transport clock to the engine's
// per-block sampling step (spec §4.I) when transport_mode is ExternalGraph.
func (d *ExternalGraphDriver) Snapshot(frames uint32) transport.TimeInfo {
	return d.clock.Snapshot(frames)
}

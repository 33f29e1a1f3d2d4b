// Package driver implements the Engine Driver Abstraction (spec §4.B):
// one polymorphic capability set realised by four variants - external
// graph (JACK-style), device (host owns the audio callback),
// hosted-as-plugin (driven from outside), and bridge (one plugin in a
// sub-process). The engine only ever holds a Driver interface value; it
// never branches on which concrete variant is active except to read
// its Type().
package driver

import (
	"github.com/carla-project/carla-engine/pkg/client"
)

// Type identifies which driver variant is active (spec §4.B).
type Type int

const (
	TypeExternalGraph Type = iota
	TypeDevice
	TypeHostedAsPlugin
	TypeBridge
)

func (t Type) String() string {
	switch t {
	case TypeExternalGraph:
		return "external-graph"
	case TypeDevice:
		return "device"
	case TypeHostedAsPlugin:
		return "hosted-as-plugin"
	case TypeBridge:
		return "bridge"
	default:
		return "unknown"
	}
}

// InitResult reports what a driver settled on after Open (spec §4.B:
// "Initialisation returns the block size, sample rate, and chosen
// client name").
type InitResult struct {
	BufferSize uint32
	SampleRate float64
	ClientName string
}

// ProcessFunc is the engine's per-block callback, supplied to Open so
// the driver can invoke it from whatever thread actually pumps audio
// (its own callback for Device, an externally-driven call for
// HostedAsPlugin and Bridge).
type ProcessFunc func(frames uint32)

// BufferSizeChangeFunc and SampleRateChangeFunc notify the engine of a
// driver-initiated reconfiguration (spec §4.B: "re-initialises every
// plugin's buffers; plugins that cannot handle sample-rate change are
// re-instantiated").
type BufferSizeChangeFunc func(newSize uint32)
type SampleRateChangeFunc func(newRate float64)

// Driver is the capability set every variant implements (spec §4.B).
type Driver interface {
	Type() Type

	// Open starts the driver, wiring process into its callback source,
	// and returns the settled block size/sample rate/client name.
	Open(process ProcessFunc, onBufferSize BufferSizeChangeFunc, onSampleRate SampleRateChangeFunc) (InitResult, error)
	Close() error

	// Idle is called periodically from the auxiliary idle thread (spec
	// §5) to let the driver service non-RT housekeeping (e.g. polling a
	// bridge's control channel).
	Idle()

	IsRunning() bool
	IsOffline() bool

	// AddClient issues an Engine Client bound to a plugin (spec §4.C).
	AddClient(name string) *client.Client

	PatchbayConnect(portA, portB string) error
	PatchbayDisconnect(portA, portB string) error
	PatchbayRefresh() error

	TransportPlay()
	TransportPause()
	TransportRelocate(frame uint64)
}

// PortFactory is supplied by a concrete variant to back Client.AddPort;
// rack-mode variants pass nil so add_port is the documented no-op
// (spec §4.C).
type PortFactory = client.PortFactory

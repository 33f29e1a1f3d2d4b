// Package client implements the Engine Client (spec §4.C): the handle a
// driver issues to a plugin for port creation and activation lifecycle.
// Its port-add behaviour is driver-mode-dependent (a real graph port in
// an external-graph client, a no-op in rack mode where ports are fixed),
// so Client holds a PortFactory supplied by whichever driver owns it.
package client

import (
	"sync/atomic"

	"github.com/carla-project/carla-engine/pkg/carlaerr"
	"github.com/carla-project/carla-engine/pkg/port"
)

// PortFactory creates a driver-backed port, or returns (nil, nil) when
// the driver mode treats add_port as a no-op (rack mode, spec §4.C).
type PortFactory func(kind port.Kind, name string, isInput bool) (interface{}, error)

// Client is the handle a driver issues to a plugin (spec §4.C).
type Client struct {
	name        string
	portFactory PortFactory

	active  int32 // atomic bool
	latency uint32
	onLatencyChange func(uint32)
}

// New creates a Client bound to name, using factory to realise add_port
// calls. factory may be nil, in which case add_port always no-ops.
func New(name string, factory PortFactory) *Client {
	return &Client{name: name, portFactory: factory}
}

// Name returns the client's driver-facing identity.
func (c *Client) Name() string { return c.name }

// AddPort creates a port through the client's factory. In rack mode
// (factory nil) this is a documented no-op returning (nil, nil) rather
// than an error, since rack clients have fixed ports (spec §4.C).
func (c *Client) AddPort(kind port.Kind, name string, isInput bool) (interface{}, error) {
	if c.portFactory == nil {
		return nil, nil
	}
	return c.portFactory(kind, name, isInput)
}

// IsActive reports the client's current activation state.
func (c *Client) IsActive() bool { return atomic.LoadInt32(&c.active) != 0 }

// Activate transitions the client to active. Requires !is_active;
// violating this is reported as InvalidState without side effects
// (spec §4.C).
func (c *Client) Activate() error {
	if !atomic.CompareAndSwapInt32(&c.active, 0, 1) {
		return carlaerr.New(carlaerr.InvalidState, "client: already active")
	}
	return nil
}

// Deactivate transitions the client to inactive. Requires is_active;
// violating this is reported as InvalidState without side effects.
func (c *Client) Deactivate() error {
	if !atomic.CompareAndSwapInt32(&c.active, 1, 0) {
		return carlaerr.New(carlaerr.InvalidState, "client: not active")
	}
	return nil
}

// OnLatencyChange registers a callback invoked by SetLatency, used by a
// single-client external-graph driver to request host graph recompute
// (spec §4.C). Only one callback is kept; a later registration replaces
// the former.
func (c *Client) OnLatencyChange(fn func(uint32)) { c.onLatencyChange = fn }

// SetLatency records the client's reported latency in frames and, if a
// callback is registered, requests the host graph recompute it.
func (c *Client) SetLatency(frames uint32) {
	atomic.StoreUint32(&c.latency, frames)
	if c.onLatencyChange != nil {
		c.onLatencyChange(frames)
	}
}

// Latency returns the last value recorded by SetLatency.
func (c *Client) Latency() uint32 { return atomic.LoadUint32(&c.latency) }

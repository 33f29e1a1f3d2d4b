package driver

import (
	"sync"
	"sync/atomic"

	"github.com/carla-project/carla-engine/pkg/carlaerr"
	"github.com/carla-project/carla-engine/pkg/client"
	"github.com/carla-project/carla-engine/pkg/engineopts"
	"github.com/carla-project/carla-engine/pkg/transport"
	"github.com/gordonklaus/portaudio"
)

// DeviceDriver is the host-owned audio device variant (spec §4.B): the
// engine pumps its own callback via PortAudio rather than registering
// with a separate graph server, and always runs in rack or patchbay
// mode - add_port is always a no-op here since neither mode exposes
// per-plugin graph ports to an external patcher.
type DeviceDriver struct {
	opts   engineopts.DeviceOptions
	clock  *transport.Clock
	stream *portaudio.Stream

	running int32 // atomic bool

	mu      sync.Mutex
	clients []*client.Client

	// in/out are the interleaved-stereo buffers the PortAudio callback
	// copies through each cycle; AudioBuffers exposes them so the engine's
	// rack processor can bind to real hardware I/O instead of silence.
	in, out []float32
}

// NewDeviceDriver creates a device driver bound to opts.
func NewDeviceDriver(opts engineopts.DeviceOptions) *DeviceDriver {
	return &DeviceDriver{opts: opts}
}

func (d *DeviceDriver) Type() Type { return TypeDevice }

// Open initialises PortAudio and starts a full-duplex stream whose
// callback invokes process for every block (spec §4.B: "pumps its own
// callback").
func (d *DeviceDriver) Open(process ProcessFunc, onBufferSize BufferSizeChangeFunc, onSampleRate SampleRateChangeFunc) (InitResult, error) {
	if err := portaudio.Initialize(); err != nil {
		return InitResult{}, carlaerr.Wrap(carlaerr.Driver, "device: portaudio init failed", err)
	}

	d.clock = transport.NewClock(d.opts.SampleRate)

	in := make([]float32, d.opts.BufferSize*2)
	out := make([]float32, d.opts.BufferSize*2)
	d.in, d.out = in, out
	callback := func(inBuf, outBuf []float32) {
		copy(in, inBuf)
		process(uint32(len(outBuf) / 2))
		copy(outBuf, out)
	}

	stream, err := portaudio.OpenDefaultStream(2, 2, d.opts.SampleRate, int(d.opts.BufferSize), callback)
	if err != nil {
		portaudio.Terminate()
		return InitResult{}, carlaerr.Wrap(carlaerr.Driver, "device: open stream failed", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return InitResult{}, carlaerr.Wrap(carlaerr.Driver, "device: start stream failed", err)
	}

	d.stream = stream
	atomic.StoreInt32(&d.running, 1)
	_ = onBufferSize
	_ = onSampleRate

	return InitResult{
		BufferSize: d.opts.BufferSize,
		SampleRate: d.opts.SampleRate,
		ClientName: "carla-device",
	}, nil
}

func (d *DeviceDriver) Close() error {
	atomic.StoreInt32(&d.running, 0)
	if d.stream != nil {
		if err := d.stream.Stop(); err != nil {
			return carlaerr.Wrap(carlaerr.Driver, "device: stop stream failed", err)
		}
		if err := d.stream.Close(); err != nil {
			return carlaerr.Wrap(carlaerr.Driver, "device: close stream failed", err)
		}
	}
	return portaudio.Terminate()
}

func (d *DeviceDriver) Idle() {}

func (d *DeviceDriver) IsRunning() bool { return atomic.LoadInt32(&d.running) != 0 }
func (d *DeviceDriver) IsOffline() bool { return false }

// AddClient issues a Client whose AddPort always no-ops: rack and
// patchbay mode both give every plugin fixed, pre-allocated ports
// (spec §4.C).
func (d *DeviceDriver) AddClient(name string) *client.Client {
	c := client.New(name, nil)
	d.mu.Lock()
	d.clients = append(d.clients, c)
	d.mu.Unlock()
	return c
}

func (d *DeviceDriver) PatchbayConnect(portA, portB string) error {
	return carlaerr.New(carlaerr.UnsupportedFormat, "device: patchbay connect requires patchbay mode")
}

func (d *DeviceDriver) PatchbayDisconnect(portA, portB string) error {
	return carlaerr.New(carlaerr.UnsupportedFormat, "device: patchbay disconnect requires patchbay mode")
}

func (d *DeviceDriver) PatchbayRefresh() error { return nil }

func (d *DeviceDriver) TransportPlay()                 { d.clock.Play() }
func (d *DeviceDriver) TransportPause()                { d.clock.Pause() }
func (d *DeviceDriver) TransportRelocate(frame uint64)  { d.clock.Relocate(frame) }

func (d *DeviceDriver) Snapshot(frames uint32) transport.TimeInfo {
	return d.clock.Snapshot(frames)
}

// AudioBuffers returns the interleaved-stereo input/output buffers bound
// for the block currently in progress (spec §4.B: the device driver owns
// real hardware I/O). Valid only while called from inside the process
// callback Open registered; len(in) == len(out) == frames*2.
func (d *DeviceDriver) AudioBuffers() (in, out []float32) {
	return d.in, d.out
}

// Package engineopts defines the engine configuration surface (spec §6).
//
// Options are a plain struct so they round-trip through YAML
// (gopkg.in/yaml.v3) for file-based configuration; cmd/carla-host takes
// the config file path from a CLI flag (github.com/spf13/pflag), and no
// Options field has a flag of its own.
// Options are read once at Engine.Init and are immutable afterwards - the
// RT thread never touches them directly, it only ever sees values already
// baked into the driver/processor it was handed.
package engineopts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProcessMode selects the processing topology (spec §4.B, §6).
type ProcessMode int

const (
	SingleClient ProcessMode = iota
	MultipleClients
	ContinuousRack
	Patchbay
	Bridge
)

func (m ProcessMode) String() string {
	switch m {
	case SingleClient:
		return "single-client"
	case MultipleClients:
		return "multiple-clients"
	case ContinuousRack:
		return "continuous-rack"
	case Patchbay:
		return "patchbay"
	case Bridge:
		return "bridge"
	default:
		return "unknown"
	}
}

// TransportMode selects where transport state is sourced from (spec §4.I).
type TransportMode int

const (
	Internal TransportMode = iota
	ExternalGraph
)

// ExternalGraphOptions configures the JACK-style driver.
type ExternalGraphOptions struct {
	AutoConnect bool `yaml:"auto_connect"`
	TimeMaster  bool `yaml:"time_master"`
}

// DeviceOptions configures the host-owned audio device driver.
type DeviceOptions struct {
	BufferSize uint32 `yaml:"buffer_size"`
	SampleRate float64 `yaml:"sample_rate"`
	Device     string `yaml:"device"`
}

// Options is the full set of engine-level configuration (spec §6).
type Options struct {
	ProcessMode      ProcessMode   `yaml:"process_mode"`
	TransportMode    TransportMode `yaml:"transport_mode"`
	ForceStereo      bool          `yaml:"force_stereo"`
	PreferPluginBridges bool       `yaml:"prefer_plugin_bridges"`
	PreferUIBridges  bool          `yaml:"prefer_ui_bridges"`
	UIsAlwaysOnTop   bool          `yaml:"uis_always_on_top"`
	MaxParameters    uint32        `yaml:"max_parameters"`
	OSCUITimeoutMs   uint32        `yaml:"osc_ui_timeout_ms"`

	ExternalGraph ExternalGraphOptions `yaml:"external_graph"`
	Device        DeviceOptions        `yaml:"device"`

	ResourceDir      string            `yaml:"resource_dir"`
	BridgeBinaryPath map[string]string `yaml:"bridge_binary_path"` // arch -> path

	// MaxPluginCount bounds the registry (spec §3, Capacity errors).
	MaxPluginCount uint32 `yaml:"max_plugin_count"`

	// SentryDSN, if non-empty, routes Error-action callbacks to Sentry (ambient stack).
	SentryDSN string `yaml:"sentry_dsn"`
}

// Default returns the engine's baseline configuration.
func Default() Options {
	return Options{
		ProcessMode:    ContinuousRack,
		TransportMode:  Internal,
		MaxParameters:  512,
		OSCUITimeoutMs: 4000,
		MaxPluginCount: 256,
		Device: DeviceOptions{
			BufferSize: 256,
			SampleRate: 48000,
		},
	}
}

// Load reads YAML options from path, overlaying them onto Default().
func Load(path string) (Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("engineopts: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("engineopts: parse %s: %w", path, err)
	}
	return opts, nil
}

// Validate checks internal consistency beyond what YAML unmarshalling can enforce.
func (o Options) Validate() error {
	if o.MaxPluginCount == 0 {
		return fmt.Errorf("engineopts: max_plugin_count must be positive")
	}
	if o.Device.BufferSize == 0 {
		return fmt.Errorf("engineopts: device.buffer_size must be positive")
	}
	if o.Device.SampleRate <= 0 {
		return fmt.Errorf("engineopts: device.sample_rate must be positive")
	}
	return nil
}

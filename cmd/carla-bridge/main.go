// Command carla-bridge is the sub-process entry point a BridgeDriver
// spawns (spec §4.B, §6): it reads the parent's Handshake from stdin,
// attaches to the shared-memory audio/event pages, instantiates the
// single plugin the handshake names, and runs the two-semaphore block
// loop until the parent tears the channel down.
package main

import (
	"fmt"
	"os"

	"github.com/carla-project/carla-engine/pkg/bridge"
	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/plugin"
)

func main() {
	log := enginelog.New(os.Stderr, "carla-bridge")

	session, err := bridge.Attach(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carla-bridge: attach failed: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	h := session.Handshake()
	w, err := loaderForLabel(h.PluginLabel, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carla-bridge: %v\n", err)
		os.Exit(1)
	}
	if err := w.Activate(h.SampleRate, h.BufferSize); err != nil {
		fmt.Fprintf(os.Stderr, "carla-bridge: activate failed: %v\n", err)
		os.Exit(1)
	}
	defer w.Deactivate()

	log.Infof("bridged plugin %q armed at %d frames / %.0f Hz", h.PluginLabel, h.BufferSize, h.SampleRate)
	if err := session.Run(w); err != nil {
		fmt.Fprintf(os.Stderr, "carla-bridge: session ended: %v\n", err)
		os.Exit(1)
	}
}

func loaderForLabel(label string, log *enginelog.Logger) (plugin.Wrapper, error) {
	switch label {
	case "lowpass":
		return plugin.NewLADSPAFilter(label, "builtin", log), nil
	case "delay":
		return plugin.NewLV2Delay(label, "builtin", log), nil
	case "distortion":
		return plugin.NewVSTDistortion(label, "builtin", log), nil
	case "synth":
		return plugin.NewDSSISynth(label, "builtin", log), nil
	case "soundfont":
		return plugin.NewSoundFontSynth(label, "builtin", log), nil
	default:
		return plugin.NewLADSPAFilter(label, "builtin", log), nil
	}
}

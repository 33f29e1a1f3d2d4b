// Command carla-discovery-demo implements the discovery sub-process
// line protocol (spec §6) for the module's in-process demo plugin
// formats, so pkg/discovery and cmd/carla-host have something real to
// discover end-to-end without needing an actual LADSPA/LV2/VST/DSSI/
// SoundFont library on disk.
//
// Usage: carla-discovery-demo <path> <format>
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/plugin"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: carla-discovery-demo <path> <format>")
		os.Exit(1)
	}
	path, format := os.Args[1], os.Args[2]

	log := enginelog.New(io.Discard, "discovery-demo")
	w, err := wrapperForFormat(format, path, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carla-discovery-demo: %v\n", err)
		os.Exit(1)
	}

	emit(w)
}

func wrapperForFormat(format, path string, log *enginelog.Logger) (plugin.Wrapper, error) {
	switch format {
	case "LADSPA":
		return plugin.NewLADSPAFilter(path, path, log), nil
	case "LV2":
		return plugin.NewLV2Delay(path, path, log), nil
	case "VST":
		return plugin.NewVSTDistortion(path, path, log), nil
	case "DSSI":
		return plugin.NewDSSISynth(path, path, log), nil
	case "SoundFont":
		return plugin.NewSoundFontSynth(path, path, log), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// emit prints one plugin's metadata as carla-discovery::key::value
// lines, matching the protocol pkg/discovery parses.
func emit(w plugin.Wrapper) {
	info := w.Info()
	fmt.Printf("carla-discovery::init::start\n")
	fmt.Printf("carla-discovery::label::%s\n", info.Label)
	fmt.Printf("carla-discovery::name::%s\n", info.Name)
	fmt.Printf("carla-discovery::maker::%s\n", "carla-discovery-demo")
	fmt.Printf("carla-discovery::uniqueId::%s\n", info.UniqueID)
	fmt.Printf("carla-discovery::hints::%d\n", info.Hints)
	fmt.Printf("carla-discovery::audio.ins::%d\n", w.AudioInCount())
	fmt.Printf("carla-discovery::audio.outs::%d\n", w.AudioOutCount())
	fmt.Printf("carla-discovery::midi.ins::%d\n", w.MidiInCount())
	fmt.Printf("carla-discovery::midi.outs::%d\n", w.MidiOutCount())
	fmt.Printf("carla-discovery::parameters.ins::%d\n", w.ParameterCount())
	fmt.Printf("carla-discovery::programCount::%d\n", w.ProgramCount())
}

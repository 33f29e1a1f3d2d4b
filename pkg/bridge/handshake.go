package bridge

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carla-project/carla-engine/pkg/carlaerr"
)

// Handshake is the key/value exchange the bridge parent writes to the
// child's stdin before any audio flows, mirroring the OSC-style
// send/recv URL pair the original engine's CarlaBridgeOsc establishes
// at bridge startup. Here the "OSC URLs" are repurposed as plain
// shared-memory paths and semaphore keys, since the wire protocol this
// module implements is the shm/semaphore one spec §6 specifies, not
// OSC itself - only the handshake's shape (a control-channel exchange
// that arms the data channel) is carried over.
type Handshake struct {
	AudioShmPath string
	EventShmPath string
	SemaphoreKey int
	BufferSize   uint32
	SampleRate   float64
	PluginLabel  string
}

// Encode writes the handshake as carla-bridge::key::value lines,
// matching the discovery sub-process's own line protocol convention
// (spec §6) so both of the engine's sub-process consumers share one
// parsing idiom.
func (h Handshake) Encode(w io.Writer) error {
	lines := []string{
		kv("audio_shm_path", h.AudioShmPath),
		kv("event_shm_path", h.EventShmPath),
		kv("semaphore_key", strconv.Itoa(h.SemaphoreKey)),
		kv("buffer_size", strconv.FormatUint(uint64(h.BufferSize), 10)),
		kv("sample_rate", strconv.FormatFloat(h.SampleRate, 'f', -1, 64)),
		kv("plugin_label", h.PluginLabel),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return carlaerr.Wrap(carlaerr.Driver, "bridge: write handshake", err)
		}
	}
	return nil
}

func kv(key, value string) string {
	return "carla-bridge::" + key + "::" + value
}

// DecodeHandshake reads the carla-bridge::key::value lines Encode
// wrote, stopping at the first blank line or EOF.
func DecodeHandshake(r io.Reader) (Handshake, error) {
	var h Handshake
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		parts := strings.SplitN(line, "::", 3)
		if len(parts) != 3 || parts[0] != "carla-bridge" {
			continue
		}
		key, value := parts[1], parts[2]
		switch key {
		case "audio_shm_path":
			h.AudioShmPath = value
		case "event_shm_path":
			h.EventShmPath = value
		case "semaphore_key":
			n, err := strconv.Atoi(value)
			if err != nil {
				return h, carlaerr.Wrap(carlaerr.InvalidArgument, "bridge: bad semaphore_key", err)
			}
			h.SemaphoreKey = n
		case "buffer_size":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return h, carlaerr.Wrap(carlaerr.InvalidArgument, "bridge: bad buffer_size", err)
			}
			h.BufferSize = uint32(n)
		case "sample_rate":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return h, carlaerr.Wrap(carlaerr.InvalidArgument, "bridge: bad sample_rate", err)
			}
			h.SampleRate = f
		case "plugin_label":
			h.PluginLabel = value
		}
	}
	if err := scanner.Err(); err != nil {
		return h, carlaerr.Wrap(carlaerr.Driver, "bridge: read handshake", err)
	}
	if h.AudioShmPath == "" || h.EventShmPath == "" {
		return h, carlaerr.New(carlaerr.InvalidArgument, "bridge: incomplete handshake")
	}
	return h, nil
}

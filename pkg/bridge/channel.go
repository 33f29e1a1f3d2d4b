package bridge

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/carla-project/carla-engine/internal/shm"
	"github.com/carla-project/carla-engine/pkg/carlaerr"
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/carla-project/carla-engine/pkg/transport"
)

// audioPageSize returns the byte size an AudioPage needs for maxFrames.
func audioPageSize(maxFrames uint32) int {
	return audioHeaderSize + 2*2*int(maxFrames)*4
}

func eventPageSize() int {
	return 4 + eventPageMax*eventRecordSize
}

// ParentChannel is the engine-side implementation of driver.Channel: it
// spawns the bridge binary, hands it a Handshake over stdin, and drives
// one block at a time through the shared-memory audio/event pages and
// the two-semaphore handoff (spec §6).
type ParentChannel struct {
	cmd        *exec.Cmd
	audioSeg   *shm.Segment
	eventSeg   *shm.Segment
	sems       *shm.SemaphorePair
	audioPage  *AudioPage
	eventPage  *EventPage
	maxFrames  uint32
	sessionDir string
}

// LaunchOptions configures a bridged child process.
type LaunchOptions struct {
	BinaryPath  string
	PluginLabel string
	BufferSize  uint32
	SampleRate  float64
	SessionDir  string // directory for shm-backed files; os.TempDir() if empty
}

// Launch starts the bridge binary at opts.BinaryPath, arms the shared
// memory pages and semaphore pair, and writes the Handshake the child
// reads from its own stdin before attaching.
func Launch(opts LaunchOptions) (*ParentChannel, error) {
	sessionDir := opts.SessionDir
	if sessionDir == "" {
		sessionDir = os.TempDir()
	}
	sessionID := uuid.New()
	audioPath := filepath.Join(sessionDir, fmt.Sprintf("carla-bridge-%s-audio.shm", sessionID))
	eventPath := filepath.Join(sessionDir, fmt.Sprintf("carla-bridge-%s-event.shm", sessionID))
	semKey := int(binary.BigEndian.Uint32(sessionID[:4]) & 0x3fffffff) // SysV semget keys are int, not 128-bit

	audioSeg, err := shm.Create(audioPath, audioPageSize(opts.BufferSize))
	if err != nil {
		return nil, err
	}
	eventSeg, err := shm.Create(eventPath, eventPageSize())
	if err != nil {
		audioSeg.Close()
		return nil, err
	}
	sems, err := shm.CreatePair(semKey)
	if err != nil {
		audioSeg.Close()
		eventSeg.Close()
		return nil, err
	}

	audioPage, err := NewAudioPage(audioSeg.Bytes(), opts.BufferSize)
	if err != nil {
		return nil, err
	}
	eventPage, err := NewEventPage(eventSeg.Bytes())
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(opts.BinaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, carlaerr.Wrap(carlaerr.Driver, "bridge: open child stdin", err)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, carlaerr.Wrap(carlaerr.Driver, "bridge: start child", err)
	}

	h := Handshake{
		AudioShmPath: audioPath,
		EventShmPath: eventPath,
		SemaphoreKey: semKey,
		BufferSize:   opts.BufferSize,
		SampleRate:   opts.SampleRate,
		PluginLabel:  opts.PluginLabel,
	}
	if err := h.Encode(stdin); err != nil {
		return nil, err
	}
	stdin.Close()

	return &ParentChannel{
		cmd:        cmd,
		audioSeg:   audioSeg,
		eventSeg:   eventSeg,
		sems:       sems,
		audioPage:  audioPage,
		eventPage:  eventPage,
		maxFrames:  opts.BufferSize,
		sessionDir: sessionDir,
	}, nil
}

// Output decodes the interleaved-stereo samples the child wrote during
// the last completed block (call after RequestProcess returns).
func (c *ParentChannel) Output(frames uint32) []float32 {
	return c.audioPage.ReadOutput(frames)
}

// RequestProcess stamps the header and input (the caller must have
// filled in via SetInput beforehand), posts the server semaphore, and
// blocks until the child posts completion (spec §6's two-semaphore
// handshake).
func (c *ParentChannel) RequestProcess(frames uint32, snapshot transport.TimeInfo) error {
	c.audioPage.WriteHeader(frames, snapshot.Playing, snapshot.Frame, snapshot.Usecs)
	if err := c.sems.PostServer(); err != nil {
		return err
	}
	return c.sems.WaitClient()
}

// SetInput copies interleaved-stereo input samples into the armed
// block ahead of RequestProcess.
func (c *ParentChannel) SetInput(interleaved []float32) {
	c.audioPage.WriteInput(interleaved)
}

// EventsOut decodes the events the child produced during the last
// completed block.
func (c *ParentChannel) EventsOut() []event.EngineEvent {
	return c.eventPage.ReadEvents()
}

// Close signals the child to exit, waits for it, and releases the
// shared-memory segments and semaphore set (spec's design decision
// that a bridge's resources are torn down as one unit on Close, the
// same way registry.RemoveAll owns per-plugin client release).
func (c *ParentChannel) Close() error {
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	_ = c.cmd.Wait()

	var firstErr error
	for _, err := range []error{c.sems.Close(), c.audioSeg.Close(), c.audioSeg.Unlink(), c.eventSeg.Close(), c.eventSeg.Unlink()} {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

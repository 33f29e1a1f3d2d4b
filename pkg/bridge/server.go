package bridge

import (
	"io"

	"github.com/carla-project/carla-engine/internal/shm"
	"github.com/carla-project/carla-engine/pkg/audio"
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/carla-project/carla-engine/pkg/plugin"
)

// ChildSession is the bridge sub-process side: it reads the Handshake
// its parent wrote to stdin, attaches to the shared-memory pages and
// semaphore pair, and runs a single plugin through the two-semaphore
// block loop until the parent closes the channel (spec §6).
type ChildSession struct {
	handshake Handshake
	audioSeg  *shm.Segment
	eventSeg  *shm.Segment
	sems      *shm.SemaphorePair
	audioPage *AudioPage
	eventPage *EventPage
}

// Attach reads the handshake from r (the child's stdin) and opens the
// shared-memory resources the parent already created.
func Attach(r io.Reader) (*ChildSession, error) {
	h, err := DecodeHandshake(r)
	if err != nil {
		return nil, err
	}

	audioSeg, err := shm.Open(h.AudioShmPath, audioPageSize(h.BufferSize))
	if err != nil {
		return nil, err
	}
	eventSeg, err := shm.Open(h.EventShmPath, eventPageSize())
	if err != nil {
		audioSeg.Close()
		return nil, err
	}
	sems, err := shm.OpenPair(h.SemaphoreKey)
	if err != nil {
		audioSeg.Close()
		eventSeg.Close()
		return nil, err
	}
	audioPage, err := NewAudioPage(audioSeg.Bytes(), h.BufferSize)
	if err != nil {
		return nil, err
	}
	eventPage, err := NewEventPage(eventSeg.Bytes())
	if err != nil {
		return nil, err
	}

	return &ChildSession{
		handshake: h,
		audioSeg:  audioSeg,
		eventSeg:  eventSeg,
		sems:      sems,
		audioPage: audioPage,
		eventPage: eventPage,
	}, nil
}

// Handshake returns the decoded parent handshake, so the caller can
// pick which plugin.Loader to instantiate from PluginLabel.
func (s *ChildSession) Handshake() Handshake { return s.handshake }

// Run drives w through blocks until WaitServer returns an error (the
// parent killed the process, tearing down the semaphore set underneath
// this call - the expected way a bridge session ends).
func (s *ChildSession) Run(w plugin.Wrapper) error {
	bus := audio.NewBuffer(2, int(s.handshake.BufferSize))
	for {
		if err := s.sems.WaitServer(); err != nil {
			return nil
		}

		frames, _, _, _ := s.audioPage.ReadHeader()
		in := s.audioPage.ReadInput(frames)
		deinterleaveInto(in, bus)

		audioIn := [][]float32{bus[0][:frames], bus[1][:frames]}
		audioOut := [][]float32{make([]float32, frames), make([]float32, frames)}
		w.InitBuffers(audioIn, audioOut)

		var outEvents []event.EngineEvent
		w.Process(frames, nil, &outEvents)

		s.audioPage.WriteOutput(interleaveFrom(audioOut, frames))
		s.eventPage.WriteEvents(outEvents)

		if err := s.sems.PostClient(); err != nil {
			return err
		}
	}
}

func deinterleaveInto(src []float32, dst audio.Buffer) {
	for i := 0; i*2+1 < len(src) && i < dst.Frames(); i++ {
		dst[0][i] = src[i*2]
		dst[1][i] = src[i*2+1]
	}
}

func interleaveFrom(channels [][]float32, frames uint32) []float32 {
	out := make([]float32, frames*2)
	for i := uint32(0); i < frames; i++ {
		out[i*2] = channels[0][i]
		out[i*2+1] = channels[1][i]
	}
	return out
}

// Close releases this side's mapping of the shared resources. The
// child never unlinks them; only the parent (Close on ParentChannel)
// does, once it knows the child has exited.
func (s *ChildSession) Close() error {
	var firstErr error
	for _, err := range []error{s.audioSeg.Close(), s.eventSeg.Close()} {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

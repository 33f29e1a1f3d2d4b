package plugin

import (
	"encoding/binary"
	"fmt"

	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/carla-project/carla-engine/pkg/param"
	"github.com/carla-project/carla-engine/pkg/process"
)

const (
	lv2ParamTime     = iota // delay time, seconds
	lv2ParamFeedback        // [0,1]
	lv2ParamMix             // dry/wet
)

const lv2MaxDelaySeconds = 4.0

// LV2Delay is a demonstration LV2-format wrapper: a stereo feedback
// delay. LV2 is the one format in the spec's list with a standard
// save/restore state extension, so this variant is also where Chunk/
// SetChunk are exercised (persisting the delay buffer's write head).
type LV2Delay struct {
	*Base

	sampleRate float64
	bufL, bufR []float32
	writeHead  int

	in, out [][]float32
}

// NewLV2Delay creates an LV2 delay wrapper identified by uniqueID.
func NewLV2Delay(uniqueID, filename string, logger *enginelog.Logger) *LV2Delay {
	info := Info{
		Format:   FormatLV2,
		Category: CategoryDelay,
		Hints:    HintIsRTSafe,
		Name:     "Stereo Feedback Delay",
		Filename: filename,
		Label:    "stereo_delay",
		UniqueID: uniqueID,
	}
	w := &LV2Delay{Base: NewBase(info, logger)}
	_ = w.Params.RegisterAll(
		param.ADSR(lv2ParamTime, "Time", lv2MaxDelaySeconds),
		param.Percentage(lv2ParamFeedback, "Feedback", 35),
		param.Percentage(lv2ParamMix, "Mix", 30),
	)
	return w
}

func (w *LV2Delay) AudioInCount() int  { return 2 }
func (w *LV2Delay) AudioOutCount() int { return 2 }
func (w *LV2Delay) MidiInCount() int   { return 0 }
func (w *LV2Delay) MidiOutCount() int  { return 0 }

func (w *LV2Delay) Activate(sampleRate float64, maxFrames uint32) error {
	if err := w.Base.Activate(sampleRate, maxFrames); err != nil {
		return err
	}
	w.sampleRate = sampleRate
	size := int(sampleRate * lv2MaxDelaySeconds)
	w.bufL = make([]float32, size)
	w.bufR = make([]float32, size)
	w.writeHead = 0
	return nil
}

func (w *LV2Delay) InitBuffers(audioIn, audioOut [][]float32) {
	w.in = audioIn
	w.out = audioOut
}

func (w *LV2Delay) Process(frames uint32, inEvents []event.EngineEvent, outEvents *[]event.EngineEvent) process.ProcessResult {
	if !w.IsActive() || len(w.in) < 2 || len(w.out) < 2 {
		return process.NewProcessResult(process.ProcessSleep)
	}

	delaySamples := int(w.Params.Get(lv2ParamTime) * w.sampleRate)
	if delaySamples < 1 {
		delaySamples = 1
	}
	if delaySamples >= len(w.bufL) {
		delaySamples = len(w.bufL) - 1
	}
	feedback := float32(w.Params.Get(lv2ParamFeedback))
	mix := float32(w.Params.Get(lv2ParamMix))

	n := int(frames)
	w.processChannel(w.in[0], w.out[0], w.bufL, n, delaySamples, feedback, mix, w.writeHead)
	w.processChannel(w.in[1], w.out[1], w.bufR, n, delaySamples, feedback, mix, w.writeHead)
	w.writeHead = (w.writeHead + n) % len(w.bufL)

	return process.NewProcessResult(process.ProcessTail)
}

func (w *LV2Delay) processChannel(in, out, buf []float32, n, delaySamples int, feedback, mix float32, startHead int) {
	head := startHead
	for i := 0; i < n && i < len(in) && i < len(out); i++ {
		readIdx := (head - delaySamples + len(buf)) % len(buf)
		wet := buf[readIdx]
		out[i] = in[i]*(1-mix) + wet*mix
		buf[head] = in[i] + wet*feedback
		head = (head + 1) % len(buf)
	}
}

// Clone returns a new LV2Delay with identical metadata, parameter
// values, and delay-line write head (spec §4.E clone).
func (w *LV2Delay) Clone() Wrapper {
	clone := NewLV2Delay(w.Info().UniqueID, w.Info().Filename, w.Logger)
	if w.IsActive() {
		_ = clone.Activate(w.SampleRate(), w.MaxFrames())
		clone.writeHead = w.writeHead % max(1, len(clone.bufL))
	}
	w.CopyStateInto(clone.Base)
	return clone
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Chunk serialises the delay line's write head, overriding Base's
// unsupported default (spec §4.D optional get_chunk/set_chunk).
func (w *LV2Delay) Chunk() ([]byte, bool) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(w.writeHead))
	return buf, true
}

func (w *LV2Delay) SetChunk(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("plugin: lv2 delay chunk too short (%d bytes)", len(data))
	}
	head := int(binary.LittleEndian.Uint32(data))
	if len(w.bufL) > 0 {
		head %= len(w.bufL)
	}
	w.writeHead = head
	return nil
}

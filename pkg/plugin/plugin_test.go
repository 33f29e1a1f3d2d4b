package plugin

import (
	"io"
	"testing"

	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *enginelog.Logger { return enginelog.New(io.Discard, "test") }

func TestLADSPAFilterSilentUntilActivated(t *testing.T) {
	w := NewLADSPAFilter("test.lowpass", "builtin", testLogger())
	assert.False(t, w.IsActive())

	var out []event.EngineEvent
	result := w.Process(64, nil, &out)
	assert.True(t, result.ShouldSleep())
}

func TestLADSPAFilterProcessesAudio(t *testing.T) {
	w := NewLADSPAFilter("test.lowpass", "builtin", testLogger())
	require.NoError(t, w.Activate(48000, 64))

	in := make([]float32, 64)
	for i := range in {
		in[i] = 1.0
	}
	out := make([]float32, 64)
	w.InitBuffers([][]float32{in}, [][]float32{out})

	var outEvents []event.EngineEvent
	result := w.Process(64, nil, &outEvents)
	assert.True(t, result.ShouldContinue())

	var sawNonZero bool
	for _, v := range out {
		if v != 0 {
			sawNonZero = true
		}
	}
	assert.True(t, sawNonZero)
}

func TestDSSISynthTracksVoiceCount(t *testing.T) {
	w := NewDSSISynth("test.synth", "builtin", testLogger())
	require.NoError(t, w.Activate(48000, 64))

	out := make([]float32, 64)
	w.InitBuffers(nil, [][]float32{out})

	noteOn := event.EngineEvent{Kind: event.Midi{Data: [3]byte{event.StatusNoteOn, 60, 100}, Size: 3}}
	var outEvents []event.EngineEvent
	result := w.Process(64, []event.EngineEvent{noteOn}, &outEvents)
	assert.True(t, result.ShouldContinue())
	assert.Equal(t, 1, dssiActiveVoices(w))

	// With a zero release time a note-off frees its voice at once.
	w.SetParam(dssiParamRelease, 0, false, false)
	noteOff := event.EngineEvent{Kind: event.Midi{Data: [3]byte{event.StatusNoteOff, 60, 0}, Size: 3}}
	w.Process(64, []event.EngineEvent{noteOff}, &outEvents)
	assert.Equal(t, 0, dssiActiveVoices(w))
}

func dssiActiveVoices(w *DSSISynth) int {
	n := 0
	for _, v := range w.voices {
		if v.active {
			n++
		}
	}
	return n
}

func TestLV2DelayChunkRoundTrip(t *testing.T) {
	w := NewLV2Delay("test.delay", "builtin", testLogger())
	require.NoError(t, w.Activate(48000, 64))
	w.writeHead = 1234

	data, ok := w.Chunk()
	require.True(t, ok)

	w2 := NewLV2Delay("test.delay", "builtin", testLogger())
	require.NoError(t, w2.Activate(48000, 64))
	require.NoError(t, w2.SetChunk(data))
	assert.Equal(t, w.writeHead, w2.writeHead)
}

func TestVSTDistortionChunkRoundTrip(t *testing.T) {
	w := NewVSTDistortion("test.drive", "builtin", testLogger())
	require.NoError(t, w.Activate(48000, 64))
	w.SetParam(vstParamDrive, 1.5, true, false)

	data, ok := w.Chunk()
	require.True(t, ok)

	w2 := NewVSTDistortion("test.drive", "builtin", testLogger())
	require.NoError(t, w2.Activate(48000, 64))
	require.NoError(t, w2.SetChunk(data))
	assert.InDelta(t, w.Params.Get(vstParamDrive), w2.Params.Get(vstParamDrive), 0.001)
}

func TestSoundFontSynthExposesMidiPrograms(t *testing.T) {
	w := NewSoundFontSynth("test.sf2", "builtin", testLogger())
	programs := w.MidiPrograms()
	require.Len(t, programs, 3)
	assert.Equal(t, "Grand Piano", programs[0].Name)
}

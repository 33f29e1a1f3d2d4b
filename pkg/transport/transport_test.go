package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockStartsStoppedAtFrameZero(t *testing.T) {
	c := NewClock(48000)
	snap := c.Snapshot(512)
	assert.False(t, snap.Playing)
	assert.Equal(t, uint64(0), snap.Frame)
	assert.NotNil(t, snap.BBT)
}

func TestClockAdvancesFrameOnlyWhilePlaying(t *testing.T) {
	c := NewClock(48000)
	c.Snapshot(512) // stopped: must not advance
	assert.Equal(t, uint64(0), c.Snapshot(0).Frame)

	c.Play()
	first := c.Snapshot(512)
	assert.Equal(t, uint64(0), first.Frame)
	second := c.Snapshot(512)
	assert.Equal(t, uint64(512), second.Frame)
}

func TestClockRelocateJumpsPosition(t *testing.T) {
	c := NewClock(48000)
	c.Play()
	c.Relocate(48000)
	snap := c.Snapshot(0)
	assert.Equal(t, uint64(48000), snap.Frame)
	// one second at 120bpm 4/4 = 2 beats elapsed = bar 1, beat 3, tick 0
	assert.Equal(t, int32(1), snap.BBT.Bar)
	assert.Equal(t, int32(3), snap.BBT.Beat)
	assert.Equal(t, int32(0), snap.BBT.Tick)
}

func TestClockPauseFreezesFrame(t *testing.T) {
	c := NewClock(48000)
	c.Play()
	c.Snapshot(512)
	c.Pause()
	snapBefore := c.Snapshot(512)
	snapAfter := c.Snapshot(512)
	assert.Equal(t, snapBefore.Frame, snapAfter.Frame)
	assert.False(t, snapAfter.Playing)
}

func TestClockSetBPMAffectsBBT(t *testing.T) {
	c := NewClock(48000)
	c.SetBPM(240)
	c.Play()
	c.Relocate(48000)
	snap := c.Snapshot(0)
	assert.Equal(t, 240.0, snap.BBT.BeatsPerMinute)
}

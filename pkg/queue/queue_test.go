package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCommandRingPreservesOrder(t *testing.T) {
	r := NewCommandRing()
	for i := 0; i < 10; i++ {
		require.True(t, r.Push(Command{Kind: SetParam, PluginID: uint32(i)}))
	}
	require.Equal(t, 10, r.Len())

	drained := r.Drain(nil)
	require.Len(t, drained, 10)
	for i, c := range drained {
		assert.Equal(t, uint32(i), c.PluginID)
	}
	assert.Equal(t, 0, r.Len())
}

// Test_commandRingNeverReordersOrDropsWithinCapacity checks, over many
// randomly-sized push/drain batches that never exceed the ring's
// capacity, that every drained PluginID comes back in push order and
// that Len always matches what Drain later returns.
func Test_commandRingNeverReordersOrDropsWithinCapacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewCommandRing()
		var next uint32
		var pending []uint32

		rounds := rapid.IntRange(1, 20).Draw(t, "rounds")
		for i := 0; i < rounds; i++ {
			batch := rapid.IntRange(0, CommandRingCapacity-1-len(pending)).Draw(t, "batch")
			for j := 0; j < batch; j++ {
				require.True(t, r.Push(Command{Kind: SetParam, PluginID: next}))
				pending = append(pending, next)
				next++
			}
			require.Equal(t, len(pending), r.Len())

			if rapid.Bool().Draw(t, "drain") {
				drained := r.Drain(nil)
				require.Equal(t, pending, extractPluginIDs(drained))
				pending = nil
			}
		}
	})
}

func extractPluginIDs(cs []Command) []uint32 {
	ids := make([]uint32, len(cs))
	for i, c := range cs {
		ids[i] = c.PluginID
	}
	return ids
}

func TestCommandRingRejectsPushPastCapacity(t *testing.T) {
	r := NewCommandRing()
	for i := 0; i < CommandRingCapacity; i++ {
		require.True(t, r.Push(Command{Kind: PanicAll}))
	}
	assert.False(t, r.Push(Command{Kind: PanicAll}))
}

func TestCommandRingInterleavedPushDrain(t *testing.T) {
	r := NewCommandRing()
	var seen []uint32
	for i := 0; i < 5; i++ {
		require.True(t, r.Push(Command{Kind: NoteOn, PluginID: uint32(i)}))
		drained := r.Drain(nil)
		for _, c := range drained {
			seen = append(seen, c.PluginID)
		}
	}
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, seen)
}

func TestPostRtRingOverflowCountsDrops(t *testing.T) {
	r := NewPostRtRing()
	for i := 0; i < PostRtRingCapacity; i++ {
		require.True(t, r.Push(PostRtEvent{Kind: Debug}))
	}
	assert.False(t, r.Push(PostRtEvent{Kind: Debug}))
	assert.False(t, r.Push(PostRtEvent{Kind: Debug}))
	assert.Equal(t, uint64(2), r.Overflow())
}

func TestPostRtRingDrainOrder(t *testing.T) {
	r := NewPostRtRing()
	for i := 0; i < 7; i++ {
		require.True(t, r.Push(PostRtEvent{Kind: ParameterChange, PluginID: uint32(i), V1: int32(i)}))
	}
	drained := r.Drain(nil)
	require.Len(t, drained, 7)
	for i, e := range drained {
		assert.Equal(t, int32(i), e.V1)
	}
	assert.Equal(t, 0, r.Len())
}

package registry

import (
	"io"
	"testing"

	"github.com/carla-project/carla-engine/pkg/carlaerr"
	"github.com/carla-project/carla-engine/pkg/enginelog"
	"github.com/carla-project/carla-engine/pkg/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *enginelog.Logger { return enginelog.New(io.Discard, "test") }

func ladspaLoader(uniqueID, filename, label string) (plugin.Wrapper, error) {
	return plugin.NewLADSPAFilter(uniqueID, filename, testLogger()), nil
}

func failingLoader(uniqueID, filename, label string) (plugin.Wrapper, error) {
	return nil, assertError{"load failed"}
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func TestAddAssignsDenseIDsAndUniqueNames(t *testing.T) {
	r := New(8)
	id0, err := r.Add(ladspaLoader, "u0", "f0", "l0", "Filter")
	require.NoError(t, err)
	id1, err := r.Add(ladspaLoader, "u1", "f1", "l1", "Filter")
	require.NoError(t, err)

	assert.Equal(t, uint32(0), id0)
	assert.Equal(t, uint32(1), id1)
	assert.True(t, r.IDsAreDense())

	e1, err := r.Get(id1)
	require.NoError(t, err)
	assert.Equal(t, "Filter (2)", e1.Name)
	assert.False(t, r.HasDuplicateNames())
}

func TestRemoveCompactsIDsDownward(t *testing.T) {
	r := New(8)
	ids := make([]uint32, 3)
	for i := range ids {
		id, err := r.Add(ladspaLoader, "u", "f", "l", "Filter")
		require.NoError(t, err)
		ids[i] = id
	}
	require.NoError(t, r.Remove(ids[0]))
	assert.Equal(t, uint32(2), r.Count())
	assert.True(t, r.IDsAreDense())
}

func TestRemoveAllDescendsOrder(t *testing.T) {
	r := New(8)
	for i := 0; i < 3; i++ {
		_, err := r.Add(ladspaLoader, "u", "f", "l", "Filter")
		require.NoError(t, err)
	}
	r.RemoveAll()
	assert.Equal(t, uint32(0), r.Count())
}

func TestSwapRequiresBothDisabled(t *testing.T) {
	r := New(8)
	id0, err := r.Add(ladspaLoader, "u0", "f0", "l0", "A")
	require.NoError(t, err)
	id1, err := r.Add(ladspaLoader, "u1", "f1", "l1", "B")
	require.NoError(t, err)
	require.NoError(t, r.SetEnabled(id0, false))
	require.NoError(t, r.SetEnabled(id1, false))

	require.NoError(t, r.Swap(id0, id1))
	e0, err := r.Get(id0)
	require.NoError(t, err)
	assert.Equal(t, "B", e0.Name)

	require.NoError(t, r.SetEnabled(id0, true))
	require.NoError(t, r.SetEnabled(id1, true))
	err = r.Swap(id0, id1)
	require.Error(t, err)
	assert.True(t, carlaerr.Is(err, carlaerr.InvalidState))
}

func TestReplaceThenFailingAddClearsEarmarkButKeepsID(t *testing.T) {
	r := New(8)
	var ids [3]uint32
	for i := range ids {
		id, err := r.Add(ladspaLoader, "u", "f", "l", "Filter")
		require.NoError(t, err)
		ids[i] = id
	}
	require.NoError(t, r.Replace(ids[1]))

	_, err := r.Add(failingLoader, "u", "f", "l", "Filter")
	require.Error(t, err)
	assert.True(t, carlaerr.Is(err, carlaerr.PluginLoad))

	assert.Equal(t, uint32(3), r.Count())
	assert.True(t, r.IDsAreDense())

	// The earmark must be cleared: a subsequent successful Add appends
	// at the next free id rather than silently reusing id 1 again.
	newID, err := r.Add(ladspaLoader, "u3", "f3", "l3", "Filter")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), newID)
}

func TestRenameDisambiguates(t *testing.T) {
	r := New(8)
	id0, err := r.Add(ladspaLoader, "u0", "f0", "l0", "A")
	require.NoError(t, err)
	_, err = r.Add(ladspaLoader, "u1", "f1", "l1", "B")
	require.NoError(t, err)

	name, err := r.Rename(id0, "B")
	require.NoError(t, err)
	assert.Equal(t, "B (2)", name)
}

func TestCloneCopiesParameterValues(t *testing.T) {
	r := New(8)
	id, err := r.Add(ladspaLoader, "u0", "f0", "l0", "Filter")
	require.NoError(t, err)

	entry, err := r.Get(id)
	require.NoError(t, err)
	entry.Wrapper.SetParam(0, 0.9, true, false)

	cloneID, err := r.Clone(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, cloneID)

	cloneEntry, err := r.Get(cloneID)
	require.NoError(t, err)
	assert.InDelta(t, entry.Wrapper.ParamValue(0), cloneEntry.Wrapper.ParamValue(0), 0.0001)
	assert.Equal(t, "Filter (2)", cloneEntry.Name)
}

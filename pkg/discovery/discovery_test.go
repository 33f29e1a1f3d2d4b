package discovery

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carla-project/carla-engine/pkg/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinesBuildsOneResultPerInitMarker(t *testing.T) {
	out := strings.Join([]string{
		"carla-discovery::init::start",
		"carla-discovery::label::lowpass",
		"carla-discovery::name::Lowpass Filter",
		"carla-discovery::uniqueId::test.lowpass",
		"carla-discovery::audio.ins::2",
		"carla-discovery::audio.outs::2",
		"carla-discovery::parameters.ins::1",
		"carla-discovery::init::start",
		"carla-discovery::label::delay",
		"carla-discovery::name::Stereo Delay",
		"ignored garbage line that isn't the protocol at all",
	}, "\n")

	results := parseLines(strings.NewReader(out), plugin.FormatLADSPA)

	require.Len(t, results, 2)
	assert.Equal(t, "lowpass", results[0].Label)
	assert.Equal(t, 2, results[0].AudioIns)
	assert.Equal(t, "delay", results[1].Label)
	assert.Equal(t, "Stereo Delay", results[1].Name)
}

func TestApplyFieldPopulatesKnownKeys(t *testing.T) {
	r := &Result{Format: plugin.FormatLADSPA}
	fields := map[string]string{
		"label":           "lowpass",
		"name":            "Lowpass Filter",
		"maker":           "Carla",
		"uniqueId":        "test.lowpass",
		"hints":           "3",
		"audio.ins":       "2",
		"audio.outs":      "2",
		"midi.ins":        "0",
		"midi.outs":       "0",
		"parameters.ins":  "1",
		"parameters.outs": "0",
		"programCount":    "4",
	}
	for k, v := range fields {
		applyField(r, k, v)
	}

	assert.Equal(t, "lowpass", r.Label)
	assert.Equal(t, "Lowpass Filter", r.Name)
	assert.Equal(t, "Carla", r.Maker)
	assert.Equal(t, "test.lowpass", r.UniqueID)
	assert.Equal(t, uint32(3), r.Hints)
	assert.Equal(t, 2, r.AudioIns)
	assert.Equal(t, 2, r.AudioOuts)
	assert.Equal(t, 1, r.ParameterIns)
	assert.Equal(t, 4, r.ProgramCount)
}

func TestApplyFieldIgnoresUnparseableNumbers(t *testing.T) {
	r := &Result{}
	applyField(r, "audio.ins", "not-a-number")
	assert.Equal(t, 0, r.AudioIns)
}

func TestSkipsInitCheckAllowListsSoundFontOnly(t *testing.T) {
	require.True(t, SkipsInitCheck(plugin.FormatSoundFont))
	require.False(t, SkipsInitCheck(plugin.FormatVST))
	require.False(t, SkipsInitCheck(plugin.FormatLADSPA))
}

func TestRunnerCachesByPathFormatAndMtime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.so")
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	// No discovery binary is configured, so only a cache hit can succeed.
	r := NewRunner(nil)
	key := cacheKey{path: path, format: plugin.FormatLADSPA, mtime: info.ModTime().UnixNano()}
	r.cache.entries[key] = []Result{{Label: "cached"}}

	got, err := r.Discover(path, plugin.FormatLADSPA)
	require.NoError(t, err)
	assert.Equal(t, "cached", got[0].Label)

	_, err = r.Discover(path, plugin.FormatVST)
	require.Error(t, err, "a different format is a different cache key")
}

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kikiluvv/clipseq/internal/timebase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.True(t, cfg.Export.CopyCodec)

	_, ok := cfg.SequenceTimeBase()
	assert.False(t, ok)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipseq.yaml")
	data := []byte("concurrency: 2\nsequence:\n  time_base: 1/90000\n  passes: 3\nexport:\n  copy_codec: false\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 3, cfg.Sequence.Passes)
	assert.False(t, cfg.Export.CopyCodec)
	assert.Equal(t, "ffprobe", cfg.FFmpeg.ProbePath, "unset keys keep defaults")

	tb, ok := cfg.SequenceTimeBase()
	require.True(t, ok)
	assert.Equal(t, timebase.MPEG, tb)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"syntax":      "concurrency: [",
		"concurrency": "concurrency: 0\n",
		"passes":      "sequence:\n  passes: 0\n",
		"time base":   "sequence:\n  time_base: 1/0\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Concurrency = 8
	cfg.Sequence.TimeBase = "1/30"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestContextHelpers(t *testing.T) {
	assert.Equal(t, Default(), FromContext(context.Background()))

	cfg := Default()
	cfg.Concurrency = 1
	ctx := WithConfig(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}

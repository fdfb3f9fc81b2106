package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	Init(Options{JSON: true, Writer: &buf})

	clipLog := WithComponent("clip")
	clipLog.Debug().Msg("hidden")
	clipLog.Info().Int64("pts", 42).Msg("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "exactly one JSON line expected: %s", buf.String())
	assert.Equal(t, "clip", entry["component"])
	assert.Equal(t, "visible", entry["message"])
	assert.EqualValues(t, 42, entry["pts"])
}

func TestInitVerbose(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	Init(Options{Verbose: true, Writer: &buf})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	pipeLog := WithComponent("pipeline")
	pipeLog.Debug().Msg("drain started")
	assert.Contains(t, buf.String(), "drain started")
	assert.Contains(t, buf.String(), "pipeline")
}

func TestNewLoggerMultiWriter(t *testing.T) {
	var a, b bytes.Buffer
	logger := NewLogger(&a, &b)
	logger.Info().Msg("both")

	assert.Contains(t, a.String(), "both")
	assert.Equal(t, a.String(), b.String())
}

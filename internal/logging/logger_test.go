package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New().FromWriter(&buf).WithLevel("debug").Make()
	require.NoError(t, err)

	logger.Debug().Str("session_id", "s1").Msg("joined")

	out := buf.String()
	assert.Contains(t, out, `"session_id":"s1"`)
	assert.Contains(t, out, `"message":"joined"`)
	assert.Contains(t, out, `"time"`)
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New().FromWriter(&buf).WithLevel("warn").Make()
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestInvalidLevel(t *testing.T) {
	_, err := New().WithLevel("loud").Make()
	assert.Error(t, err)
}

func TestFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.log")
	logger, err := New().FromPath(path).Make()
	require.NoError(t, err)

	logger.Info().Msg("to file")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

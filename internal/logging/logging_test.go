package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logs, err := New().ToWriter(buf).Format(FormatJSON).Level("debug").Make()
	require.NoError(t, err)

	l := Component(logs.Logger, "tree")
	l.Debug().Str("op", "delete").Msg("rejected")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tree", entry["component"])
	assert.Equal(t, "delete", entry["op"])
	assert.Equal(t, "debug", entry["level"])
}

func TestLevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	logs, err := New().ToWriter(buf).Format(FormatJSON).Level("warn").Make()
	require.NoError(t, err)

	logs.Logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logs.Logger.Warn().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestInvalidOptions(t *testing.T) {
	_, err := New().Level("loud").Make()
	assert.Error(t, err)

	_, err = New().Format("xml").Make()
	assert.Error(t, err)
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagecraft.log")
	logs, err := New().ToFile(path).Format(FormatJSON).Make()
	require.NoError(t, err)

	logs.Logger.Info().Msg("hello")
	require.NoError(t, logs.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestNopWritesNothing(t *testing.T) {
	l := Nop()
	l.Error().Msg("nothing")
	assert.Equal(t, "disabled", l.GetLevel().String())
}

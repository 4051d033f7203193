package log

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingHandlerKeepsRecent(t *testing.T) {
	h := NewRingHandler(slog.NewTextHandler(io.Discard, nil), 3)
	logger := slog.New(h).With("component", "test")

	for _, msg := range []string{"one", "two", "three", "four"} {
		logger.Info(msg)
	}

	logs := h.Logs()
	require.Len(t, logs, 3)
	assert.Equal(t, "two", logs[0].Message)
	assert.Equal(t, "four", logs[2].Message)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestInit(t *testing.T) {
	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "debug.log")

	logger, closeFn, err := Init(Options{Level: "warn", Output: &out, File: path})
	require.NoError(t, err)

	logger.Debug("quiet detail")
	logger.Warn("loud problem")
	require.NoError(t, closeFn())

	assert.NotContains(t, out.String(), "quiet detail")
	assert.Contains(t, out.String(), "loud problem")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "quiet detail"))
	assert.True(t, strings.Contains(string(data), "loud problem"))

	logs := Logs()
	require.NotEmpty(t, logs)
	assert.Equal(t, "loud problem", logs[len(logs)-1].Message)
}

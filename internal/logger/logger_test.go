package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidConfig(t *testing.T) {
	log, err := New(Config{Level: "info", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "verbose", Format: "json", Output: "stdout"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := New(Config{Level: "info", Format: "xml", Output: "stdout"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestNew_FileOutput(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "logs", "bot.log")

	log, err := New(Config{Level: "debug", Format: "text", Output: logPath})
	require.NoError(t, err)

	log.Info("hello", Field{Key: "key", Value: "value"})

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "key=value")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		valid bool
	}{
		{"debug", slog.LevelDebug, true},
		{"info", slog.LevelInfo, true},
		{"WARN", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"trace", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		level, valid := parseLevel(tt.input)
		assert.Equal(t, tt.valid, valid, tt.input)
		assert.Equal(t, tt.want, level, tt.input)
	}
}

func TestWith(t *testing.T) {
	log, err := New(Config{Level: "info", Format: "json", Output: "stdout"})
	require.NoError(t, err)

	child := log.With(Field{Key: "component", Value: "store"})
	assert.NotNil(t, child)
	assert.NotSame(t, log, child)
}

package app

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		level, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, level, in)
	}

	_, err := ParseLevel("verbose")
	require.ErrorContains(t, err, "invalid log-level")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{
		"":     LogFormatText,
		"text": LogFormatText,
		"JSON": LogFormatJSON,
	} {
		format, err := ParseFormat(in)
		require.NoError(t, err, in)
		require.Equal(t, want, format, in)
	}

	_, err := ParseFormat("xml")
	require.ErrorContains(t, err, "invalid log-format")
}

func TestNewLogger_FormatAndLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger("warn", "json", &buf)
	logger.Info("dropped")
	logger.Warn("kept")
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), `"msg":"kept"`)

	buf.Reset()
	logger = newLogger("debug", "text", &buf)
	logger.Debug("hello")
	require.Contains(t, buf.String(), "msg=hello")
}

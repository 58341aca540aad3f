package app

import (
	"errors"
	"io"
	"log/slog"
	"strings"
)

// Log output formats understood by newLogger.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// ParseLevel maps a configuration string onto its slog.Level. The empty
// string selects the info default; any other unknown name is an error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
}

// ParseFormat normalizes a log format name. The empty string selects text.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(s) {
	case LogFormatText, "":
		return LogFormatText, nil
	case LogFormatJSON:
		return LogFormatJSON, nil
	default:
		return "", errors.New("invalid log-format: must be 'text' or 'json'")
	}
}

// newLogger builds the app's slog.Logger from level and format strings the
// CLI has already run through ParseLevel and ParseFormat; anything invalid
// that still reaches this point falls back to the defaults. It does not
// touch the global logger, so tests can run isolated instances side by side.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level, err := ParseLevel(levelStr)
	if err != nil {
		level = slog.LevelInfo
	}
	format, err := ParseFormat(formatStr)
	if err != nil {
		format = LogFormatText
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == LogFormatJSON {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}

package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// Levels beyond the four slog provides.
const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// ParseLevel maps a level name (trace, debug, info, warn, error, fatal) to its
// slog level. Matching is case-insensitive and "warning" is accepted.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "fatal":
		return LevelFatal, nil
	}
	return 0, fmt.Errorf("unknown log level %q (want trace, debug, info, warn, error or fatal)", s)
}

// LevelName returns the fixed-width label printed for l.
func LevelName(l slog.Level) string {
	switch {
	case l < slog.LevelDebug:
		return "TRACE"
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO "
	case l < slog.LevelError:
		return "WARN "
	case l < LevelFatal:
		return "ERROR"
	default:
		return "FATAL"
	}
}

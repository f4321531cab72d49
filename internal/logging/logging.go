// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// TimeFormat is the layout of the timestamp field, in local time.
const TimeFormat = "2006-01-02T15:04:05"

// Output field names.
const (
	TimestampKey = "timestamp"
	LevelKey     = "loglevel"
	MessageKey   = "message"
)

// New returns a logger writing one record per line to w. format is "json" or
// "text"; anything else falls back to JSON.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel converts a string log level to slog.Level. Unknown values map
// to warn.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// replaceAttr renames the built-in keys and formats the timestamp.
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}

	switch a.Key {
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			return slog.String(TimestampKey, t.Local().Format(TimeFormat))
		}
		a.Key = TimestampKey
	case slog.LevelKey:
		a.Key = LevelKey
	case slog.MessageKey:
		a.Key = MessageKey
	}
	return a
}

// Err returns an "error" attribute, or an empty attribute for a nil error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

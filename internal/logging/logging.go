// Package logging provides the leveled, structured logger used across the client core.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/golang-cz/devslog"
	"github.com/mattn/go-isatty"
)

// Level is a logging threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Fields is a set of structured key/value pairs attached to a log line.
type Fields map[string]interface{}

// WithField returns a single-entry Fields.
func WithField(key string, value interface{}) Fields {
	return Fields{key: value}
}

// WithFields wraps a map as Fields.
func WithFields(fields map[string]interface{}) Fields {
	return Fields(fields)
}

// Logger writes leveled, structured log lines.
type Logger struct {
	level Level
	sl    *slog.Logger
}

// New creates a logger writing to stdout. Terminals get the devslog handler,
// everything else gets JSON lines.
func New(level Level) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(level Level, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: level.slog()}

	var handler slog.Handler
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		handler = devslog.NewHandler(w, &devslog.Options{HandlerOptions: opts})
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{level: level, sl: slog.New(handler)}
}

// With returns a child logger that adds fields to every line.
func (l *Logger) With(fields ...Fields) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{level: l.level, sl: l.sl.With(attrs(fields)...)}
}

// Level returns the configured threshold.
func (l *Logger) Level() Level {
	return l.level
}

// Slog exposes the underlying slog logger for libraries that want one.
func (l *Logger) Slog() *slog.Logger {
	return l.sl
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.log(slog.LevelDebug, msg, fields)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.log(slog.LevelWarn, msg, fields)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.log(slog.LevelError, msg, fields)
}

func (l *Logger) log(level slog.Level, msg string, fields []Fields) {
	if l == nil {
		return
	}
	l.sl.Log(context.Background(), level, msg, attrs(fields)...)
}

// attrs flattens fields in key order so output is stable.
func attrs(fields []Fields) []any {
	merged := make(map[string]interface{})
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, merged[k]))
	}
	return out
}

// Package logx wraps log/slog with component tags shared by every service
// in the gamepad firmware.
package logx

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

const (
	ComponentPad     Component = "pad"
	ComponentApplier Component = "applier"
	ComponentScanner Component = "scanner"
	ComponentAnalog  Component = "analog"
	ComponentHID     Component = "hid"
	ComponentWeb     Component = "web"
	ComponentConsole Component = "console"
	ComponentConfig  Component = "config"
	ComponentSystem  Component = "system"
)

// Format specifies the output format for logging.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

var (
	defaultLogger *slog.Logger
	level         = new(slog.LevelVar)
	mu            sync.RWMutex
)

func init() {
	level.Set(slog.LevelInfo)
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// SetLevel sets the minimum level for all firmware logging.
func SetLevel(l slog.Level) { level.Set(l) }

// Level returns the current minimum level.
func Level() slog.Level { return level.Level() }

// ParseLevel maps "debug", "info", "warn", "error" to a slog level.
// Unknown names yield info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// SetLogger replaces the default logger.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// Logger returns the current default logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetOutput points the default logger at w using the given format and the
// shared level.
func SetOutput(w io.Writer, f Format) {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch f {
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	SetLogger(slog.New(h))
}

// For returns a logger pre-tagged with component.
func For(c Component) *slog.Logger {
	return Logger().With("component", string(c))
}

func Debug(c Component, msg string, args ...any) {
	Logger().Debug(msg, append([]any{"component", string(c)}, args...)...)
}

func Info(c Component, msg string, args ...any) {
	Logger().Info(msg, append([]any{"component", string(c)}, args...)...)
}

func Warn(c Component, msg string, args ...any) {
	Logger().Warn(msg, append([]any{"component", string(c)}, args...)...)
}

func Error(c Component, msg string, args ...any) {
	Logger().Error(msg, append([]any{"component", string(c)}, args...)...)
}

// Package stslog centralizes structured logging for the scheduler: process
// Startup/Shutdown events, PrintAssignments/PrintSubTaskTimes diagnostics, and
// assertion-failure logging emitted right before a panic. Nothing on a
// parallel_for hot path logs, so no allocation-avoidance tricks are needed
// here beyond zerolog's own.
package stslog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	current = newDefault()
)

func newDefault() zerolog.Logger {
	var w io.Writer = os.Stderr
	if os.Getenv("STS_LOG_FORMAT") != "json" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	}
	level := zerolog.InfoLevel
	if lv, err := zerolog.ParseLevel(os.Getenv("STS_LOG_LEVEL")); err == nil {
		level = lv
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Logger returns the process-wide scheduler logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetLogger overrides the process-wide scheduler logger, e.g. to redirect
// it into a host application's own zerolog instance.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

// Reload rebuilds the default logger from the current STS_LOG_LEVEL /
// STS_LOG_FORMAT environment variables, for callers (like stsctl) that set
// them after process start from a CLI flag.
func Reload() {
	SetLogger(newDefault())
}

// Named returns a child logger tagged with a component name, used to
// separate pool, step, and scheduler-instance log lines.
func Named(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

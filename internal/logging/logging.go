// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured logger used across sshgate.
// Warnings never change the outcome of a run; fatal conditions are
// propagated as errors, not logged-and-exited here.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// Logger wraps the underlying structured logger.
type Logger struct {
	l *log.Logger
}

var (
	defaultOnce sync.Once
	defaultLog  *Logger
)

// New creates a logger with the given component prefix.
func New(component string) *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          component,
	})
	if os.Getenv("SSHGATE_DEBUG") != "" {
		l.SetLevel(log.DebugLevel)
	}
	return &Logger{l: l}
}

// NewWithWriter creates a logger writing to w. Used by tests.
func NewWithWriter(w io.Writer, component string) *Logger {
	l := log.NewWithOptions(w, log.Options{Prefix: component})
	return &Logger{l: l}
}

// Default returns the process-wide logger.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLog = New("sshgate")
	})
	return defaultLog
}

// With returns a logger with the given key-value pairs attached to
// every record.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{l: l.l.With(kv...)}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, kv ...any) {
	l.l.Debug(msg, kv...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, kv ...any) {
	l.l.Info(msg, kv...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, kv ...any) {
	l.l.Warn(msg, kv...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, kv ...any) {
	l.l.Error(msg, kv...)
}

// Package-level helpers routed to the default logger.

func Debug(msg string, kv ...any) { Default().Debug(msg, kv...) }
func Info(msg string, kv ...any)  { Default().Info(msg, kv...) }
func Warn(msg string, kv ...any)  { Default().Warn(msg, kv...) }
func Error(msg string, kv ...any) { Default().Error(msg, kv...) }

// Package diag writes leveled diagnostics to a side channel (normally
// stderr), keeping them out of the data stream.
package diag

import (
	"fmt"
	"io"
	"sync"
)

// Level orders diagnostics by severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = []string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Logger writes "prefix: [LEVEL] message" lines at or above a threshold.
// A nil *Logger discards everything.
type Logger struct {
	mu     sync.Mutex
	level  Level
	prefix string
	output io.Writer
}

// New creates a logger writing to w at the given threshold
func New(w io.Writer, prefix string, level Level) *Logger {
	return &Logger{
		level:  level,
		prefix: prefix,
		output: w,
	}
}

// Discard returns a logger that drops every message
func Discard() *Logger {
	return New(io.Discard, "", LevelError+1)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) log(lvl Level, format string, args ...interface{}) {
	if l == nil || lvl < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		fmt.Fprintf(l.output, "%s: [%s] %s\n", l.prefix, lvl, msg)
	} else {
		fmt.Fprintf(l.output, "[%s] %s\n", lvl, msg)
	}
}

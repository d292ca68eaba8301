// Package logging builds the diagnostic logger for pufferwatch.
//
// The terminal belongs to the viewer, so diagnostics are only written when an
// output file is configured; otherwise they are discarded.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/phuslu/log"
)

// New returns a logger writing JSON lines to path at the given level. An empty
// path discards everything. The returned closer releases the file.
func New(path, level string) (*log.Logger, io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	if strings.TrimSpace(path) == "" {
		return &log.Logger{Level: lvl, Writer: &log.IOWriter{Writer: io.Discard}}, nopCloser{}, nil
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open output log: %w", err)
	}
	return &log.Logger{Level: lvl, Writer: &log.IOWriter{Writer: f}}, f, nil
}

// Discard returns a logger that drops everything. Useful in tests and as the
// default for components built without one.
func Discard() *log.Logger {
	return &log.Logger{Level: log.ErrorLevel, Writer: &log.IOWriter{Writer: io.Discard}}
}

// ParseLevel accepts trace, debug, info, warn (or warning) and error. An empty
// string means info.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return log.InfoLevel, nil
	case "trace":
		return log.TraceLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Package logging provides structured logging with file output support.
// It uses environment variables for configuration and supports file cleanup.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	EnvLevel  = "LIFTER_LOG_LEVEL"
	EnvPrefix = "LIFTER_LOG_PREFIX"
	EnvToFile = "LIFTER_LOG_TO_FILE"
)

// LoggerCloser wraps a logger and provides a Close method for cleanup
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the underlying writer if it's closeable
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// ParseLevel maps debug, warn and error to their levels; anything else is
// info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	}
	return log.InfoLevel
}

// NewLoggerWithWriter creates a new logger with the provided writer. level
// is used when LIFTER_LOG_LEVEL is unset.
func NewLoggerWithWriter(w io.Writer, level string) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	if env := os.Getenv(EnvLevel); env != "" {
		level = env
	}
	lg.SetLevel(ParseLevel(level))

	prefix := os.Getenv(EnvPrefix)
	if prefix == "" {
		prefix = "lifter "
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// NewLogger creates a new logger based on environment variables
// LIFTER_LOG_LEVEL: debug, info, warn, error (default: level)
// LIFTER_LOG_PREFIX: prefix for log messages (default: "lifter ")
// LIFTER_LOG_TO_FILE: when set to "1", logs to a timestamped file instead of stderr
func NewLogger(level string) *LoggerCloser {
	output := io.Writer(os.Stderr)

	if os.Getenv(EnvToFile) == "1" {
		timestamp := time.Now().Format("20060102-150405")
		logFile := fmt.Sprintf("lifter-%s-debug.log", timestamp)

		f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err == nil {
			output = f
		}
		// If file creation fails, fall back to stderr
	}

	return NewLoggerWithWriter(output, level)
}

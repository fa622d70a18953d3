package log

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"lifter/internal/logging"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
	logger      *logging.LoggerCloser
)

// Setup builds the process logger once and installs it as the slog default.
// debug forces the debug level over level.
func Setup(level string, debug bool) *logging.LoggerCloser {
	initOnce.Do(func() {
		if debug {
			level = "debug"
		}
		logger = logging.NewLogger(level)
		logger.SetReportCaller(debug)

		slog.SetDefault(slog.New(logger.Logger))
		initialized.Store(true)
	})
	return logger
}

func Initialized() bool {
	return initialized.Load()
}

// Close flushes the log file, if any.
func Close() error {
	if logger == nil {
		return nil
	}
	return logger.Close()
}

func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("Panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		}
		if cleanup != nil {
			cleanup()
		}
	}
}

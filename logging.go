package carpal

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// defaultLogger is the process-wide fallback used by any component that
// is not given an explicit [WithLogger] option. It stays at zerolog.Nop()
// so the library is silent by default, mirroring how the source's
// CARPAL_LOG_DEBUG call sites compile away unless a caller wires a sink.
var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   = zerolog.Nop()
)

// SetDefaultLogger replaces the package-wide fallback logger used by
// components constructed without an explicit [WithLogger] option.
// defaultConfig reads it via currentDefaultLogger for every constructor
// in this package, so a call before any component is constructed
// changes the baseline every one of them inherits.
func SetDefaultLogger(l zerolog.Logger) {
	defaultLoggerMu.Lock()
	defaultLogger = l
	defaultLoggerMu.Unlock()
}

func currentDefaultLogger() zerolog.Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// NewConsoleLogger is a convenience constructor for a human-readable,
// timestamped logger writing to stderr, useful in tests and examples.
func NewConsoleLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// Package debug provides conditional debug logging for gpv.
//
// Debug logging is enabled by setting the GPV_DEBUG environment variable or
// the `debug` key in settings. When disabled (default), all functions are
// no-ops.
package debug

import (
	"log"
	"os"
	"sync/atomic"
	"time"
)

var (
	enabled atomic.Bool
	logger  = log.New(os.Stderr, "[GPV_DEBUG] ", log.Ltime|log.Lmicroseconds)
)

func init() {
	if os.Getenv("GPV_DEBUG") != "" {
		enabled.Store(true)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled allows programmatic control of debug logging (settings.json's
// `debug` flag goes through here). Safe to call while other goroutines log:
// settings reloads flip the flag mid-fetch.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// Log writes a debug message if debug logging is enabled. Printf-style.
func Log(format string, args ...any) {
	if !enabled.Load() {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled.Load() {
		return
	}
	logger.Printf("%s took %v", name, d)
}

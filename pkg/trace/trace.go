// Package trace provides the internal debug logger. Output is disabled
// unless the FIT_TRACE environment variable selects a level, so normal
// command output stays clean.
package trace

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is the global trace logger. It defaults to disabled; Init wires it to
// stderr when FIT_TRACE asks for output.
var Log = zerolog.Nop()

// Init configures the trace logger from the FIT_TRACE environment variable.
// Recognized values are "debug" and "trace"; anything else leaves tracing
// off. Called once from main before command dispatch.
func Init() {
	level, ok := levelFromEnv(os.Getenv("FIT_TRACE"))
	if !ok {
		Log = zerolog.Nop()
		return
	}

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	Log = zerolog.New(console).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func levelFromEnv(value string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return zerolog.DebugLevel, true
	case "trace":
		return zerolog.TraceLevel, true
	default:
		return zerolog.Disabled, false
	}
}

// Debug starts a debug-level trace event.
func Debug() *zerolog.Event {
	return Log.Debug()
}

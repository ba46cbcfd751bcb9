// Package logging configures the zerolog logger used by the mezip command.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Setup returns a console logger for the given verbosity and sets the global level.
//
// Verbosity 0 logs warnings, 1 info, 2 debug and anything higher trace. From
// debug on, the caller location is attached to every event.
func Setup(verbosity int, out io.Writer, noColor bool) zerolog.Logger {
	zerolog.SetGlobalLevel(Level(verbosity))

	consoleWriter := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}

	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()
	if verbosity >= 2 {
		logger = logger.With().Caller().Logger()
	}

	logger.Debug().Int("verbosity", verbosity).Msg("Logger initialized")

	return logger
}

// Level maps a verbosity count to a zerolog level.
func Level(verbosity int) zerolog.Level {
	switch verbosity {
	case 0:
		return zerolog.WarnLevel
	case 1:
		return zerolog.InfoLevel
	case 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// Component returns a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// LogOperationStart logs the start of an operation and returns a function to log its completion.
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().
		Str("operation", operation).
		Msg("Operation started")

	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}

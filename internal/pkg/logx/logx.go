/*
Package logx provides a structured logging wrapper based on zerolog.

It initializes the process-wide logger, selecting a human-readable console
format in development and JSON output otherwise, and exposes small helpers
for the common logging levels.
*/
package logx

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger initializes the global zerolog instance.
// Development mode logs at Debug level through a colored ConsoleWriter;
// any other environment logs at Info level as JSON with Unix timestamps.
func InitGlobalLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if isDevelopment {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	log.Logger = logger.With().Caller().Logger()
}

// Logger returns the global zerolog.Logger, for deriving child loggers
// with component-specific context.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// fields drops an odd-length key-value list instead of letting zerolog panic.
func fields(level string, kv []any) []any {
	if len(kv)%2 != 0 {
		Logger().Warn().
			Int("fields_count", len(kv)).
			Str("log_level", level).
			Msg("Logx call received an odd number of fields. Fields ignored.")
		return nil
	}
	return kv
}

// Info records a message at the Info level with optional key-value fields.
func Info(msg string, kv ...any) {
	Logger().Info().
		Fields(fields("Info", kv)).
		CallerSkipFrame(1).
		Msg(msg)
}

// Warn records a message at the Warn level with optional key-value fields.
func Warn(msg string, kv ...any) {
	Logger().Warn().
		Fields(fields("Warn", kv)).
		CallerSkipFrame(1).
		Msg(msg)
}

// Error records an error and message at the Error level with optional key-value fields.
func Error(err error, msg string, kv ...any) {
	Logger().Error().
		Err(err).
		Fields(fields("Error", kv)).
		CallerSkipFrame(1).
		Msg(msg)
}

// Fatal records an error and message at the Fatal level, then exits the process.
func Fatal(err error, msg string, kv ...any) {
	Logger().Fatal().
		Err(err).
		Fields(fields("Fatal", kv)).
		CallerSkipFrame(1).
		Msg(msg)
}

package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the process-wide logger. Output is JSON with a "severity"
// level field so Cloud Logging parses log levels without extra config;
// local development gets the console writer instead.
func New() zerolog.Logger {
	zerolog.LevelFieldName = "severity"
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger.Level(level())
}

// level reads LOG_LEVEL, falling back to debug.
func level() zerolog.Level {
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if lvl, err := zerolog.ParseLevel(raw); err == nil {
			return lvl
		}
	}
	return zerolog.DebugLevel
}

// Package logging configures the process-wide zerolog logger, grounded on
// the teacher's cmd/cryptorun/main.go console-writer setup.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a structured logger writing RFC3339 timestamps. levelName is
// one of zerolog's level strings ("debug", "info", "warn", "error");
// an unrecognized value falls back to "info".
func New(levelName string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// Package logging configures the process-wide zerolog logger.
package logging

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var once sync.Once

var log zerolog.Logger

// Level returns the configured log level, defaulting to INFO.
func Level() zerolog.Level {
	level, err := strconv.Atoi(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return zerolog.InfoLevel
	}
	return zerolog.Level(level)
}

// Get returns the shared logger, initializing it on first use.
func Get() zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		writer := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}

		log = zerolog.New(writer).
			Level(Level()).
			With().
			Timestamp().
			Logger()
	})

	return log
}

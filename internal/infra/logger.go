package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger constructs a zerolog.Logger for the given environment: console
// output at debug level in development, JSON at info level elsewhere, and a
// quiet logger for tests.
func NewLogger(appEnv string) zerolog.Logger {
	return newLogger(appEnv, os.Stdout)
}

func newLogger(appEnv string, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	switch appEnv {
	case "development":
		level = zerolog.DebugLevel
	case "test":
		level = zerolog.WarnLevel
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}

	return logger
}

// Logger aliases the zerolog.Logger so callers outside the infra package can
// depend on the logging contract without importing the third-party module
// directly.
type Logger = zerolog.Logger

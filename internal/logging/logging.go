// Package logging provides the service-wide zerolog logger.
package logging

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Level mirrors the handful of verbosities the service recognizes via the
// log_level config option.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var (
	mu     sync.RWMutex
	level  = Info
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// Logger returns the process-wide logger. Safe for concurrent use.
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &logger
}

// SetLevel adjusts the global verbosity.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
	zerolog.SetGlobalLevel(mapLevel(l))
}

// SetJSON switches the writer between the human-readable console format
// (development) and line-delimited JSON (production).
func SetJSON(json bool) {
	mu.Lock()
	defer mu.Unlock()
	if json {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(mapLevel(level))
}

// ParseLevel maps the config string to a Level, defaulting to Info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func mapLevel(l Level) zerolog.Level {
	switch l {
	case Debug:
		return zerolog.DebugLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

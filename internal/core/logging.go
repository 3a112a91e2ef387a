package core

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewConsoleLogger builds the human-facing stderr logger: a ConsoleWriter
// with short timestamps, matching the teacher's CLIHandler console sink.
func NewConsoleLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}

// NewMultiLogger wires one zerolog logger to both the console and an
// arbitrary extra sink (e.g. an in-memory buffer for a --dry-run report),
// the same io.MultiWriter pattern CLIHandler uses to mirror output to a
// buffer alongside stderr.
func NewMultiLogger(verbose bool, extra io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	mw := io.MultiWriter(cw, extra)
	return zerolog.New(mw).Level(level).With().Timestamp().Logger()
}

// NewNDJSONLogger builds a structured, non-console logger writing
// newline-delimited JSON to w — used for the C8 session event file, kept
// deliberately separate from the console logger above.
func NewNDJSONLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// Package logger provides modifications to charmbracelet/log's default logger to be used in various files/packages.
//
// Every logger writes to stderr, stdout carries the IPC stream.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New creates a prefixed charm log that respects the global log level.
func New(prefix string) *log.Logger {
	return NewTo(os.Stderr, prefix)
}

// NewTo is New with an explicit destination, mostly for tests.
func NewTo(w io.Writer, prefix string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: log.GetLevel() <= log.DebugLevel,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// Setup configures the package level logger used across the module.
// Debug mode lowers the level and adds timestamps, otherwise only warnings and errors show.
func Setup(debug bool) {
	log.SetOutput(os.Stderr)
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
		return
	}
	log.SetLevel(log.WarnLevel)
	log.SetReportTimestamp(false)
}

// ParseLevel maps a level name to a charm level, defaulting to warn.
func ParseLevel(name string) log.Level {
	level, err := log.ParseLevel(name)
	if err != nil {
		return log.WarnLevel
	}
	return level
}

// Package logging sets up diagnostics and writes level listings and
// per-file reports.
package logging

import (
	"io"

	"github.com/charmbracelet/log"
)

// Verbosity is how much the user asked to hear about
type Verbosity int

const (
	Quiet Verbosity = iota
	Progress
	Info
	Debug
)

// Level maps a verbosity onto the logger level that shows it
func (v Verbosity) Level() log.Level {
	switch {
	case v <= Quiet:
		return log.ErrorLevel
	case v == Progress:
		return log.WarnLevel
	case v == Info:
		return log.InfoLevel
	default:
		return log.DebugLevel
	}
}

// NewVerbosity combines -q and repeated -v flags. The default is Progress.
func NewVerbosity(quiet bool, verbose int) Verbosity {
	if quiet {
		return Quiet
	}
	return min(Progress+Verbosity(verbose), Debug)
}

// New returns a logger for diagnostics written to w
func New(w io.Writer, v Verbosity) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           v.Level(),
		ReportTimestamp: v >= Debug,
	})
}

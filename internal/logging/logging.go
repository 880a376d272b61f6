// Package logging provides the structured diagnostic logger that the
// pipeline hands to the engine and, through it, to the lexer.
package logging

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured sink for advisory diagnostics. It is never part
// of the fatal-error return channel.
type Logger = logiface.Logger[*stumpy.Event]

// New builds a Logger writing newline-delimited JSON to w. When verbose is
// false the level is raised to Warning, so only always-worth-surfacing
// advisories are emitted; verbose mode drops to Debug so every per-record
// note is visible.
func New(w io.Writer, verbose bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	level := logiface.LevelWarning
	if verbose {
		level = logiface.LevelDebug
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	)
}

// Discard returns a Logger that drops everything, for callers (tests,
// library embedders) that don't want diagnostics on stderr.
func Discard() *Logger {
	return New(io.Discard, false)
}

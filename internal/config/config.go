// Package config carries the optional configuration knobs accepted by the
// deathtrace CLI.
package config

import "github.com/hazyhaar/deathtrace/internal/lexer"

// Config is a single-shot set of run options: this is a batch tool, so
// there is no hot-reload surface, just a struct populated once from flags.
type Config struct {
	// InputPath is the trace file to reconstruct (required).
	InputPath string

	// AugmentedTracePath, if non-empty, writes the reordered,
	// death-interleaved trace to this path.
	AugmentedTracePath string
	// TextOraclePath writes the human-readable oracle.
	TextOraclePath string
	// CSVOraclePath writes the machine-readable oracle.
	CSVOraclePath string

	// Strict selects the lexer's failure policy: strict fails on the
	// first malformed record, lenient skips and warns.
	Strict bool
	// IncludePreExistingFrees controls whether frees for objects never
	// allocated in this trace are emitted as diagnostic rows.
	IncludePreExistingFrees bool
	// Verbose raises diagnostic logging from Warning to Debug.
	Verbose bool
	// BoundedMemory switches the engine's object store from in-memory
	// maps to the sqlite-backed overflow store.
	BoundedMemory bool
	// BoundedMemoryPath is the sqlite database path used when
	// BoundedMemory is set. Defaults to a path derived from InputPath.
	BoundedMemoryPath string
}

// LexerMode translates Strict into the lexer's Mode enum.
func (c Config) LexerMode() lexer.Mode {
	if c.Strict {
		return lexer.Strict
	}
	return lexer.Lenient
}

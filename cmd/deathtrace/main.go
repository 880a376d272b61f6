// deathtrace reconstructs object death times from a heap-tracing agent's
// allocation trace via offline reachability replay, and emits an augmented
// trace plus an allocation/free oracle.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/hazyhaar/deathtrace/internal/config"
	"github.com/hazyhaar/deathtrace/internal/logging"
	"github.com/hazyhaar/deathtrace/internal/pipeline"
	"github.com/hazyhaar/deathtrace/internal/tracerr"
)

const version = "0.1.0"

func main() {
	var (
		showVersion     = flag.Bool("version", false, "Show version")
		input           = flag.String("input", "", "Trace file to reconstruct (required)")
		augmentedOut    = flag.String("augmented-out", "", "Path for the reordered, death-interleaved trace")
		textOut         = flag.String("text-out", "", "Path for the human-readable oracle")
		csvOut          = flag.String("csv-out", "", "Path for the machine-readable (CSV) oracle")
		strict          = flag.Bool("strict", false, "Fail on the first malformed record instead of skipping it")
		includePreDead  = flag.Bool("include-pre-existing-frees", false, "Emit diagnostic frees for objects never allocated in this trace")
		verbose         = flag.Bool("verbose", false, "Emit per-record diagnostics, not just warnings")
		boundedMemory   = flag.Bool("bounded-memory", false, "Overflow the engine's live-object tables to disk instead of memory")
		boundedMemoryAt = flag.String("bounded-memory-path", "", "sqlite database path for -bounded-memory (default: <input>.objects.db)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `deathtrace v%s - offline object-death reconstruction

Usage: deathtrace -input trace.log [options]

Options:
`, version)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("deathtrace v%s\n", version)
		return
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.Config{
		InputPath:               *input,
		AugmentedTracePath:      *augmentedOut,
		TextOraclePath:          *textOut,
		CSVOraclePath:           *csvOut,
		Strict:                  *strict,
		IncludePreExistingFrees: *includePreDead,
		Verbose:                 *verbose,
		BoundedMemory:           *boundedMemory,
		BoundedMemoryPath:       *boundedMemoryAt,
	}

	log := logging.New(os.Stderr, cfg.Verbose)

	stats, err := pipeline.Run(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", summarize(err))
		os.Exit(1)
	}

	fmt.Printf("allocs=%d frees=%d diagnostic_frees=%d dropped_pre_existing=%d\n",
		stats.Allocs, stats.Frees, stats.DiagnosticFrees, stats.UnresolvedFreeDrop)
}

// summarize produces a single-line failure summary; the full cause (err's
// own message chain) still follows on the same line, since none of these
// fatal kinds carry sensitive detail worth hiding.
func summarize(err error) string {
	var io *tracerr.IoError
	var malformed *tracerr.MalformedRecord
	var temporal *tracerr.TemporalConflict
	var inconsistent *tracerr.InconsistentGraph

	switch {
	case errors.As(err, &io):
		return fmt.Sprintf("I/O failure: %v", err)
	case errors.As(err, &malformed):
		return fmt.Sprintf("malformed trace: %v", err)
	case errors.As(err, &temporal):
		return fmt.Sprintf("temporal conflict: %v", err)
	case errors.As(err, &inconsistent):
		return fmt.Sprintf("internal engine error: %v", err)
	default:
		return err.Error()
	}
}

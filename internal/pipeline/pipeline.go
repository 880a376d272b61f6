// Package pipeline wires the lexer, reachability engine, death reorderer
// and oracle builder into deathtrace's linear processing flow.
package pipeline

import (
	"os"

	"github.com/hazyhaar/deathtrace/internal/atomicfile"
	"github.com/hazyhaar/deathtrace/internal/config"
	"github.com/hazyhaar/deathtrace/internal/engine"
	"github.com/hazyhaar/deathtrace/internal/lexer"
	"github.com/hazyhaar/deathtrace/internal/logging"
	"github.com/hazyhaar/deathtrace/internal/oracle"
	"github.com/hazyhaar/deathtrace/internal/reorder"
)

// Run executes the full pipeline for cfg and returns the oracle's summary
// stats. Output files named in cfg are written atomically; a file not
// named in cfg is simply skipped.
func Run(cfg config.Config, log *logging.Logger) (oracle.Stats, error) {
	if log == nil {
		log = logging.Discard()
	}

	eng := engine.New(engine.Config{
		Path:     cfg.InputPath,
		Mode:     cfg.LexerMode(),
		Log:      log,
		NewStore: storeFactory(cfg),
	})

	result, err := eng.Run()
	if err != nil {
		return oracle.Stats{}, err
	}

	reordered, err := reorder.Reorder(result.Events, result.Deaths)
	if err != nil {
		return oracle.Stats{}, err
	}

	if cfg.AugmentedTracePath != "" {
		if err := atomicfile.Write(cfg.AugmentedTracePath, func(f *os.File) error {
			return lexer.WriteAll(f, reordered)
		}); err != nil {
			return oracle.Stats{}, err
		}
	}

	builder := oracle.NewBuilder(cfg.IncludePreExistingFrees)
	var stats oracle.Stats
	buildErr := withOracleSinks(cfg, func(txt, csv *os.File) error {
		var err error
		stats, err = builder.Build(reordered, txt, csv)
		return err
	})
	if buildErr != nil {
		return oracle.Stats{}, buildErr
	}
	return stats, nil
}

// storeFactory returns the Store constructor matching cfg's memory policy
// (the bounded-memory overflow mode vs. the default in-memory store).
func storeFactory(cfg config.Config) func() (engine.Store, error) {
	if !cfg.BoundedMemory {
		return func() (engine.Store, error) { return engine.NewMemStore(), nil }
	}
	path := cfg.BoundedMemoryPath
	if path == "" {
		path = cfg.InputPath + ".objects.db"
	}
	return func() (engine.Store, error) { return engine.NewSQLiteStore(path) }
}

// withOracleSinks opens whichever of the two oracle output paths are
// configured (both, one, or neither — an unconfigured sink still needs a
// destination for Builder.Build's signature, so it falls back to
// io.Discard semantics via os.DevNull) and commits them atomically.
func withOracleSinks(cfg config.Config, fn func(txt, csv *os.File) error) error {
	txtPath := cfg.TextOraclePath
	csvPath := cfg.CSVOraclePath

	switch {
	case txtPath != "" && csvPath != "":
		return atomicfile.Write(txtPath, func(txt *os.File) error {
			return atomicfile.Write(csvPath, func(csv *os.File) error {
				return fn(txt, csv)
			})
		})
	case txtPath != "":
		devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		defer devnull.Close()
		return atomicfile.Write(txtPath, func(txt *os.File) error {
			return fn(txt, devnull)
		})
	case csvPath != "":
		devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		defer devnull.Close()
		return atomicfile.Write(csvPath, func(csv *os.File) error {
			return fn(devnull, csv)
		})
	default:
		devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		defer devnull.Close()
		return fn(devnull, devnull)
	}
}

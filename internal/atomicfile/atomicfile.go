// Package atomicfile provides the scoped-acquisition, temp-path-then-rename
// output helper used by every sink in the pipeline: no partial output is
// ever left behind in a half-written state.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hazyhaar/deathtrace/internal/tracerr"
)

// Write opens a temp file alongside path (named with a uuid suffix so
// concurrent writers to the same path can't collide), calls fn with it,
// and renames it over path only if fn returns nil. On any error the temp
// file is removed and path is left untouched.
func Write(path string, fn func(f *os.File) error) (err error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", base, uuid.NewString()))

	f, openErr := os.Create(tmp)
	if openErr != nil {
		return &tracerr.IoError{Path: tmp, Op: "create", Err: openErr}
	}

	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if err = fn(f); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return &tracerr.IoError{Path: tmp, Op: "sync", Err: err}
	}
	if err = f.Close(); err != nil {
		return &tracerr.IoError{Path: tmp, Op: "close", Err: err}
	}
	if err = os.Rename(tmp, path); err != nil {
		return &tracerr.IoError{Path: path, Op: "rename", Err: err}
	}
	return nil
}

// Package tracerr defines the fatal error kinds the pipeline can return.
// Advisories (logged, never returned) are not part of this package; they go
// through internal/logging instead.
package tracerr

import "fmt"

// IoError wraps a failure to open, read or write a file.
type IoError struct {
	Path string
	Op   string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// MalformedRecord is a syntactically invalid trace line. Fatal in strict
// mode, recoverable (skip + advisory) in lenient mode.
type MalformedRecord struct {
	LineNo int
	Reason string
}

func (e *MalformedRecord) Error() string {
	return fmt.Sprintf("malformed record at line %d: %s", e.LineNo, e.Reason)
}

// TemporalConflict is raised by the reorderer when the logical clock goes
// backwards somewhere in the event stream.
type TemporalConflict struct {
	ObjectID  int64
	DeathClock int64
	Reason    string
}

func (e *TemporalConflict) Error() string {
	return fmt.Sprintf("temporal conflict for object %d (death clock %d): %s", e.ObjectID, e.DeathClock, e.Reason)
}

// InconsistentGraph signals a violated internal invariant (e.g. an attempt
// to kill the same allocation instance twice). Indicates a bug in the
// engine, not in the input trace.
type InconsistentGraph struct {
	ObjectID int64
	Reason   string
}

func (e *InconsistentGraph) Error() string {
	return fmt.Sprintf("inconsistent graph for object %d: %s", e.ObjectID, e.Reason)
}

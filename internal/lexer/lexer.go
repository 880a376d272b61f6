package lexer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hazyhaar/deathtrace/internal/logging"
	"github.com/hazyhaar/deathtrace/internal/tracerr"
)

// Mode selects the lexer's failure policy for malformed fields on an
// otherwise-known record type.
type Mode int

const (
	// Lenient skips a malformed record and logs an advisory.
	Lenient Mode = iota
	// Strict fails the whole run on the first malformed record.
	Strict
)

// Lexer is a streaming, line-oriented trace reader. It never looks
// backwards; it reports LineNo for diagnostics and never retains more than
// the current line in memory.
type Lexer struct {
	scanner *bufio.Scanner
	mode    Mode
	log     *logging.Logger
	lineNo  int
	closer  io.Closer
	path    string
}

// Open opens path and returns a handle ready for Next. The caller must call
// Close when done; Close is also safe to call after an error from Next.
func Open(path string, mode Mode, log *logging.Logger) (*Lexer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &tracerr.IoError{Path: path, Op: "open", Err: err}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Lexer{
		scanner: bufio.NewScanner(f),
		mode:    mode,
		log:     log,
		closer:  f,
		path:    path,
	}, nil
}

// Close releases the underlying file handle. Safe to call multiple times.
func (l *Lexer) Close() error {
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// Next returns the next well-formed record, (nil, nil) at EOF, or a fatal
// error. In Lenient mode, malformed known-tag lines are skipped (logged)
// rather than returned as an error; unknown tags are always skipped with a
// warning, never fatal.
func (l *Lexer) Next() (*Record, error) {
	for l.scanner.Scan() {
		l.lineNo++
		line := l.scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		fields := strings.Fields(trimmed)
		tag := fields[0]
		if len(tag) != 1 {
			l.log.Warning().Int("line", l.lineNo).Str("tag", tag).Log("unknown record tag, skipped")
			continue
		}

		rec, err := parseRecord(Tag(tag[0]), fields[1:], l.lineNo)
		if err != nil {
			if known(Tag(tag[0])) {
				if ferr := l.fail(err.Error()); ferr != nil {
					return nil, ferr
				}
				continue
			}
			l.log.Warning().Int("line", l.lineNo).Str("tag", tag).Log("unknown record tag, skipped")
			continue
		}
		if rec == nil {
			l.log.Warning().Int("line", l.lineNo).Str("tag", tag).Log("unknown record tag, skipped")
			continue
		}
		return rec, nil
	}
	if err := l.scanner.Err(); err != nil {
		return nil, &tracerr.IoError{Path: l.path, Op: "read", Err: err}
	}
	return nil, nil
}

// fail applies the configured Mode to a malformed known-tag line: returns a
// fatal error in Strict mode, logs and returns nil to continue in Lenient
// mode.
func (l *Lexer) fail(reason string) error {
	if l.mode == Strict {
		return &tracerr.MalformedRecord{LineNo: l.lineNo, Reason: reason}
	}
	l.log.Warning().Int("line", l.lineNo).Str("reason", reason).Log("malformed record, skipped")
	return nil
}

func known(t Tag) bool {
	switch t {
	case TagAlloc, TagArrayAlloc, TagUpdate, TagWitness, TagMethodEntry, TagMethodExit, TagDeath:
		return true
	}
	return false
}

// parseRecord parses the fields following the tag. Returns (nil, nil) for
// an unrecognized tag whose fields are all integers, and an error when any
// field is not an integer, whatever the tag; for an unrecognized tag the
// caller treats both outcomes as a warning, never fatal.
func parseRecord(tag Tag, fields []string, lineNo int) (*Record, error) {
	ints := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %d (%q) is not an integer", i, f)
		}
		ints[i] = v
	}

	need := func(n int) error {
		if len(ints) != n {
			return fmt.Errorf("%c record expects %d fields, got %d", tag, n, len(ints))
		}
		return nil
	}

	r := &Record{Tag: tag, LineNo: lineNo}
	switch tag {
	case TagAlloc, TagArrayAlloc:
		if err := need(6); err != nil {
			return nil, err
		}
		r.Obj, r.Size, r.TypeID, r.SiteID, r.Length, r.Thread = ints[0], ints[1], ints[2], ints[3], ints[4], ints[5]
	case TagUpdate:
		if err := need(4); err != nil {
			return nil, err
		}
		r.Obj, r.Obj2, r.FieldID, r.Thread = ints[0], ints[1], ints[2], ints[3]
	case TagWitness:
		if err := need(3); err != nil {
			return nil, err
		}
		r.Obj, r.TypeID, r.Thread = ints[0], ints[1], ints[2]
	case TagMethodEntry:
		if len(ints) != 3 && len(ints) != 4 {
			return nil, fmt.Errorf("M record expects 3 or 4 fields, got %d", len(ints))
		}
		r.MethodID, r.Receiver, r.Thread = ints[0], ints[1], ints[2]
		if len(ints) == 4 {
			r.Clock = ints[3]
		}
	case TagMethodExit:
		if len(ints) != 2 && len(ints) != 3 {
			return nil, fmt.Errorf("E record expects 2 or 3 fields, got %d", len(ints))
		}
		r.MethodID, r.Thread = ints[0], ints[1]
		if len(ints) == 3 {
			r.Clock = ints[2]
		}
	case TagDeath:
		if err := need(3); err != nil {
			return nil, err
		}
		r.Obj, r.Thread, r.Clock = ints[0], ints[1], ints[2]
	default:
		return nil, nil
	}
	return r, nil
}

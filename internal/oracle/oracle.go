// Package oracle projects a reordered record stream into an (alloc, free)
// event sequence and writes it to both a human-readable text sink and a
// machine-readable CSV sink.
package oracle

import (
	"fmt"
	"io"

	"github.com/hazyhaar/deathtrace/internal/lexer"
)

// EventKind is alloc or free, per the oracle's output schema.
type EventKind string

const (
	EventAlloc EventKind = "alloc"
	EventFree  EventKind = "free"
)

// Event is one row of the oracle.
type Event struct {
	Clock    int64
	Kind     EventKind
	ObjectID int64
	Size     int64
	SiteID   int64
	ThreadID int64
	TypeID   int64
	// Diagnostic marks a free synthesized for an object never allocated
	// within this trace (a pre-existing object).
	Diagnostic bool
}

// Stats summarizes a build.
type Stats struct {
	Allocs             int
	Frees              int
	DiagnosticFrees    int
	UnresolvedFreeDrop int // frees omitted because IncludePreExisting is false
}

// Builder projects a reordered stream into oracle events, and writes them
// to the text and CSV sinks given to Build.
type Builder struct {
	// IncludePreExisting controls whether a free for an object never
	// allocated in this trace is emitted (diagnostic) or dropped. Default
	// false: omit.
	IncludePreExisting bool

	known map[int64]allocAttrs
	stats Stats
}

type allocAttrs struct {
	size, site, thread, typeID int64
}

// NewBuilder returns a Builder with the given config.
func NewBuilder(includePreExisting bool) *Builder {
	return &Builder{IncludePreExisting: includePreExisting, known: map[int64]allocAttrs{}}
}

// Stats returns the summary counts of the most recent Build call.
func (b *Builder) Stats() Stats { return b.stats }

// Build streams reordered, writing a text line and a CSV row for every
// event encountered, in the order the stream presents them.
func (b *Builder) Build(reordered []lexer.Record, txtSink, csvSink io.Writer) (Stats, error) {
	b.stats = Stats{}
	tw := newTextWriter(txtSink)
	cw, err := newCSVWriter(csvSink)
	if err != nil {
		return Stats{}, err
	}
	defer cw.Flush()

	var clock int64
	for _, rec := range reordered {
		switch rec.Tag {
		case lexer.TagMethodEntry, lexer.TagMethodExit:
			clock++
			continue
		case lexer.TagAlloc, lexer.TagArrayAlloc:
			b.known[rec.Obj] = allocAttrs{size: rec.Size, site: rec.SiteID, thread: rec.Thread, typeID: rec.TypeID}
			ev := Event{Clock: clock, Kind: EventAlloc, ObjectID: rec.Obj, Size: rec.Size, SiteID: rec.SiteID, ThreadID: rec.Thread, TypeID: rec.TypeID}
			b.stats.Allocs++
			if err := tw.write(ev); err != nil {
				return b.stats, err
			}
			if err := cw.write(ev); err != nil {
				return b.stats, err
			}
		case lexer.TagDeath:
			attrs, known := b.known[rec.Obj]
			ev := Event{Clock: rec.Clock, Kind: EventFree, ObjectID: rec.Obj}
			if known {
				ev.Size, ev.SiteID, ev.ThreadID, ev.TypeID = attrs.size, attrs.site, attrs.thread, attrs.typeID
			} else {
				ev.Diagnostic = true
				if !b.IncludePreExisting {
					b.stats.UnresolvedFreeDrop++
					continue
				}
				b.stats.DiagnosticFrees++
			}
			b.stats.Frees++
			if err := tw.write(ev); err != nil {
				return b.stats, err
			}
			if err := cw.write(ev); err != nil {
				return b.stats, err
			}
		}
	}
	if err := tw.err(); err != nil {
		return b.stats, err
	}
	return b.stats, cw.Error()
}

// textWriter emits the human-readable line format.
type textWriter struct {
	w        io.Writer
	firstErr error
}

func newTextWriter(w io.Writer) *textWriter { return &textWriter{w: w} }

func (t *textWriter) write(e Event) error {
	if t.firstErr != nil {
		return t.firstErr
	}
	_, err := fmt.Fprintf(t.w, "t%d: %s(id=%d, size=%d, site=%d, thread=%d)\n",
		e.Clock, e.Kind, e.ObjectID, e.Size, e.SiteID, e.ThreadID)
	if err != nil {
		t.firstErr = err
	}
	return err
}

func (t *textWriter) err() error { return t.firstErr }

package lexer

import (
	"bufio"
	"fmt"
	"io"
)

// WriteRecord writes rec in the augmented trace format: identical to the
// input schema, except M and E carry the logical clock as a trailing
// field, and D always does (it has no other source).
//
// clock is the logical clock value in effect when rec was emitted into the
// reordered stream; it is ignored for tags that don't carry a clock field.
func WriteRecord(w *bufio.Writer, rec Record, clock int64) error {
	var err error
	switch rec.Tag {
	case TagAlloc, TagArrayAlloc:
		_, err = fmt.Fprintf(w, "%c %d %d %d %d %d %d\n", rec.Tag, rec.Obj, rec.Size, rec.TypeID, rec.SiteID, rec.Length, rec.Thread)
	case TagUpdate:
		_, err = fmt.Fprintf(w, "%c %d %d %d %d\n", rec.Tag, rec.Obj, rec.Obj2, rec.FieldID, rec.Thread)
	case TagWitness:
		_, err = fmt.Fprintf(w, "%c %d %d %d\n", rec.Tag, rec.Obj, rec.TypeID, rec.Thread)
	case TagMethodEntry:
		_, err = fmt.Fprintf(w, "%c %d %d %d %d\n", rec.Tag, rec.MethodID, rec.Receiver, rec.Thread, clock)
	case TagMethodExit:
		_, err = fmt.Fprintf(w, "%c %d %d %d\n", rec.Tag, rec.MethodID, rec.Thread, clock)
	case TagDeath:
		_, err = fmt.Fprintf(w, "%c %d %d %d\n", rec.Tag, rec.Obj, rec.Thread, rec.Clock)
	}
	return err
}

// WriteAll streams records to w, tracking the logical clock as it goes
// (ticking on M and E) so each gets the correct trailing clock field.
func WriteAll(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	var clock int64
	for _, rec := range records {
		switch rec.Tag {
		case TagMethodEntry, TagMethodExit:
			clock++
		}
		if err := WriteRecord(bw, rec, clock); err != nil {
			return err
		}
	}
	return bw.Flush()
}

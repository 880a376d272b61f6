// Package reorder merges the engine's original event stream with its
// out-of-band death records into a single temporally ordered stream.
package reorder

import (
	"fmt"
	"sort"

	"github.com/hazyhaar/deathtrace/internal/engine"
	"github.com/hazyhaar/deathtrace/internal/lexer"
	"github.com/hazyhaar/deathtrace/internal/tracerr"
)

// Reorder merges events (in tracer order) with deaths (in engine discovery
// order): deaths are sorted ascending by death clock, ties broken by
// object id ascending, then each death is emitted immediately after the
// first event whose clock is >= the death's clock. Deaths still pending
// after the last event are appended in order.
//
// Fails with TemporalConflict only if events carries a clock that goes
// backwards.
func Reorder(events []lexer.Record, deaths []engine.DeathRecord) ([]lexer.Record, error) {
	pending := make([]engine.DeathRecord, len(deaths))
	copy(pending, deaths)
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].DeathClock != pending[j].DeathClock {
			return pending[i].DeathClock < pending[j].DeathClock
		}
		return pending[i].ObjectID < pending[j].ObjectID
	})

	out := make([]lexer.Record, 0, len(events)+len(pending))
	var clock int64
	lastExplicit := int64(-1)
	pi := 0

	drainUpTo := func(c int64) {
		for pi < len(pending) && pending[pi].DeathClock <= c {
			d := pending[pi]
			out = append(out, lexer.Record{
				Tag:    lexer.TagDeath,
				Obj:    d.ObjectID,
				Thread: d.AllocThread,
				Clock:  d.DeathClock,
			})
			pi++
		}
	}

	for _, rec := range events {
		switch rec.Tag {
		case lexer.TagMethodEntry, lexer.TagMethodExit:
			clock++
			// If the input already carries an explicit clock (e.g. a
			// round trip re-parse of an augmented trace), verify it's
			// monotone rather than trusting our own tally blindly.
			if rec.Clock != 0 {
				if rec.Clock < lastExplicit {
					return nil, &tracerr.TemporalConflict{
						Reason: fmt.Sprintf(
							"explicit clock field went backwards in the input stream (thread %d, method %d, line %d)",
							rec.Thread, rec.MethodID, rec.LineNo),
					}
				}
				lastExplicit = rec.Clock
			}
		}
		out = append(out, rec)
		drainUpTo(clock)
	}

	// Anything left (including deaths stamped past the trace's last
	// method boundary, which shouldn't happen but is tolerated
	// defensively) is appended in order.
	for ; pi < len(pending); pi++ {
		d := pending[pi]
		out = append(out, lexer.Record{
			Tag:    lexer.TagDeath,
			Obj:    d.ObjectID,
			Thread: d.AllocThread,
			Clock:  d.DeathClock,
		})
	}

	return out, nil
}

package engine

import (
	"github.com/hazyhaar/deathtrace/internal/lexer"
	"github.com/hazyhaar/deathtrace/internal/logging"
	"github.com/hazyhaar/deathtrace/internal/tracerr"
)

// Config controls how an Engine replays a trace.
type Config struct {
	// Path is the trace file, read twice (Pass 1 then Pass 2).
	Path string
	// Mode is the lexer's strict/lenient failure policy.
	Mode lexer.Mode
	// Log receives advisory diagnostics. Defaults to a discard logger if
	// nil.
	Log *logging.Logger
	// NewStore constructs the Store Pass 2 replays against. Defaults to
	// NewMemStore; bounded-memory mode supplies NewSQLiteStore bound to a
	// scratch path instead.
	NewStore func() (Store, error)
}

// Result is everything downstream stages need: the original event stream
// in input order, and the deaths discovered while replaying it, in engine
// discovery order.
type Result struct {
	Events []lexer.Record
	Deaths []DeathRecord
}

// Engine replays a trace twice against an abstract heap state, producing
// death records consistent with the reachability model: an object dies
// once it becomes unreachable from any root and no future witness would
// prove it alive again.
type Engine struct {
	cfg Config
}

// New returns an Engine for cfg. cfg.Log and cfg.NewStore are defaulted if
// unset.
func New(cfg Config) *Engine {
	if cfg.Log == nil {
		cfg.Log = logging.Discard()
	}
	if cfg.NewStore == nil {
		cfg.NewStore = func() (Store, error) { return NewMemStore(), nil }
	}
	return &Engine{cfg: cfg}
}

// Run executes Pass 1 (witness index build) followed by Pass 2 (graph
// replay and death emission).
func (e *Engine) Run() (*Result, error) {
	witness, err := e.pass1()
	if err != nil {
		return nil, err
	}
	return e.pass2(witness)
}

// pass1 streams the trace once, tracking only the logical clock, to build
// the frozen WitnessIndex.
func (e *Engine) pass1() (*WitnessIndex, error) {
	lx, err := lexer.Open(e.cfg.Path, e.cfg.Mode, e.cfg.Log)
	if err != nil {
		return nil, err
	}
	defer lx.Close()

	w := NewWitnessIndex()
	var clock int64
	for {
		rec, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			break
		}
		switch rec.Tag {
		case lexer.TagMethodEntry, lexer.TagMethodExit:
			clock++
		case lexer.TagWitness:
			w.Observe(rec.Obj, clock)
		}
	}
	return w, nil
}

// pass2 replays the trace from scratch against the graph state in store,
// emitting deaths as objects fall out of reach.
func (e *Engine) pass2(witness *WitnessIndex) (*Result, error) {
	store, err := e.cfg.NewStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	lx, err := lexer.Open(e.cfg.Path, e.cfg.Mode, e.cfg.Log)
	if err != nil {
		return nil, err
	}
	defer lx.Close()

	r := &replay{
		store:   store,
		witness: witness,
		log:     e.cfg.Log,
		threads: map[int64]*ThreadState{},
	}

	var result Result
	for {
		rec, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			break
		}
		result.Events = append(result.Events, *rec)
		if err := r.apply(*rec); err != nil {
			return nil, err
		}
		if r.err != nil {
			return nil, r.err
		}
	}

	// End-of-stream cleanup: one final reachability pass, but no
	// force-kill of survivors.
	r.reachability()
	if r.err != nil {
		return nil, r.err
	}

	result.Deaths = r.deaths
	return &result, nil
}

// replay is the mutable Pass 2 state: the abstract heap (via store) plus
// per-thread stacks and the deaths discovered so far.
type replay struct {
	store   Store
	witness *WitnessIndex
	log     *logging.Logger

	clock   int64
	threads map[int64]*ThreadState
	deaths  []DeathRecord

	killed map[int64]struct{} // guards at-most-one death per allocation instance
	err    error              // set by kill() if that guard is ever violated
}

func (r *replay) thread(id int64) *ThreadState {
	t, ok := r.threads[id]
	if !ok {
		t = &ThreadState{ThreadID: id}
		r.threads[id] = t
	}
	return t
}

// apply implements the Pass 2 event handling rules.
func (r *replay) apply(rec lexer.Record) error {
	switch rec.Tag {
	case lexer.TagAlloc, lexer.TagArrayAlloc:
		r.handleAlloc(rec)
	case lexer.TagUpdate:
		r.handleUpdate(rec)
	case lexer.TagMethodEntry:
		r.clock++
		t := r.thread(rec.Thread)
		t.push(newFrame(rec.MethodID, rec.Receiver))
	case lexer.TagMethodExit:
		r.clock++
		t := r.thread(rec.Thread)
		if t.pop() == nil {
			r.log.Debug().Int64("thread", rec.Thread).Log("method exit on empty stack, ignored")
		}
		r.reachability()
	case lexer.TagWitness:
		r.handleWitness(rec)
	case lexer.TagDeath:
		// A D record re-read on round trip carries no further replay
		// obligation: the engine that produced it already reflects its
		// effect in the live set.
	}
	return nil
}

func (r *replay) handleAlloc(rec lexer.Record) {
	if rec.Obj == 0 {
		r.log.Debug().Log("allocation of object id 0 ignored")
		return
	}
	length := rec.Length
	if rec.Tag == lexer.TagAlloc {
		length = 0
	}
	o := &ObjectInfo{
		ID:          rec.Obj,
		TypeID:      rec.TypeID,
		SiteID:      rec.SiteID,
		Size:        rec.Size,
		Length:      length,
		AllocThread: rec.Thread,
		AllocClock:  r.clock,
	}
	if _, exists := r.store.GetObject(rec.Obj); exists {
		r.log.Warning().Int64("object", rec.Obj).Log("object id collision on allocation, prior instance displaced")
	}
	r.store.PutObject(o)
	if r.killed != nil {
		delete(r.killed, rec.Obj) // a re-issued id is a brand-new instance
	}

	t := r.thread(rec.Thread)
	if f := t.top(); f != nil {
		f.Locals[rec.Obj] = struct{}{}
	}
}

func (r *replay) handleUpdate(rec lexer.Record) {
	if rec.Obj == 0 {
		if rec.Obj2 != 0 {
			r.store.AddStaticRoot(rec.Obj2)
		}
		return
	}
	if _, ok := r.store.GetObject(rec.Obj); !ok {
		r.log.Debug().Int64("object", rec.Obj).Log("field update on unknown receiver, edge recorded but will never be reachable")
	}
	if rec.Obj2 != 0 {
		r.store.AddEdge(rec.Obj, rec.Obj2)
	}
}

func (r *replay) handleWitness(rec lexer.Record) {
	t := r.thread(rec.Thread)
	f := t.top()
	if f == nil {
		r.log.Debug().Int64("object", rec.Obj).Log("witness with no active frame, ignored for rooting")
		return
	}
	f.Locals[rec.Obj] = struct{}{}
}

// reachability computes the reachable set by BFS from roots, and kills
// everything else unless a future witness still protects it.
func (r *replay) reachability() {
	live := r.store.LiveIDs()
	if len(live) == 0 {
		return
	}

	reachable := r.bfsFromRoots()

	for _, id := range live {
		if _, ok := reachable[id]; ok {
			continue
		}
		if lastW, ok := r.witness.Last(id); ok && lastW > r.clock {
			continue // will be retroactively proven live later in the replay
		}
		r.kill(id)
	}
}

func (r *replay) bfsFromRoots() map[int64]struct{} {
	reachable := map[int64]struct{}{}
	var frontier []int64

	addRoot := func(id int64) {
		if id == 0 {
			return
		}
		if _, ok := r.store.GetObject(id); !ok {
			return
		}
		if _, seen := reachable[id]; seen {
			return
		}
		reachable[id] = struct{}{}
		frontier = append(frontier, id)
	}

	for _, id := range r.store.StaticRoots() {
		addRoot(id)
	}
	for _, t := range r.threads {
		for _, f := range t.Stack {
			for id := range f.Locals {
				addRoot(id)
			}
		}
	}

	for len(frontier) > 0 {
		id := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		for _, target := range r.store.Targets(id) {
			addRoot(target)
		}
	}
	return reachable
}

func (r *replay) kill(id int64) {
	if r.killed == nil {
		r.killed = map[int64]struct{}{}
	}
	if _, already := r.killed[id]; already {
		// Should be unreachable: DeleteObject removes id from LiveIDs
		// immediately, so a live id can't be offered to kill twice
		// without a re-allocation in between (which clears killed[id]).
		r.err = &tracerr.InconsistentGraph{ObjectID: id, Reason: "attempted to kill the same allocation instance twice"}
		return
	}

	o, ok := r.store.GetObject(id)
	if !ok {
		return
	}
	r.killed[id] = struct{}{}
	r.store.DeleteObject(id)
	r.deaths = append(r.deaths, DeathRecord{
		ObjectID:    id,
		AllocThread: o.AllocThread,
		DeathClock:  r.clock,
	})
}

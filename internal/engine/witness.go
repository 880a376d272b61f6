package engine

// WitnessIndex is the frozen-after-Pass-1 mapping from object id to the
// last logical clock at which it was observed accessed. Populated entirely
// in Pass 1; read-only in Pass 2.
type WitnessIndex struct {
	last map[int64]int64
}

// NewWitnessIndex returns an empty index, ready for Pass 1 to populate.
func NewWitnessIndex() *WitnessIndex {
	return &WitnessIndex{last: map[int64]int64{}}
}

// Observe records a witness of obj at clock, keeping the maximum seen so
// far.
func (w *WitnessIndex) Observe(obj, clock int64) {
	if cur, ok := w.last[obj]; !ok || clock > cur {
		w.last[obj] = clock
	}
}

// Last returns the last witness clock for obj, and whether it was ever
// witnessed at all.
func (w *WitnessIndex) Last(obj int64) (int64, bool) {
	c, ok := w.last[obj]
	return c, ok
}

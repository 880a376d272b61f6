package engine

// memStore is the default in-memory Store: object attributes and edges
// live in side tables keyed by id, never in a pointer graph where
// collisions could alias state.
type memStore struct {
	objects     map[int64]*ObjectInfo
	forward     map[int64]map[int64]struct{} // src -> targets
	reverse     map[int64]map[int64]struct{} // dst -> sources, for O(in-degree) purge
	staticRoots map[int64]struct{}
}

// NewMemStore returns a Store backed entirely by Go maps. This is the
// default for traces whose live object set fits comfortably in memory.
func NewMemStore() Store {
	return &memStore{
		objects:     map[int64]*ObjectInfo{},
		forward:     map[int64]map[int64]struct{}{},
		reverse:     map[int64]map[int64]struct{}{},
		staticRoots: map[int64]struct{}{},
	}
}

func (m *memStore) PutObject(o *ObjectInfo) {
	m.objects[o.ID] = o
	// A displaced prior instance's forward edges must not leak into the
	// new one: reset the edge set and drop the matching reverse entries.
	for target := range m.forward[o.ID] {
		delete(m.reverse[target], o.ID)
	}
	m.forward[o.ID] = map[int64]struct{}{}
}

func (m *memStore) GetObject(id int64) (*ObjectInfo, bool) {
	o, ok := m.objects[id]
	return o, ok
}

func (m *memStore) DeleteObject(id int64) {
	for target := range m.forward[id] {
		delete(m.reverse[target], id)
	}
	delete(m.forward, id)

	for src := range m.reverse[id] {
		delete(m.forward[src], id)
	}
	delete(m.reverse, id)

	delete(m.objects, id)
	delete(m.staticRoots, id)
}

func (m *memStore) LiveIDs() []int64 {
	ids := make([]int64, 0, len(m.objects))
	for id := range m.objects {
		ids = append(ids, id)
	}
	return ids
}

func (m *memStore) AddEdge(src, dst int64) {
	if _, ok := m.forward[src]; !ok {
		m.forward[src] = map[int64]struct{}{}
	}
	m.forward[src][dst] = struct{}{}
	if _, ok := m.reverse[dst]; !ok {
		m.reverse[dst] = map[int64]struct{}{}
	}
	m.reverse[dst][src] = struct{}{}
}

func (m *memStore) Targets(src int64) []int64 {
	set := m.forward[src]
	out := make([]int64, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}

func (m *memStore) AddStaticRoot(id int64) {
	m.staticRoots[id] = struct{}{}
}

func (m *memStore) StaticRoots() []int64 {
	out := make([]int64, 0, len(m.staticRoots))
	for id := range m.staticRoots {
		out = append(out, id)
	}
	return out
}

func (m *memStore) Close() error { return nil }

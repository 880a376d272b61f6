package engine

import (
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "objects.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_PutGetRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	s.PutObject(&ObjectInfo{ID: 1001, TypeID: 7, SiteID: 2, Size: 32, AllocThread: 9, AllocClock: 3})

	got, ok := s.GetObject(1001)
	if !ok {
		t.Fatal("expected object 1001 to be found")
	}
	if got.TypeID != 7 || got.SiteID != 2 || got.Size != 32 || got.AllocThread != 9 || got.AllocClock != 3 {
		t.Errorf("got %+v, want matching fields", got)
	}
}

func TestSQLiteStore_DeleteObjectPurgesEdges(t *testing.T) {
	s := newTestSQLiteStore(t)
	s.PutObject(&ObjectInfo{ID: 1})
	s.PutObject(&ObjectInfo{ID: 2})
	s.AddEdge(1, 2)

	s.DeleteObject(2)

	if targets := s.Targets(1); len(targets) != 0 {
		t.Fatalf("expected edge to deleted object 2 to be purged, got %v", targets)
	}
	if _, ok := s.GetObject(2); ok {
		t.Fatal("expected object 2 to be gone")
	}
}

func TestSQLiteStore_PutObjectResetsForwardEdgesOnCollision(t *testing.T) {
	s := newTestSQLiteStore(t)
	s.PutObject(&ObjectInfo{ID: 1001})
	s.PutObject(&ObjectInfo{ID: 2001})
	s.AddEdge(1001, 2001)

	// A second allocation record for the same id must start the new
	// instance with no forward edges, not inherit the displaced
	// instance's edge into 2001.
	s.PutObject(&ObjectInfo{ID: 1001})

	if targets := s.Targets(1001); len(targets) != 0 {
		t.Fatalf("expected the new instance of 1001 to have no forward edges, got %v", targets)
	}
}

func TestSQLiteStore_StaticRoots(t *testing.T) {
	s := newTestSQLiteStore(t)
	s.PutObject(&ObjectInfo{ID: 5})
	s.AddStaticRoot(5)

	roots := s.StaticRoots()
	if len(roots) != 1 || roots[0] != 5 {
		t.Fatalf("got roots %v, want [5]", roots)
	}

	s.DeleteObject(5)
	if roots := s.StaticRoots(); len(roots) != 0 {
		t.Fatalf("expected static roots cleared on death, got %v", roots)
	}
}

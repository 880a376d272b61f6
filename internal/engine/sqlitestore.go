package engine

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// sqliteStore is the bounded-memory Store: the same per-id side tables as
// memStore, but resident on disk via modernc.org/sqlite instead of Go
// maps, so a trace whose live object set outgrows main memory can still be
// replayed.
//
// Used only when Config.BoundedMemory is set; the default path is
// memStore.
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) a sqlite database at path and
// initializes its schema. path may be a real file for genuine on-disk
// overflow, or ":memory:" for tests.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open object store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping object store: %w", err)
	}
	s := &sqliteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS objects (
		id           INTEGER PRIMARY KEY,
		type_id      INTEGER NOT NULL,
		site_id      INTEGER NOT NULL,
		size         INTEGER NOT NULL,
		length       INTEGER NOT NULL,
		alloc_thread INTEGER NOT NULL,
		alloc_clock  INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS edges (
		src INTEGER NOT NULL,
		dst INTEGER NOT NULL,
		PRIMARY KEY (src, dst)
	);
	CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst);

	CREATE TABLE IF NOT EXISTS static_roots (
		id INTEGER PRIMARY KEY
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *sqliteStore) PutObject(o *ObjectInfo) {
	// A displaced prior instance's forward edges must not leak into the
	// new one, so clear them before the upsert.
	_, _ = s.db.Exec(`DELETE FROM edges WHERE src = ?`, o.ID)
	_, _ = s.db.Exec(`
		INSERT INTO objects (id, type_id, site_id, size, length, alloc_thread, alloc_clock)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type_id = excluded.type_id, site_id = excluded.site_id, size = excluded.size,
			length = excluded.length, alloc_thread = excluded.alloc_thread, alloc_clock = excluded.alloc_clock
	`, o.ID, o.TypeID, o.SiteID, o.Size, o.Length, o.AllocThread, o.AllocClock)
}

func (s *sqliteStore) GetObject(id int64) (*ObjectInfo, bool) {
	o := &ObjectInfo{ID: id}
	err := s.db.QueryRow(`
		SELECT type_id, site_id, size, length, alloc_thread, alloc_clock FROM objects WHERE id = ?
	`, id).Scan(&o.TypeID, &o.SiteID, &o.Size, &o.Length, &o.AllocThread, &o.AllocClock)
	if err != nil {
		return nil, false
	}
	return o, true
}

func (s *sqliteStore) DeleteObject(id int64) {
	tx, err := s.db.Begin()
	if err != nil {
		return
	}
	defer tx.Rollback()

	_, _ = tx.Exec(`DELETE FROM edges WHERE src = ? OR dst = ?`, id, id)
	_, _ = tx.Exec(`DELETE FROM objects WHERE id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM static_roots WHERE id = ?`, id)

	_ = tx.Commit()
}

func (s *sqliteStore) LiveIDs() []int64 {
	rows, err := s.db.Query(`SELECT id FROM objects`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if rows.Scan(&id) == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *sqliteStore) AddEdge(src, dst int64) {
	_, _ = s.db.Exec(`INSERT OR IGNORE INTO edges (src, dst) VALUES (?, ?)`, src, dst)
}

func (s *sqliteStore) Targets(src int64) []int64 {
	rows, err := s.db.Query(`SELECT dst FROM edges WHERE src = ?`, src)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var dst int64
		if rows.Scan(&dst) == nil {
			out = append(out, dst)
		}
	}
	return out
}

func (s *sqliteStore) AddStaticRoot(id int64) {
	_, _ = s.db.Exec(`INSERT OR IGNORE INTO static_roots (id) VALUES (?)`, id)
}

func (s *sqliteStore) StaticRoots() []int64 {
	rows, err := s.db.Query(`SELECT id FROM static_roots`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if rows.Scan(&id) == nil {
			out = append(out, id)
		}
	}
	return out
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

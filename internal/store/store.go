// Package store persists chains and their crafted segments in SQLite.
//
// Each segment row carries its full craft as a JSON document next to the
// columns needed to walk a chain (offset, state, type). The store is also the
// source of the Retrospective handed to each new segment's fabricator.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/satindergrewal/chaincraft/internal/fabricator"
	"github.com/satindergrewal/chaincraft/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a chain or segment does not exist.
var ErrNotFound = errors.New("not found")

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Store is a SQLite-backed chain store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS chains (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			state      TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS segments (
			chain_id   TEXT    NOT NULL REFERENCES chains(id) ON DELETE CASCADE,
			seg_offset INTEGER NOT NULL,
			id         TEXT    NOT NULL UNIQUE,
			state      TEXT    NOT NULL,
			type       TEXT    NOT NULL,
			craft      TEXT    NOT NULL,
			updated_at TEXT    NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (chain_id, seg_offset)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// --- Chains ---

// CreateChain stores a new Draft chain under a unique name.
func (s *Store) CreateChain(name string) (model.Chain, error) {
	c := model.Chain{ID: uuid.NewString(), Name: name, State: model.ChainDraft}
	if _, err := s.db.Exec(`INSERT INTO chains (id, name, state) VALUES (?, ?, ?)`, c.ID, c.Name, c.State); err != nil {
		return model.Chain{}, fmt.Errorf("store: create chain %q: %w", name, err)
	}
	return c, nil
}

// Chain loads a chain by id.
func (s *Store) Chain(id string) (model.Chain, error) {
	return s.scanChain(s.db.QueryRow(`SELECT id, name, state FROM chains WHERE id = ?`, id), id)
}

// ChainByName loads a chain by its unique name.
func (s *Store) ChainByName(name string) (model.Chain, error) {
	return s.scanChain(s.db.QueryRow(`SELECT id, name, state FROM chains WHERE name = ?`, name), name)
}

func (s *Store) scanChain(row *sql.Row, key string) (model.Chain, error) {
	var c model.Chain
	err := row.Scan(&c.ID, &c.Name, &c.State)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("chain %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return c, fmt.Errorf("store: chain %q: %w", key, err)
	}
	return c, nil
}

// UpdateChainState moves a chain through its lifecycle. Transitions the
// lifecycle does not allow are rejected.
func (s *Store) UpdateChainState(id string, to model.ChainState) (model.Chain, error) {
	c, err := s.Chain(id)
	if err != nil {
		return c, err
	}
	if err := c.Transition(to); err != nil {
		return c, err
	}
	if _, err := s.db.Exec(`UPDATE chains SET state = ? WHERE id = ?`, c.State, c.ID); err != nil {
		return c, fmt.Errorf("store: update chain %q: %w", id, err)
	}
	return c, nil
}

// --- Segments ---

// SaveSegment inserts or replaces the segment at its chain offset.
func (s *Store) SaveSegment(craft model.SegmentCraft) error {
	seg := craft.Segment
	if seg.ID == "" || seg.ChainID == "" {
		return fmt.Errorf("store: segment %d has no id or chain", seg.Offset)
	}
	doc, err := json.Marshal(craft)
	if err != nil {
		return fmt.Errorf("store: encode segment %d: %w", seg.Offset, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO segments (chain_id, seg_offset, id, state, type, craft)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (chain_id, seg_offset) DO UPDATE SET
			id = excluded.id,
			state = excluded.state,
			type = excluded.type,
			craft = excluded.craft,
			updated_at = datetime('now')`,
		seg.ChainID, seg.Offset, seg.ID, seg.State, seg.Type, string(doc))
	if err != nil {
		return fmt.Errorf("store: save segment %d: %w", seg.Offset, err)
	}
	return nil
}

// LastSegment returns the segment with the highest offset in the chain, in
// any state. The boolean is false for a chain without segments.
func (s *Store) LastSegment(chainID string) (model.SegmentCraft, bool, error) {
	craft, err := s.scanCraft(s.db.QueryRow(
		`SELECT craft FROM segments WHERE chain_id = ? ORDER BY seg_offset DESC LIMIT 1`, chainID))
	if errors.Is(err, ErrNotFound) {
		return craft, false, nil
	}
	return craft, err == nil, err
}

// Segment loads the segment at an offset of the chain.
func (s *Store) Segment(chainID string, offset int) (model.SegmentCraft, error) {
	craft, err := s.scanCraft(s.db.QueryRow(
		`SELECT craft FROM segments WHERE chain_id = ? AND seg_offset = ?`, chainID, offset))
	if errors.Is(err, ErrNotFound) {
		return craft, fmt.Errorf("segment %d: %w", offset, ErrNotFound)
	}
	return craft, err
}

// Segments lists every segment of the chain in offset order.
func (s *Store) Segments(chainID string) ([]model.SegmentCraft, error) {
	return s.queryCrafts(`SELECT craft FROM segments WHERE chain_id = ? ORDER BY seg_offset`, chainID)
}

// Retrospective gathers the crafted segments a new segment may look back
// on: everything from the most recent segment that did not continue its
// predecessor up to the latest, in offset order.
func (s *Store) Retrospective(chainID string) (*fabricator.Retrospective, error) {
	recent, err := s.queryCrafts(
		`SELECT craft FROM segments WHERE chain_id = ? AND state IN (?, ?, ?) ORDER BY seg_offset DESC`,
		chainID, model.SegmentCrafted, model.SegmentDubbing, model.SegmentDubbed)
	if err != nil {
		return nil, err
	}
	var kept []model.SegmentCraft
	for _, c := range recent {
		kept = append(kept, c)
		if c.Segment.Type != model.SegmentContinue {
			break
		}
	}
	return fabricator.NewRetrospective(kept), nil
}

func (s *Store) scanCraft(row *sql.Row) (model.SegmentCraft, error) {
	var craft model.SegmentCraft
	var doc string
	err := row.Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return craft, ErrNotFound
	}
	if err != nil {
		return craft, fmt.Errorf("store: read segment: %w", err)
	}
	if err := json.Unmarshal([]byte(doc), &craft); err != nil {
		return craft, fmt.Errorf("store: decode segment: %w", err)
	}
	return craft, nil
}

func (s *Store) queryCrafts(query string, args ...any) ([]model.SegmentCraft, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query segments: %w", err)
	}
	defer rows.Close()

	var out []model.SegmentCraft
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("store: read segment: %w", err)
		}
		var craft model.SegmentCraft
		if err := json.Unmarshal([]byte(doc), &craft); err != nil {
			return nil, fmt.Errorf("store: decode segment: %w", err)
		}
		out = append(out, craft)
	}
	return out, rows.Err()
}

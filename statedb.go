package main

import (
	"database/sql"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver, same side-effect import as the teacher's readers.go
)

// StateDB is the optional `--state-db PATH` checkpoint store (§6):
// persisting a Merge's accumulated result between separate CLI
// invocations, so a later `optimize` run resumes incremental merging
// instead of starting from a single input DAG (§4.2 "Incremental
// merge" extended across process boundaries). Table layout mirrors
// DAGBIN's own node/edge row shape (fileio_binary.go) rather than the
// Merge accumulator's internal sharded hash tables directly: on load,
// the checkpoint DAG is fed back through Merge.AddMany, which
// re-derives canonical labels and interning from its content, so only
// the materialized result needs to survive the process boundary.
type StateDB struct {
	db *sql.DB
}

// OpenStateDB opens (creating if absent) the sqlite checkpoint file at
// path and ensures its schema exists.
func OpenStateDB(path string) (*StateDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, wrapErr(ErrInputFormat, "opening state db "+path, err)
	}
	s := &StateDB{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *StateDB) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)`,
		`CREATE TABLE IF NOT EXISTS nodes (id INTEGER PRIMARY KEY, mutations TEXT, sample_id TEXT)`,
		`CREATE TABLE IF NOT EXISTS edges (id INTEGER PRIMARY KEY, parent INTEGER, child INTEGER, clade_idx INTEGER, mutations TEXT)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return wrapErr(ErrInputFormat, "initializing state db schema", err)
		}
	}
	return nil
}

func (s *StateDB) Close() error { return s.db.Close() }

// encodeMutationEntries renders an EdgeMutations set as a compact
// "pos:par:child,pos:par:child" string for storage in a single TEXT
// column, avoiding a third normalized table for what is always read
// back as a whole row.
func encodeMutationEntries(entries []MutationEntry) string {
	parts := make([]string, len(entries))
	for i, m := range entries {
		parts[i] = strconv.Itoa(int(m.Pos)) + ":" + m.ParentBase.String() + ":" + m.ChildBase.String()
	}
	return strings.Join(parts, ",")
}

func decodeMutationEntries(s string) ([]MutationEntry, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	entries := make([]MutationEntry, 0, len(parts))
	for _, p := range parts {
		fields := strings.Split(p, ":")
		if len(fields) != 3 {
			return nil, newErr(ErrInputFormat, "malformed state db mutation entry: "+p)
		}
		posN, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, wrapErr(ErrInputFormat, "parsing state db mutation position", err)
		}
		par, err := BaseFromByte(fields[1][0])
		if err != nil {
			return nil, err
		}
		child, err := BaseFromByte(fields[2][0])
		if err != nil {
			return nil, err
		}
		entries = append(entries, MutationEntry{Pos: MutationPosition(posN), ParentBase: par, ChildBase: child})
	}
	return entries, nil
}

// Save writes d as the new checkpoint, replacing any prior content.
func (s *StateDB) Save(d *MADAG) error {
	tx, err := s.db.Begin()
	if err != nil {
		return wrapErr(ErrInputFormat, "beginning state db transaction", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM meta", "DELETE FROM nodes", "DELETE FROM edges"} {
		if _, err := tx.Exec(stmt); err != nil {
			return wrapErr(ErrInputFormat, "clearing state db", err)
		}
	}
	if _, err := tx.Exec("INSERT INTO meta (key, value) VALUES (?, ?), (?, ?)",
		"ref_name", d.Ref.Name, "ref_seq", d.Ref.Raw); err != nil {
		return wrapErr(ErrInputFormat, "writing state db reference row", err)
	}

	nodeStmt, err := tx.Prepare("INSERT INTO nodes (id, mutations, sample_id) VALUES (?, ?, ?)")
	if err != nil {
		return wrapErr(ErrInputFormat, "preparing state db node insert", err)
	}
	defer nodeStmt.Close()
	for _, n := range d.Nodes {
		var sampleId interface{}
		if n.SampleId != nil {
			sampleId = *n.SampleId
		}
		if _, err := nodeStmt.Exec(int(n.Id), "", sampleId); err != nil {
			return wrapErr(ErrInputFormat, "writing state db node row", err)
		}
	}

	edgeStmt, err := tx.Prepare("INSERT INTO edges (id, parent, child, clade_idx, mutations) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return wrapErr(ErrInputFormat, "preparing state db edge insert", err)
	}
	defer edgeStmt.Close()
	for _, e := range d.Edges {
		if _, err := edgeStmt.Exec(int(e.Id), int(e.Parent), int(e.Child), e.CladeIdx, encodeMutationEntries(e.Mutations.Entries())); err != nil {
			return wrapErr(ErrInputFormat, "writing state db edge row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapErr(ErrInputFormat, "committing state db transaction", err)
	}
	return nil
}

// Load reconstructs the checkpointed MADAG, or returns (nil, nil) if
// the database has no checkpoint yet (a fresh --state-db file).
func (s *StateDB) Load() (*MADAG, error) {
	row := s.db.QueryRow("SELECT value FROM meta WHERE key = 'ref_name'")
	var refName string
	if err := row.Scan(&refName); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, wrapErr(ErrInputFormat, "reading state db reference name", err)
	}
	var refSeq string
	if err := s.db.QueryRow("SELECT value FROM meta WHERE key = 'ref_seq'").Scan(&refSeq); err != nil {
		return nil, wrapErr(ErrInputFormat, "reading state db reference sequence", err)
	}
	ref, err := NewReference(refName, refSeq)
	if err != nil {
		return nil, err
	}
	d := NewMADAG(ref)

	nodeRows, err := s.db.Query("SELECT id, sample_id FROM nodes ORDER BY id")
	if err != nil {
		return nil, wrapErr(ErrInputFormat, "reading state db nodes", err)
	}
	defer nodeRows.Close()
	for nodeRows.Next() {
		var id int
		var sampleId sql.NullString
		if err := nodeRows.Scan(&id, &sampleId); err != nil {
			return nil, wrapErr(ErrInputFormat, "scanning state db node row", err)
		}
		for id >= len(d.Nodes) {
			d.AddNode(nil, nil)
		}
		if sampleId.Valid {
			s := sampleId.String
			d.Node(NodeId(id)).SampleId = &s
		}
	}
	if err := nodeRows.Err(); err != nil {
		return nil, wrapErr(ErrInputFormat, "reading state db nodes", err)
	}

	edgeRows, err := s.db.Query("SELECT id, parent, child, clade_idx, mutations FROM edges ORDER BY id")
	if err != nil {
		return nil, wrapErr(ErrInputFormat, "reading state db edges", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var id, parent, child, cladeIdx int
		var mutations string
		if err := edgeRows.Scan(&id, &parent, &child, &cladeIdx, &mutations); err != nil {
			return nil, wrapErr(ErrInputFormat, "scanning state db edge row", err)
		}
		entries, err := decodeMutationEntries(mutations)
		if err != nil {
			return nil, err
		}
		edgeId, err := d.AddEdge(NodeId(parent), NodeId(child), cladeIdx)
		if err != nil {
			return nil, err
		}
		d.SetMutations(edgeId, EdgeMutations{entries: entries})
	}
	if err := edgeRows.Err(); err != nil {
		return nil, wrapErr(ErrInputFormat, "reading state db edges", err)
	}

	if err := recomputeCGFromEdgeMutations(d); err != nil {
		return nil, err
	}
	return d, nil
}

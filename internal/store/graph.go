package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, language) VALUES (?, ?)",
		f.Path, f.Language,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

func (s *Store) FileByID(id int64) (*File, error) {
	f := &File{}
	err := s.db.QueryRow(
		"SELECT id, path, language FROM files WHERE id = ?", id,
	).Scan(&f.ID, &f.Path, &f.Language)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by id: %w", err)
	}
	return f, nil
}

// --- Node operations ---

const nodeCols = `id, file_id, kind, symbol, syntax_type, placement, start_byte, end_byte,
	start_line, start_col, end_line, end_col, scope_id`

// InsertNode adds n to the graph and returns its ID. Rules may match the
// same syntax node more than once, so inserts are idempotent per span:
//   - a scope or definition with the same kind and byte span as an existing
//     node returns the existing ID, whatever its syntax type
//   - a reference covering exactly the span of an existing definition is the
//     definition itself and returns the definition's ID
func (s *Store) InsertNode(n *Node) (int64, error) {
	if n.Placement == "" {
		n.Placement = PlacementLocal
	}

	lookupKind := n.Kind
	if n.Kind == KindReference {
		lookupKind = KindDefinition
	}
	var existing int64
	err := s.db.QueryRow(
		`SELECT id FROM nodes WHERE file_id = ? AND kind = ? AND start_byte = ? AND end_byte = ?
		 ORDER BY id LIMIT 1`,
		n.FileID, lookupKind, n.StartByte, n.EndByte,
	).Scan(&existing)
	switch {
	case err == nil:
		n.ID = existing
		return existing, nil
	case err != sql.ErrNoRows:
		return 0, fmt.Errorf("lookup node: %w", err)
	}
	if n.Kind == KindReference {
		// Repeated reference matches collapse too.
		err = s.db.QueryRow(
			`SELECT id FROM nodes WHERE file_id = ? AND kind = ? AND start_byte = ? AND end_byte = ?`,
			n.FileID, KindReference, n.StartByte, n.EndByte,
		).Scan(&existing)
		if err == nil {
			n.ID = existing
			return existing, nil
		}
		if err != sql.ErrNoRows {
			return 0, fmt.Errorf("lookup reference: %w", err)
		}
	}

	res, err := s.db.Exec(
		`INSERT INTO nodes (file_id, kind, symbol, syntax_type, placement, start_byte, end_byte,
			start_line, start_col, end_line, end_col, scope_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.FileID, n.Kind, n.Symbol, n.SyntaxType, n.Placement, n.StartByte, n.EndByte,
		n.StartLine, n.StartCol, n.EndLine, n.EndCol, n.ScopeID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert node: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	n.ID = id
	return id, nil
}

// NodesByFile returns a file's nodes in insertion order.
func (s *Store) NodesByFile(fileID int64) ([]*Node, error) {
	rows, err := s.db.Query("SELECT "+nodeCols+" FROM nodes WHERE file_id = ? ORDER BY id", fileID)
	if err != nil {
		return nil, fmt.Errorf("nodes by file: %w", err)
	}
	defer rows.Close()
	var nodes []*Node
	for rows.Next() {
		n := &Node{}
		var symbol, syntaxType, placement sql.NullString
		if err := rows.Scan(&n.ID, &n.FileID, &n.Kind, &symbol, &syntaxType, &placement,
			&n.StartByte, &n.EndByte, &n.StartLine, &n.StartCol, &n.EndLine, &n.EndCol, &n.ScopeID); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Symbol = symbol.String
		n.SyntaxType = syntaxType.String
		n.Placement = placement.String
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// --- Edge operations ---

func (s *Store) InsertEdge(e *Edge) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO edges (file_id, source_id, sink_id, kind) VALUES (?, ?, ?, ?)",
		e.FileID, e.SourceID, e.SinkID, e.Kind,
	)
	if err != nil {
		return 0, fmt.Errorf("insert edge: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	return id, nil
}

// EdgesByFile returns a file's edges in insertion order.
func (s *Store) EdgesByFile(fileID int64) ([]*Edge, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, source_id, sink_id, kind FROM edges WHERE file_id = ? ORDER BY id", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("edges by file: %w", err)
	}
	defer rows.Close()
	var edges []*Edge
	for rows.Next() {
		e := &Edge{}
		if err := rows.Scan(&e.ID, &e.FileID, &e.SourceID, &e.SinkID, &e.Kind); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

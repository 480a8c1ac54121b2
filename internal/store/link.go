package store

import (
	"fmt"
	"sort"
)

// Link assigns every non-root node of a file to its enclosing scope and
// records the parent and defines edges. It must run after all nodes of the
// file have been inserted.
//
// The enclosing scope of a node is the narrowest scope (or the root) whose
// span covers it. Scopes with identical spans nest by insertion order.
// Definitions placed with PlacementParent skip one level outward.
func (s *Store) Link(fileID int64) error {
	nodes, err := s.NodesByFile(fileID)
	if err != nil {
		return err
	}

	var scopes []*Node
	for _, n := range nodes {
		if n.Kind == KindRoot || n.Kind == KindScope {
			scopes = append(scopes, n)
		}
	}

	parentOf := make(map[int64]int64, len(scopes))
	for _, sc := range scopes {
		if sc.Kind == KindRoot {
			continue
		}
		if p := narrowestScope(scopes, sc); p != nil {
			parentOf[sc.ID] = p.ID
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, n := range nodes {
		if n.Kind == KindRoot {
			continue
		}
		var scopeID int64
		switch n.Kind {
		case KindScope:
			id, ok := parentOf[n.ID]
			if !ok {
				continue
			}
			scopeID = id
		default:
			sc := narrowestScope(scopes, n)
			if sc == nil {
				continue
			}
			scopeID = sc.ID
			if n.Kind == KindDefinition && n.Placement == PlacementParent {
				if p, ok := parentOf[scopeID]; ok {
					scopeID = p
				}
			}
		}

		if _, err := tx.Exec("UPDATE nodes SET scope_id = ? WHERE id = ?", scopeID, n.ID); err != nil {
			return fmt.Errorf("set scope: %w", err)
		}
		n.ScopeID = &scopeID

		var kind string
		switch n.Kind {
		case KindScope:
			kind = EdgeParent
		case KindDefinition:
			kind = EdgeDefines
		default:
			continue
		}
		if _, err := tx.Exec(
			"INSERT INTO edges (file_id, source_id, sink_id, kind) VALUES (?, ?, ?, ?)",
			fileID, n.ID, scopeID, kind,
		); err != nil {
			return fmt.Errorf("insert %s edge: %w", kind, err)
		}
	}

	return tx.Commit()
}

// narrowestScope returns the smallest scope other than n that covers n.
// When spans tie, a scope only encloses nodes inserted after it.
func narrowestScope(scopes []*Node, n *Node) *Node {
	var best *Node
	for _, sc := range scopes {
		if sc.ID == n.ID || !sc.Contains(n) {
			continue
		}
		if sc.Width() == n.Width() && sc.ID > n.ID {
			continue
		}
		if best == nil || sc.Width() < best.Width() ||
			(sc.Width() == best.Width() && sc.ID > best.ID) {
			best = sc
		}
	}
	return best
}

// Resolve binds each reference of a file to a definition with the same
// symbol, searching the reference's scope chain from the innermost scope
// outward. Within a scope the last definition starting before the
// reference wins, otherwise the first one. Returns the number of references
// resolved. Link must have run first.
func (s *Store) Resolve(fileID int64) (int, error) {
	nodes, err := s.NodesByFile(fileID)
	if err != nil {
		return 0, err
	}

	parentOf := make(map[int64]int64)
	defs := make(map[int64]map[string][]*Node)
	var refs []*Node
	for _, n := range nodes {
		if n.ScopeID == nil {
			continue
		}
		switch n.Kind {
		case KindScope:
			parentOf[n.ID] = *n.ScopeID
		case KindDefinition:
			byName, ok := defs[*n.ScopeID]
			if !ok {
				byName = make(map[string][]*Node)
				defs[*n.ScopeID] = byName
			}
			byName[n.Symbol] = append(byName[n.Symbol], n)
		case KindReference:
			refs = append(refs, n)
		}
	}
	for _, byName := range defs {
		for _, list := range byName {
			sort.Slice(list, func(i, j int) bool { return list[i].StartByte < list[j].StartByte })
		}
	}

	resolved := 0
	for _, ref := range refs {
		target := lookupDefinition(defs, parentOf, *ref.ScopeID, ref)
		if target == nil {
			continue
		}
		if _, err := s.InsertEdge(&Edge{
			FileID:   fileID,
			SourceID: ref.ID,
			SinkID:   target.ID,
			Kind:     EdgeResolves,
		}); err != nil {
			return resolved, err
		}
		resolved++
	}
	return resolved, nil
}

func lookupDefinition(defs map[int64]map[string][]*Node, parentOf map[int64]int64, scopeID int64, ref *Node) *Node {
	seen := make(map[int64]bool)
	for {
		if seen[scopeID] {
			return nil
		}
		seen[scopeID] = true

		if candidates := defs[scopeID][ref.Symbol]; len(candidates) > 0 {
			pick := candidates[0]
			for _, c := range candidates {
				if c.StartByte <= ref.StartByte {
					pick = c
				}
			}
			return pick
		}
		parent, ok := parentOf[scopeID]
		if !ok {
			return nil
		}
		scopeID = parent
	}
}

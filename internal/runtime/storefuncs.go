package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/treescan/internal/store"
)

// makeAddNodeFn creates the "add_node" host function bound to one file.
// Risor scripts cannot construct Go struct pointers, so the rule map and
// node proxy are turned into a store.Node on the Go side.
//
// add_node(rule, node) → int (node ID)
//
// rule keys: kind ("scope", "definition", "reference"), placement
// ("local" or "parent", definitions only).
func makeAddNodeFn(s *store.Store, ss *sourceStore, fileID int64) *object.Builtin {
	return object.NewBuiltin("add_node", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("add_node", 2, len(args))
		}
		rule, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("add_node: %v", err)
		}
		node, errObj := nodeArg("add_node", args[1])
		if errObj != nil {
			return errObj
		}

		kind := getString(rule, "kind")
		switch kind {
		case store.KindScope, store.KindDefinition, store.KindReference:
		default:
			return object.Errorf("add_node: unknown node kind %q", kind)
		}
		placement := getStringDefault(rule, "placement", store.PlacementLocal)
		if placement != store.PlacementLocal && placement != store.PlacementParent {
			return object.Errorf("add_node: unknown placement %q", placement)
		}

		start, end := node.StartPoint(), node.EndPoint()
		n := &store.Node{
			FileID:     fileID,
			Kind:       kind,
			SyntaxType: node.Type(),
			Placement:  placement,
			StartByte:  int(node.StartByte()),
			EndByte:    int(node.EndByte()),
			StartLine:  int(start.Row),
			StartCol:   int(start.Column),
			EndLine:    int(end.Row),
			EndCol:     int(end.Column),
		}
		if kind != store.KindScope {
			src, found := ss.sourceForNode(node)
			if !found {
				return object.Errorf("add_node: no source found for node's tree")
			}
			n.Symbol = node.Content(src)
		}

		id, insertErr := s.InsertNode(n)
		if insertErr != nil {
			return object.Errorf("add_node: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getStringDefault(m map[string]object.Object, key, def string) string {
	v := getString(m, key)
	if v == "" {
		return def
	}
	return v
}

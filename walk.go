package treescan

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/treescan/internal/runtime"
)

// Document is one source file's content, read once and discarded after its
// tree has been rendered.
type Document struct {
	Path     string
	Language runtime.Language
	Content  []byte
}

// Parse builds a syntax tree for doc. Source with syntax errors still yields
// a tree containing ERROR or missing nodes. The caller must Close the tree.
func Parse(ctx context.Context, doc Document, grammar *sitter.Language) (*sitter.Tree, error) {
	if grammar == nil {
		return nil, fmt.Errorf("%w: %s: no grammar for %s", ErrNoTree, doc.Path, doc.Language)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, doc.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoTree, doc.Path, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTree, doc.Path)
	}
	if tree.RootNode() == nil {
		tree.Close()
		return nil, fmt.Errorf("%w: %s: no root node", ErrNoTree, doc.Path)
	}
	return tree, nil
}

// Walk visits root and all of its descendants, named or not, in pre-order,
// left to right. depth is 0 for root and grows by one per level.
func Walk(root *sitter.Node, visit func(n *sitter.Node, depth int)) {
	if root == nil {
		return
	}

	type frame struct {
		node  *sitter.Node
		depth int
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visit(f.node, f.depth)

		// Push in reverse so the leftmost child is popped first.
		for i := int(f.node.ChildCount()) - 1; i >= 0; i-- {
			if c := f.node.Child(i); c != nil {
				stack = append(stack, frame{node: c, depth: f.depth + 1})
			}
		}
	}
}

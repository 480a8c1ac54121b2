package treescan

import (
	"context"
	"fmt"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/treescan/internal/runtime"
	"github.com/jward/treescan/internal/store"
)

// Graph is the scope graph built for one file, in insertion order.
type Graph struct {
	Nodes    []*store.Node
	Edges    []*store.Edge
	Resolved int
}

// graphBuilder turns a parsed tree into a scope graph by running the
// language's name-binding rules and linking the nodes they produce.
type graphBuilder struct {
	store   *store.Store
	runtime *runtime.Runtime
	logger  *slog.Logger
}

// Build runs the rules for doc over tree. The file's rows are removed from
// the store before Build returns; only the returned Graph survives.
func (b *graphBuilder) Build(ctx context.Context, doc Document, tree *sitter.Tree) (*Graph, error) {
	fileID, err := b.store.InsertFile(&store.File{Path: doc.Path, Language: doc.Language.String()})
	if err != nil {
		return nil, fmt.Errorf("graph: %s: %w", doc.Path, err)
	}
	defer func() {
		if err := b.store.DeleteFileData(fileID); err != nil {
			b.logger.Error("failed to drop graph data", "path", doc.Path, "error", err)
		}
	}()

	root := tree.RootNode()
	end := root.EndPoint()
	endByte := int(root.EndByte())
	if len(doc.Content) > endByte {
		endByte = len(doc.Content)
	}
	if _, err := b.store.InsertNode(&store.Node{
		FileID:     fileID,
		Kind:       store.KindRoot,
		SyntaxType: root.Type(),
		EndByte:    endByte,
		EndLine:    int(end.Row),
		EndCol:     int(end.Column),
	}); err != nil {
		return nil, fmt.Errorf("graph: %s: root node: %w", doc.Path, err)
	}

	if err := b.runtime.BuildGraph(ctx, fileID, doc.Path, doc.Language, tree, doc.Content); err != nil {
		return nil, fmt.Errorf("graph: %s: %w", doc.Path, err)
	}
	if err := b.store.Link(fileID); err != nil {
		return nil, fmt.Errorf("graph: %s: link: %w", doc.Path, err)
	}
	resolved, err := b.store.Resolve(fileID)
	if err != nil {
		return nil, fmt.Errorf("graph: %s: resolve: %w", doc.Path, err)
	}

	g := &Graph{Resolved: resolved}
	if g.Nodes, err = b.store.NodesByFile(fileID); err != nil {
		return nil, fmt.Errorf("graph: %s: %w", doc.Path, err)
	}
	if g.Edges, err = b.store.EdgesByFile(fileID); err != nil {
		return nil, fmt.Errorf("graph: %s: %w", doc.Path, err)
	}

	b.logger.Debug("built scope graph",
		"path", doc.Path,
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"resolved", resolved,
	)
	return g, nil
}

// renderGraph prints every node, then every edge, of g.
func renderGraph(r *Renderer, g *Graph) {
	for _, n := range g.Nodes {
		r.GraphNode(n)
	}
	for _, e := range g.Edges {
		r.GraphEdge(e)
	}
}

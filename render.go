package treescan

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/treescan/internal/store"
)

// identifierKinds are the node types whose source text is printed after
// the type name.
var identifierKinds = map[string]bool{
	"identifier":       true,
	"type_identifier":  true,
	"field_identifier": true,
}

// IsIdentifierKind reports whether nodes of the given type render their text.
func IsIdentifierKind(kind string) bool {
	return identifierKinds[kind]
}

// Renderer formats syntax nodes and graph records as text lines. The first
// write error sticks; later calls are no-ops and Err reports it.
type Renderer struct {
	w      io.Writer
	header *color.Color
	kind   *color.Color
	text   *color.Color
	err    error
}

// NewRenderer returns a Renderer writing to w. When colorize is false no
// escape sequences are emitted regardless of the terminal.
func NewRenderer(w io.Writer, colorize bool) *Renderer {
	r := &Renderer{
		w:      w,
		header: color.New(color.FgYellow, color.Bold),
		kind:   color.New(color.FgYellow),
		text:   color.New(color.FgHiCyan),
	}
	for _, c := range []*color.Color{r.header, r.kind, r.text} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// Err returns the first write error, if any.
func (r *Renderer) Err() error {
	return r.err
}

func (r *Renderer) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

// Header starts a file's section.
func (r *Renderer) Header(path string) {
	r.printf("%s\n", r.header.Sprint("File: "+path))
}

// Node renders one visited node. Unnamed nodes produce no output.
func (r *Renderer) Node(n *sitter.Node, depth int, src []byte) {
	if n == nil || !n.IsNamed() {
		return
	}
	line := strings.Repeat("  ", depth) + r.kind.Sprint(n.Type())
	if IsIdentifierKind(n.Type()) {
		line += " -> " + r.text.Sprint(nodeText(n, src))
	}
	r.printf("%s\n", line)
}

// nodeText slices the node's byte range out of src.
func nodeText(n *sitter.Node, src []byte) string {
	start, end := int(n.StartByte()), int(n.EndByte())
	if start > end || end > len(src) {
		return ""
	}
	return string(src[start:end])
}

// GraphNode renders a scope graph node. Scopes and the root show their
// syntax type; definitions and references show their symbol.
func (r *Renderer) GraphNode(n *store.Node) {
	label := n.SyntaxType
	if n.Kind == store.KindDefinition || n.Kind == store.KindReference {
		label = r.text.Sprint(n.Symbol)
	}
	r.printf("Node: #%d %s %s [%d:%d-%d:%d]\n",
		n.ID, r.kind.Sprint(n.Kind), label,
		n.StartLine, n.StartCol, n.EndLine, n.EndCol)
}

// GraphEdge renders a scope graph edge.
func (r *Renderer) GraphEdge(e *store.Edge) {
	r.printf("Edge: #%d -> #%d %s\n", e.SourceID, e.SinkID, e.Kind)
}

package treescan

import (
	"bytes"
	"errors"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"

	"github.com/jward/treescan/internal/runtime"
	"github.com/jward/treescan/internal/store"
)

func renderTree(t *testing.T, lang runtime.Language, src string, colorize bool) string {
	t.Helper()
	tree := parseDoc(t, lang, src)
	var buf bytes.Buffer
	r := NewRenderer(&buf, colorize)
	Walk(tree.RootNode(), func(n *sitter.Node, depth int) {
		r.Node(n, depth, []byte(src))
	})
	assert.NoError(t, r.Err())
	return buf.String()
}

func TestRenderer_SkipsUnnamedNodes(t *testing.T) {
	got := renderTree(t, runtime.Rust, "fn foo() {}", false)
	assert.NotContains(t, got, "fn\n")
	assert.NotContains(t, got, "(")
	assert.NotContains(t, got, "{")
}

func TestRenderer_IdentifierTextIsExact(t *testing.T) {
	src := "function añadir(ünï: number) { return ünï; }"
	got := renderTree(t, runtime.TypeScript, src, false)
	assert.Contains(t, got, "identifier -> añadir\n")
	assert.Contains(t, got, "identifier -> ünï\n")
}

func TestRenderer_TypeIdentifier(t *testing.T) {
	got := renderTree(t, runtime.TypeScript, "let p: Point = make();", false)
	assert.Contains(t, got, "type_identifier -> Point\n")
}

func TestRenderer_Color(t *testing.T) {
	plain := renderTree(t, runtime.Rust, "fn foo() {}", false)
	assert.NotContains(t, plain, "\x1b[")

	colored := renderTree(t, runtime.Rust, "fn foo() {}", true)
	assert.Contains(t, colored, "\x1b[33m")
	assert.Contains(t, colored, "\x1b[96mfoo")
}

func TestRenderer_Header(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)
	r.Header("src/main.rs")
	assert.Equal(t, "File: src/main.rs\n", buf.String())
}

func TestRenderer_GraphLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)
	r.GraphNode(&store.Node{ID: 2, Kind: store.KindScope, SyntaxType: "block", StartLine: 0, StartCol: 9, EndLine: 0, EndCol: 11})
	r.GraphNode(&store.Node{ID: 3, Kind: store.KindDefinition, Symbol: "foo", SyntaxType: "identifier", StartCol: 3, EndCol: 6})
	r.GraphEdge(&store.Edge{SourceID: 4, SinkID: 3, Kind: store.EdgeResolves})

	want := "Node: #2 scope block [0:9-0:11]\n" +
		"Node: #3 definition foo [0:3-0:6]\n" +
		"Edge: #4 -> #3 resolves\n"
	assert.Equal(t, want, buf.String())
}

type failingWriter struct{ calls int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("disk full")
}

func TestRenderer_StickyWriteError(t *testing.T) {
	w := &failingWriter{}
	r := NewRenderer(w, false)
	r.Header("a.rs")
	r.Header("b.rs")
	assert.EqualError(t, r.Err(), "disk full")
	assert.Equal(t, 1, w.calls)
}

func TestIsIdentifierKind(t *testing.T) {
	assert.True(t, IsIdentifierKind("identifier"))
	assert.True(t, IsIdentifierKind("type_identifier"))
	assert.True(t, IsIdentifierKind("field_identifier"))
	assert.False(t, IsIdentifierKind("property_identifier"))
	assert.False(t, IsIdentifierKind("string"))
}

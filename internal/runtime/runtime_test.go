package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/treescan/internal/store"
	"github.com/jward/treescan/rules"
)

const rustTestSource = `fn greet(name: &str) -> String {
    format!("Hello, {}!", name)
}

struct Point {
    x: i32,
}

fn main() {
    let p = Point { x: 1 };
    greet("world");
}
`

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry()
	require.NoError(t, err)
	return reg
}

// parseRustSource is a test helper that parses Rust source using tree-sitter
// directly and registers it in a Runtime's source store.
func parseRustSource(t *testing.T, src string) (*sitter.Tree, *Runtime) {
	t.Helper()

	reg := newTestRegistry(t)
	rt := NewRuntime(reg, nil, "")

	lang, ok := reg.Grammar(Rust)
	if !ok {
		t.Fatal("rust grammar not found")
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	if err != nil {
		t.Fatalf("tree-sitter parse: %v", err)
	}

	rt.sources.store(tree, []byte(src), lang)

	return tree, rt
}

func TestParse_RustRootNodeType(t *testing.T) {
	tree, _ := parseRustSource(t, rustTestSource)
	defer tree.Close()

	root := tree.RootNode()
	if root.Type() != "source_file" {
		t.Errorf("root node Type() = %q, want %q", root.Type(), "source_file")
	}
}

func TestParse_InvalidSourceStillReturnsTree(t *testing.T) {
	tree, _ := parseRustSource(t, "fn ( {{ struct")
	defer tree.Close()

	root := tree.RootNode()
	require.NotNil(t, root, "RootNode() returned nil for invalid source")
	assert.True(t, root.HasError())
}

// --- sourceStore tests ---

func TestSourceStore_NodeLookupAndForget(t *testing.T) {
	tree, rt := parseRustSource(t, rustTestSource)
	defer tree.Close()

	fn := tree.RootNode().NamedChild(0)
	require.NotNil(t, fn)
	name := fn.ChildByFieldName("name")
	require.NotNil(t, name)

	src, ok := rt.sources.sourceForNode(name)
	require.True(t, ok)
	assert.Equal(t, "greet", name.Content(src))

	_, ok = rt.sources.languageForNode(name)
	assert.True(t, ok)

	rt.sources.forget(tree)
	_, ok = rt.sources.sourceForNode(name)
	assert.False(t, ok)
}

// --- Risor integration tests (via RunSource) ---

func TestRunSource_ParseSrcAndNodeText(t *testing.T) {
	rt := NewRuntime(newTestRegistry(t), nil, "")

	script := `
tree := parse_src(src, "rust")
root := tree.RootNode()
assert(root.Type() == "source_file", "expected source_file")

item := root.NamedChild(0)
name := node_child(item, "name")
assert(node_text(name) == "greet", 'expected greet, got {node_text(name)}')
assert(node_child(item, "no_such_field") == nil, "expected nil child")
`
	err := rt.RunSource(context.Background(), script, map[string]any{
		"src": rustTestSource,
	})
	require.NoError(t, err)
}

func TestRunSource_ParseSrcUnsupportedLanguage(t *testing.T) {
	rt := NewRuntime(newTestRegistry(t), nil, "")

	err := rt.RunSource(context.Background(), `parse_src("x", "cobol")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestRunSource_QueryHostFunction(t *testing.T) {
	rt := NewRuntime(newTestRegistry(t), nil, "")

	script := `
tree := parse_src(src, "rust")
matches := query("(function_item name: (identifier) @name)", tree.RootNode())
assert(len(matches) == 2, 'expected 2 matches, got {len(matches)}')
assert(node_text(matches[0]["name"]) == "greet", "expected greet first")
assert(node_text(matches[1]["name"]) == "main", "expected main second")
`
	err := rt.RunSource(context.Background(), script, map[string]any{
		"src": rustTestSource,
	})
	require.NoError(t, err)
}

func TestRunSource_QueryInvalidPattern(t *testing.T) {
	rt := NewRuntime(newTestRegistry(t), nil, "")

	script := `
tree := parse_src(src, "rust")
query("(not_a_real_node) @x", tree.RootNode())
`
	err := rt.RunSource(context.Background(), script, map[string]any{
		"src": rustTestSource,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestRunSource_NodeSpan(t *testing.T) {
	rt := NewRuntime(newTestRegistry(t), nil, "")

	script := `
tree := parse_src("fn foo() {}", "rust")
name := node_child(tree.RootNode().NamedChild(0), "name")
span := node_span(name)
assert(span["start_byte"] == 3, 'expected start_byte 3, got {span["start_byte"]}')
assert(span["end_byte"] == 6, 'expected end_byte 6, got {span["end_byte"]}')
assert(span["start_line"] == 0, "expected line 0")
assert(span["start_col"] == 3, "expected col 3")
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestRunSource_LogGlobal(t *testing.T) {
	rt := NewRuntime(newTestRegistry(t), nil, "")

	err := rt.RunSource(context.Background(), `log.Info("hello from rules")`, nil)
	require.NoError(t, err)
}

// --- Script loading tests ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`result := 1 + 1`), 0644))

	rt := NewRuntime(nil, nil, dir)
	require.NoError(t, rt.RunScript(context.Background(), "test.risor", nil))
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(nil, nil, t.TempDir())

	err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

func TestRulesScriptPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "rust.risor", RulesScriptPath(Rust))
	assert.Equal(t, "typescript.risor", RulesScriptPath(TSX))
	assert.Equal(t, "csharp.risor", RulesScriptPath(CSharp))
}

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"rust.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime(nil, nil, "", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("/rust.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = rt.LoadScript("missing.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func count_functions(root) {
	return len(query("(function_item) @f", root))
}
`)},
	}

	rt := NewRuntime(newTestRegistry(t), nil, "", WithRuntimeFS(mapFS))

	script := `
import helper
tree := parse_src(src, "rust")
n := helper.count_functions(tree.RootNode())
assert(n == 2, 'expected 2, got {n}')
`
	err := rt.RunSource(context.Background(), script, map[string]any{
		"src": rustTestSource,
	})
	require.NoError(t, err)
}

func TestEmbeddedRulesExist(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(nil, nil, "", WithRuntimeFS(rules.FS))
	for _, lang := range []Language{TypeScript, TSX, Rust, CSharp} {
		_, err := rt.LoadScript(RulesScriptPath(lang))
		assert.NoError(t, err, lang.String())
	}
	_, err := rt.LoadScript("graph.risor")
	assert.NoError(t, err)
}

// --- BuildGraph ---

type graphEnv struct {
	reg   *Registry
	store *store.Store
	rt    *Runtime
}

func newGraphEnv(t *testing.T) *graphEnv {
	t.Helper()
	s, err := store.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	reg := newTestRegistry(t)
	return &graphEnv{
		reg:   reg,
		store: s,
		rt:    NewRuntime(reg, s, "", WithRuntimeFS(rules.FS)),
	}
}

// build parses src, adds a root node, runs the rules and links the graph.
func (e *graphEnv) build(t *testing.T, lang Language, src string) int64 {
	t.Helper()

	grammar, ok := e.reg.Grammar(lang)
	require.True(t, ok)
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	require.NoError(t, err)
	defer tree.Close()

	fileID, err := e.store.InsertFile(&store.File{Path: "test", Language: lang.String()})
	require.NoError(t, err)
	_, err = e.store.InsertNode(&store.Node{
		FileID: fileID, Kind: store.KindRoot, SyntaxType: tree.RootNode().Type(),
		StartByte: 0, EndByte: len(src),
	})
	require.NoError(t, err)

	require.NoError(t, e.rt.BuildGraph(context.Background(), fileID, "test", lang, tree, []byte(src)))
	require.NoError(t, e.store.Link(fileID))
	_, err = e.store.Resolve(fileID)
	require.NoError(t, err)
	return fileID
}

func TestBuildGraph_RequiresStore(t *testing.T) {
	rt := NewRuntime(newTestRegistry(t), nil, "", WithRuntimeFS(rules.FS))
	err := rt.BuildGraph(context.Background(), 1, "x.rs", Rust, nil, nil)
	require.Error(t, err)
}

func TestBuildGraph_RustResolvesLocalReferences(t *testing.T) {
	env := newGraphEnv(t)
	src := "fn foo() {}\nfn main() { foo(); let x = 1; let y = x; }\n"
	fileID := env.build(t, Rust, src)

	nodes, err := env.store.NodesByFile(fileID)
	require.NoError(t, err)
	byID := make(map[int64]*store.Node)
	defs := make(map[string]*store.Node)
	for _, n := range nodes {
		byID[n.ID] = n
		if n.Kind == store.KindDefinition {
			defs[n.Symbol] = n
		}
	}
	for _, name := range []string{"foo", "main", "x", "y"} {
		require.Contains(t, defs, name)
	}

	// Function names bind in the file's root scope.
	root := nodes[0]
	require.Equal(t, store.KindRoot, root.Kind)
	require.NotNil(t, defs["foo"].ScopeID)
	assert.Equal(t, root.ID, *defs["foo"].ScopeID)

	edges, err := env.store.EdgesByFile(fileID)
	require.NoError(t, err)
	resolved := make(map[string]string)
	for _, e := range edges {
		if e.Kind != store.EdgeResolves {
			continue
		}
		ref, def := byID[e.SourceID], byID[e.SinkID]
		assert.Equal(t, store.KindReference, ref.Kind)
		assert.Equal(t, store.KindDefinition, def.Kind)
		resolved[ref.Symbol] = def.Symbol
		assert.Less(t, def.StartByte, ref.StartByte)
	}
	assert.Equal(t, map[string]string{"foo": "foo", "x": "x"}, resolved)
}

func TestBuildGraph_TypeScript(t *testing.T) {
	env := newGraphEnv(t)
	src := "function add(a: number, b: number) { return a + b; }\nconst total = add(1, 2);\n"
	fileID := env.build(t, TypeScript, src)

	nodes, err := env.store.NodesByFile(fileID)
	require.NoError(t, err)

	var defs []string
	for _, n := range nodes {
		if n.Kind == store.KindDefinition {
			defs = append(defs, n.Symbol)
		}
	}
	assert.ElementsMatch(t, []string{"add", "a", "b", "total"}, defs)

	edges, err := env.store.EdgesByFile(fileID)
	require.NoError(t, err)
	resolves := 0
	for _, e := range edges {
		if e.Kind == store.EdgeResolves {
			resolves++
		}
	}
	// a, b inside the body and the call to add.
	assert.Equal(t, 3, resolves)
}

func TestImportGlobalNames_IncludesBuiltinsAndHostGlobals(t *testing.T) {
	t.Parallel()

	names := importGlobalNames(map[string]any{"query": nil, "add_node": nil, "len": nil})
	assert.Contains(t, names, "len")
	assert.Contains(t, names, "keys")
	assert.Contains(t, names, "query")
	assert.Contains(t, names, "add_node")

	seen := make(map[string]bool)
	for _, n := range names {
		assert.False(t, seen[n], "duplicate global %q", n)
		seen[n] = true
	}
}

func TestImport_BuiltinsAvailableInImportedModules(t *testing.T) {
	mapFS := fstest.MapFS{
		"kinds.risor": &fstest.MapFile{Data: []byte(`
func count(rules) {
	names := {}
	for _, rule := range rules {
		names[rule["kind"]] = true
	}
	return len(keys(names))
}
`)},
	}
	rt := NewRuntime(newTestRegistry(t), nil, "", WithRuntimeFS(mapFS))

	script := `
import kinds
n := kinds.count([{"kind": "scope"}, {"kind": "reference"}, {"kind": "scope"}])
assert(n == 2, 'expected 2, got {n}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_ReleasesParsedTrees(t *testing.T) {
	rt := NewRuntime(newTestRegistry(t), nil, "")

	script := `
for _, s := range ["fn a() {}", "fn b() {}", "fn c() {}"] {
	tree := parse_src(s, "rust")
	assert(node_text(tree.RootNode()) == s)
}
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	rt.sources.mu.RLock()
	defer rt.sources.mu.RUnlock()
	assert.Empty(t, rt.sources.sources)
	assert.Empty(t, rt.sources.langs)
}

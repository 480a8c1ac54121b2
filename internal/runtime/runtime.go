package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/treescan/internal/store"
)

// Runtime embeds a Risor VM and exposes tree-sitter host functions and the
// graph store to name-binding rule scripts.
type Runtime struct {
	registry *Registry
	store    *store.Store
	rulesDir string
	fsys     fs.FS
	logger   *slog.Logger
	sources  *sourceStore
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load rule scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger sets the logger behind the scripts' log global.
func WithRuntimeLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Runtime wired to the given registry, graph store and
// rules directory. The store may be nil when scripts only inspect trees.
func NewRuntime(reg *Registry, s *store.Store, rulesDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		registry: reg,
		store:    s,
		rulesDir: rulesDir,
		logger:   slog.Default(),
		sources:  newSourceStore(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	var parsed []*sitter.Tree
	defer func() {
		for _, tree := range parsed {
			r.sources.forget(tree)
			tree.Close()
		}
	}()
	globals := r.buildGlobals(extraGlobals, func(tree *sitter.Tree) {
		parsed = append(parsed, tree)
	})

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	_, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor rulesDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := importGlobalNames(globals)

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.rulesDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.rulesDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// importGlobalNames lists the names an imported module may reference: the
// Risor builtins and default modules plus the host globals.
func importGlobalNames(globals map[string]any) []string {
	builtins := risor.NewConfig().GlobalNames()
	names := make([]string, 0, len(builtins)+len(globals))
	seen := make(map[string]bool, cap(names))
	for _, name := range builtins {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range globals {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on that filesystem.
// Otherwise, uses os.ReadFile with rulesDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.rulesDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// RulesScriptPath returns the path to a language's graph rule script.
func RulesScriptPath(lang Language) string {
	return lang.RulesName() + ".risor"
}

// BuildGraph runs the rule script for lang over an already parsed tree and
// records the resulting nodes under fileID. The tree must stay open until
// BuildGraph returns.
func (r *Runtime) BuildGraph(ctx context.Context, fileID int64, path string, lang Language, tree *sitter.Tree, src []byte) error {
	if r.store == nil {
		return fmt.Errorf("runtime: no graph store configured")
	}
	grammar, _ := r.registry.Grammar(lang)
	r.sources.store(tree, src, grammar)
	defer r.sources.forget(tree)

	extras := map[string]any{
		"tree":      mustProxy(tree),
		"source":    string(src),
		"language":  lang.String(),
		"file_id":   fileID,
		"file_path": path,
		"add_node":  makeAddNodeFn(r.store, r.sources, fileID),
	}
	return r.RunScript(ctx, RulesScriptPath(lang), extras)
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
// Trees created by parse_src are handed to track so the caller can release
// them once the script has finished.
func (r *Runtime) buildGlobals(extra map[string]any, track func(*sitter.Tree)) map[string]any {
	globals := map[string]any{
		"parse_src":  makeParseSrcFn(r.registry, r.sources, track),
		"node_text":  makeNodeTextFn(r.sources),
		"node_child": makeNodeChildFn(),
		"node_span":  makeNodeSpanFn(),
		"query":      makeQueryFn(r.sources),
		"log":        mustProxy(&logObject{logger: r.logger}),
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}

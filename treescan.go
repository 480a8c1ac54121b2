package treescan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/treescan/internal/runtime"
	"github.com/jward/treescan/internal/store"
	"github.com/jward/treescan/rules"
)

// Mode selects what the Scanner prints for each file.
type Mode int

const (
	// ModeSyntax prints the indented syntax tree.
	ModeSyntax Mode = iota
	// ModeGraph prints the scope graph built by the name-binding rules.
	ModeGraph
)

func (m Mode) String() string {
	switch m {
	case ModeSyntax:
		return "syntax"
	case ModeGraph:
		return "graph"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "syntax" or "graph".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "syntax":
		return ModeSyntax, nil
	case "graph":
		return ModeGraph, nil
	}
	return ModeSyntax, fmt.Errorf("treescan: unknown mode %q (want syntax or graph)", s)
}

// Scanner discovers source files below a root and renders each one.
// A Scanner is not safe for concurrent use.
type Scanner struct {
	registry  *runtime.Registry
	out       io.Writer
	logger    *slog.Logger
	mode      Mode
	colorize  *bool
	languages map[runtime.Language]bool // nil means all languages
	rulesFS   fs.FS
	rulesDir  string

	renderer *Renderer
	store    *store.Store
	graph    *graphBuilder
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithOutput sets where rendered trees go. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Scanner) {
		s.out = w
	}
}

// WithLogger sets the logger for skip and failure diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// WithMode selects syntax tree or scope graph output.
func WithMode(m Mode) Option {
	return func(s *Scanner) {
		s.mode = m
	}
}

// WithColor forces colour on or off. Without it, colour is used only when
// writing to a terminal stdout.
func WithColor(enabled bool) Option {
	return func(s *Scanner) {
		s.colorize = &enabled
	}
}

// WithRegistry injects a prebuilt grammar registry.
func WithRegistry(reg *runtime.Registry) Option {
	return func(s *Scanner) {
		s.registry = reg
	}
}

// WithRulesFS loads graph rule scripts from fsys instead of the embedded set.
func WithRulesFS(fsys fs.FS) Option {
	return func(s *Scanner) {
		s.rulesFS = fsys
	}
}

// WithRulesDir loads graph rule scripts from a directory on disk.
func WithRulesDir(dir string) Option {
	return func(s *Scanner) {
		s.rulesDir = dir
	}
}

// WithLanguages restricts scanning to the given languages. Files of other
// languages are skipped as if their extension were unknown.
func WithLanguages(langs ...runtime.Language) Option {
	return func(s *Scanner) {
		if len(langs) == 0 {
			s.languages = nil
			return
		}
		s.languages = make(map[runtime.Language]bool, len(langs))
		for _, l := range langs {
			s.languages[l] = true
		}
	}
}

// New creates a Scanner. Unless WithRegistry is given, every bundled grammar
// is loaded here, and a failure to load one is fatal.
func New(opts ...Option) (*Scanner, error) {
	s := &Scanner{
		out:    os.Stdout,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		reg, err := runtime.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("treescan: %w", err)
		}
		s.registry = reg
	}

	colorize := s.out == os.Stdout && !color.NoColor
	if s.colorize != nil {
		colorize = *s.colorize
	}
	s.renderer = NewRenderer(s.out, colorize)

	if s.mode == ModeGraph {
		st, err := store.NewStore(":memory:")
		if err != nil {
			return nil, fmt.Errorf("treescan: create graph store: %w", err)
		}
		if err := st.Migrate(); err != nil {
			st.Close()
			return nil, fmt.Errorf("treescan: migrate graph store: %w", err)
		}
		s.store = st

		rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(s.logger)}
		switch {
		case s.rulesFS != nil:
			rtOpts = append(rtOpts, runtime.WithRuntimeFS(s.rulesFS))
		case s.rulesDir == "":
			rtOpts = append(rtOpts, runtime.WithRuntimeFS(rules.FS))
		}
		s.graph = &graphBuilder{
			store:   st,
			runtime: runtime.NewRuntime(s.registry, st, s.rulesDir, rtOpts...),
			logger:  s.logger,
		}
	}
	return s, nil
}

// Close releases the graph store, if any.
func (s *Scanner) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Registry returns the grammar registry the Scanner classifies with.
func (s *Scanner) Registry() *runtime.Registry {
	return s.registry
}

// ScanDirectory renders every recognised file below root. A root that is a
// regular file is rendered on its own. Failing to list a directory aborts
// the scan; failing to read or parse a single file does not.
func (s *Scanner) ScanDirectory(ctx context.Context, root string) (*Summary, error) {
	start := time.Now()
	sum := newSummary()

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return nil, fmt.Errorf("treescan: stat %s: %w", root, err)
	}

	if !info.IsDir() {
		s.scanEntry(ctx, root, sum)
		sum.Elapsed = time.Since(start)
		return sum, s.renderer.Err()
	}

	// WalkDir does not follow a symlinked root; walk its target instead.
	if li, lerr := os.Lstat(root); lerr == nil && li.Mode()&fs.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(root)
		if err != nil {
			return nil, fmt.Errorf("treescan: resolve %s: %w", root, err)
		}
		s.logger.Debug("resolved symlinked root", "root", root, "target", resolved)
		root = resolved
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			s.logger.Debug("skipping non-regular file", "path", path, "type", d.Type().String())
			return nil
		}
		s.scanEntry(ctx, path, sum)
		return s.renderer.Err()
	})
	sum.Elapsed = time.Since(start)
	if err != nil {
		return sum, fmt.Errorf("treescan: walk %s: %w", root, err)
	}

	s.logger.Info("scan complete",
		"root", root,
		"files", sum.Files,
		"analyzed", sum.Analyzed,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"bytes", humanize.Bytes(uint64(sum.Bytes)),
		"elapsed", sum.Elapsed,
	)
	return sum, nil
}

// scanEntry classifies and renders one regular file, recording the outcome.
func (s *Scanner) scanEntry(ctx context.Context, path string, sum *Summary) {
	sum.Files++

	lang, ok := s.Classify(path)
	if !ok || !s.enabled(lang) {
		s.logger.Debug("skipping file", "path", path)
		sum.Skipped++
		return
	}

	n, err := s.analyze(ctx, path, lang)
	sum.Bytes += int64(n)
	if err != nil {
		s.logger.Warn("file analysis failed", "path", path, "language", lang.String(), "error", err)
		sum.Failed++
		return
	}
	sum.Analyzed++
	sum.ByLanguage[lang]++
}

// ScanFile renders a single file. It returns ErrUnsupported when the file's
// extension has no registered grammar.
func (s *Scanner) ScanFile(ctx context.Context, path string) error {
	lang, ok := s.Classify(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
	_, err := s.analyze(ctx, path, lang)
	return err
}

// analyze reads, parses and renders one file, returning the bytes read.
func (s *Scanner) analyze(ctx context.Context, path string, lang runtime.Language) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("treescan: read %s: %w", path, err)
	}
	s.logger.Debug("analyzing file",
		"path", path,
		"language", lang.String(),
		"size", humanize.Bytes(uint64(len(content))),
	)

	doc := Document{Path: path, Language: lang, Content: content}
	grammar, _ := s.registry.Grammar(lang)
	tree, err := Parse(ctx, doc, grammar)
	if err != nil {
		return len(content), err
	}
	defer tree.Close()

	switch s.mode {
	case ModeGraph:
		g, err := s.graph.Build(ctx, doc, tree)
		if err != nil {
			return len(content), err
		}
		s.renderer.Header(path)
		renderGraph(s.renderer, g)
	default:
		s.renderer.Header(path)
		Walk(tree.RootNode(), func(n *sitter.Node, depth int) {
			s.renderer.Node(n, depth, content)
		})
	}
	return len(content), s.renderer.Err()
}

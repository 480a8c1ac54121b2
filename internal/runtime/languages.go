package runtime

import (
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ErrGrammarLoad is returned by NewRegistry when a bundled grammar is missing.
var ErrGrammarLoad = errors.New("runtime: grammar failed to load")

// Language is the closed set of languages treescan understands.
type Language int

const (
	LanguageUnknown Language = iota
	TypeScript
	TSX
	Rust
	CSharp
)

// String returns the language tag.
func (l Language) String() string {
	switch l {
	case TypeScript:
		return "typescript"
	case TSX:
		return "tsx"
	case Rust:
		return "rust"
	case CSharp:
		return "c-sharp"
	default:
		return "unknown"
	}
}

// RulesName returns the base name of the graph rule script for the language.
// TSX shares the TypeScript rules.
func (l Language) RulesName() string {
	switch l {
	case TypeScript, TSX:
		return "typescript"
	case Rust:
		return "rust"
	case CSharp:
		return "csharp"
	default:
		return ""
	}
}

// ParseLanguage maps a language tag or file extension back to a Language.
func ParseLanguage(s string) (Language, bool) {
	switch s {
	case "typescript", "ts":
		return TypeScript, true
	case "tsx":
		return TSX, true
	case "rust", "rs":
		return Rust, true
	case "c-sharp", "csharp", "cs":
		return CSharp, true
	}
	return LanguageUnknown, false
}

// extToLanguage maps file extensions (without the dot) to languages.
// Lookups are case-sensitive.
var extToLanguage = map[string]Language{
	"ts":  TypeScript,
	"tsx": TSX,
	"rs":  Rust,
	"cs":  CSharp,
}

// allLanguages lists the supported languages in declaration order.
var allLanguages = []Language{TypeScript, TSX, Rust, CSharp}

// Registry maps extensions to loaded tree-sitter grammars. It is built once
// by NewRegistry and is read-only afterwards.
type Registry struct {
	grammars map[Language]*sitter.Language
}

// NewRegistry loads every bundled grammar.
func NewRegistry() (*Registry, error) {
	loaders := map[Language]func() *sitter.Language{
		TypeScript: ts.GetLanguage,
		TSX:        tsx.GetLanguage,
		Rust:       rust.GetLanguage,
		CSharp:     csharp.GetLanguage,
	}
	r := &Registry{grammars: make(map[Language]*sitter.Language, len(loaders))}
	for _, lang := range allLanguages {
		g := loaders[lang]()
		if g == nil {
			return nil, fmt.Errorf("%w: %s", ErrGrammarLoad, lang)
		}
		r.grammars[lang] = g
	}
	return r, nil
}

// Lookup returns the language registered for ext. A miss is not an error.
func (r *Registry) Lookup(ext string) (Language, bool) {
	lang, ok := extToLanguage[ext]
	if !ok {
		return LanguageUnknown, false
	}
	if _, loaded := r.grammars[lang]; !loaded {
		return LanguageUnknown, false
	}
	return lang, true
}

// Grammar returns the tree-sitter grammar for lang.
func (r *Registry) Grammar(lang Language) (*sitter.Language, bool) {
	g, ok := r.grammars[lang]
	return g, ok
}

// Languages returns the loaded languages in a stable order.
func (r *Registry) Languages() []Language {
	langs := make([]Language, 0, len(r.grammars))
	for _, lang := range allLanguages {
		if _, ok := r.grammars[lang]; ok {
			langs = append(langs, lang)
		}
	}
	return langs
}

package treescan

import (
	"path/filepath"
	"strings"

	"github.com/jward/treescan/internal/runtime"
)

// Extension returns the text after the final '.' of the last path element.
// Names without a dot, or ending in one, have no extension.
func Extension(path string) (string, bool) {
	base := filepath.Base(path)
	i := strings.LastIndexByte(base, '.')
	if i < 0 || i == len(base)-1 {
		return "", false
	}
	return base[i+1:], true
}

// Classify maps a path to the language whose grammar should parse it.
// Matching is case-sensitive and only the final extension counts, so
// "x.d.ts" is TypeScript and "A.RS" is unknown.
func (s *Scanner) Classify(path string) (runtime.Language, bool) {
	ext, ok := Extension(path)
	if !ok {
		return runtime.LanguageUnknown, false
	}
	return s.registry.Lookup(ext)
}

// enabled reports whether lang passes the WithLanguages filter.
func (s *Scanner) enabled(lang runtime.Language) bool {
	if s.languages == nil {
		return true
	}
	return s.languages[lang]
}

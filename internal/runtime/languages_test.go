package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry()
	require.NoError(t, err)

	tests := []struct {
		ext  string
		want Language
		ok   bool
	}{
		{"ts", TypeScript, true},
		{"tsx", TSX, true},
		{"rs", Rust, true},
		{"cs", CSharp, true},
		{"RS", LanguageUnknown, false}, // case sensitive
		{".rs", LanguageUnknown, false},
		{"txt", LanguageUnknown, false},
		{"", LanguageUnknown, false},
		{"go", LanguageUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got, ok := reg.Lookup(tt.ext)
			if ok != tt.ok {
				t.Errorf("Lookup(%q) ok = %v, want %v", tt.ext, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestRegistryGrammar(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry()
	require.NoError(t, err)

	for _, lang := range []Language{TypeScript, TSX, Rust, CSharp} {
		t.Run(lang.String(), func(t *testing.T) {
			t.Parallel()
			g, ok := reg.Grammar(lang)
			if !ok || g == nil {
				t.Errorf("Grammar(%v) not loaded", lang)
			}
		})
	}

	_, ok := reg.Grammar(LanguageUnknown)
	assert.False(t, ok)
}

func TestRegistryLanguages_StableOrder(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, []Language{TypeScript, TSX, Rust, CSharp}, reg.Languages())
}

func TestLanguageTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "typescript", TypeScript.String())
	assert.Equal(t, "tsx", TSX.String())
	assert.Equal(t, "rust", Rust.String())
	assert.Equal(t, "c-sharp", CSharp.String())
	assert.Equal(t, "unknown", LanguageUnknown.String())

	assert.Equal(t, "typescript", TSX.RulesName())
	assert.Equal(t, "csharp", CSharp.RulesName())
	assert.Equal(t, "", LanguageUnknown.RulesName())
}

func TestParseLanguage(t *testing.T) {
	t.Parallel()

	for _, lang := range []Language{TypeScript, TSX, Rust, CSharp} {
		got, ok := ParseLanguage(lang.String())
		assert.True(t, ok, lang.String())
		assert.Equal(t, lang, got)
	}

	got, ok := ParseLanguage("rs")
	assert.True(t, ok)
	assert.Equal(t, Rust, got)

	_, ok = ParseLanguage("cobol")
	assert.False(t, ok)
}

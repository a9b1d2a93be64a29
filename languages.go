package sitetrans

import (
	"sort"
	"strings"
)

// Language pairs a short request code with the tag the model understands.
type Language struct {
	Code string // Request code (e.g., "hi")
	Tag  string // Model language tag (e.g., "hin_Deva")
	Name string // Human-readable name
}

var (
	// English is the default source language.
	English = Language{Code: "en", Tag: "eng_Latn", Name: "English"}
	// Bengali is a default target language.
	Bengali = Language{Code: "bn", Tag: "ben_Beng", Name: "Bengali"}
	// Hindi is a default target language.
	Hindi = Language{Code: "hi", Tag: "hin_Deva", Name: "Hindi"}
)

// LanguageTable holds the source language and the supported target languages.
// It is read-only after construction.
type LanguageTable struct {
	source  Language
	targets map[string]Language
	codes   []string
}

// NewLanguageTable builds a table. Targets whose code matches the source are ignored.
func NewLanguageTable(source Language, targets ...Language) *LanguageTable {
	source.Code = NormalizeLang(source.Code)
	t := &LanguageTable{
		source:  source,
		targets: make(map[string]Language, len(targets)),
	}
	for _, lang := range targets {
		lang.Code = NormalizeLang(lang.Code)
		if lang.Code == "" || lang.Code == source.Code {
			continue
		}
		if _, exists := t.targets[lang.Code]; !exists {
			t.codes = append(t.codes, lang.Code)
		}
		t.targets[lang.Code] = lang
	}
	sort.Strings(t.codes)
	return t
}

// DefaultLanguageTable returns English → {Bengali, Hindi}.
func DefaultLanguageTable() *LanguageTable {
	return NewLanguageTable(English, Bengali, Hindi)
}

// Source returns the source language.
func (t *LanguageTable) Source() Language {
	return t.source
}

// IsSource reports whether code names the source language.
func (t *LanguageTable) IsSource(code string) bool {
	return NormalizeLang(code) == t.source.Code
}

// Target looks up a supported target language.
func (t *LanguageTable) Target(code string) (Language, bool) {
	lang, ok := t.targets[NormalizeLang(code)]
	return lang, ok
}

// TargetCodes returns the supported target codes in sorted order.
func (t *LanguageTable) TargetCodes() []string {
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	return out
}

// Targets returns the supported target languages ordered by code.
func (t *LanguageTable) Targets() []Language {
	out := make([]Language, 0, len(t.codes))
	for _, code := range t.codes {
		out = append(out, t.targets[code])
	}
	return out
}

// NormalizeLang lowercases and trims a language code ("HI " → "hi").
func NormalizeLang(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// ToHTMLLang converts a locale code to HTML lang attribute format (e.g., "pt_BR" → "pt-BR").
func ToHTMLLang(code string) string {
	return strings.ReplaceAll(code, "_", "-")
}

// Package nlp is the linguistic-analysis collaborator of the enrichment
// pipeline. It turns free text into a sequence of tagged tokens (lemma,
// coarse part of speech, dependency label, named-entity type).
//
// Two analyzers are provided:
//
//   - LexiconAnalyzer: an in-process tagger backed by a YAML word-form
//     lexicon. It is deterministic, has no external dependencies at runtime
//     and can hot-reload its lexicon from disk.
//   - HTTPAnalyzer: a thin client for a remote tagging service that speaks
//     the same Token JSON shape.
//
// Both are safe for concurrent use.
package nlp

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Coarse part-of-speech tags.
const (
	POSVerb  = "VERB"
	POSNoun  = "NOUN"
	POSAdj   = "ADJ"
	POSNum   = "NUM"
	POSAdp   = "ADP"
	POSPron  = "PRON"
	POSAdv   = "ADV"
	POSPart  = "PART"
	POSPunct = "PUNCT"
	POSOther = "X"
)

// Named-entity types. Empty means "no entity".
const (
	EntLoc = "LOC"
	EntGPE = "GPE"
)

// Token is one analyzed word or punctuation mark.
type Token struct {
	Text  string `json:"text"`
	Lemma string `json:"lemma"`
	POS   string `json:"pos"`
	Dep   string `json:"dep"`
	Ent   string `json:"ent"`
	// Idx is the byte offset of Text inside the analyzed string.
	Idx int `json:"idx"`
}

// IsLocation reports whether the token is tagged as a location or a
// geo-political entity.
func (t Token) IsLocation() bool { return t.Ent == EntLoc || t.Ent == EntGPE }

// Analyzer tags text. Implementations must be deterministic for a given
// input and safe for concurrent use.
type Analyzer interface {
	Analyze(ctx context.Context, text string) ([]Token, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, text string) ([]Token, error)

// Analyze calls f.
func (f AnalyzerFunc) Analyze(ctx context.Context, text string) ([]Token, error) {
	return f(ctx, text)
}

// Normalize folds a word into its lookup form: NFC, Russian lower case, and
// "ё" written as "е". Keywords, lemmas and topic names all pass through it so
// that equality checks in storage are spelling-insensitive.
func Normalize(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	if s == "" {
		return ""
	}
	// cases.Caser keeps state; a fresh one per call keeps Normalize
	// goroutine-safe.
	s = cases.Lower(language.Russian).String(s)
	return strings.ReplaceAll(s, "ё", "е")
}

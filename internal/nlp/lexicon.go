package nlp

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

//go:embed default_lexicon.yaml
var defaultLexicon []byte

// DefaultLexicon returns a copy of the built-in lexicon source.
func DefaultLexicon() []byte {
	out := make([]byte, len(defaultLexicon))
	copy(out, defaultLexicon)
	return out
}

// LexiconWord is one lexicon entry: a lemma with its inflected forms.
type LexiconWord struct {
	Lemma string   `yaml:"lemma"`
	POS   string   `yaml:"pos"`
	Ent   string   `yaml:"ent,omitempty"`
	Forms []string `yaml:"forms"`
}

type lexiconFile struct {
	Words []LexiconWord `yaml:"words"`
}

type tag struct {
	lemma string
	pos   string
	ent   string
}

// Lexicon maps normalized word forms to their tags.
type Lexicon struct {
	forms map[string]tag
}

// Len returns the number of distinct forms.
func (l *Lexicon) Len() int { return len(l.forms) }

var knownPOS = map[string]struct{}{
	POSVerb: {}, POSNoun: {}, POSAdj: {}, POSNum: {}, POSAdp: {},
	POSPron: {}, POSAdv: {}, POSPart: {}, POSPunct: {}, POSOther: {},
}

// ParseLexicon decodes and validates a YAML lexicon. When a form is listed
// more than once the first definition wins.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("lexicon: %w", err)
	}
	if len(f.Words) == 0 {
		return nil, errors.New("lexicon: no words")
	}
	lx := &Lexicon{forms: make(map[string]tag, len(f.Words)*4)}
	for i, w := range f.Words {
		lemma := Normalize(w.Lemma)
		if lemma == "" {
			return nil, fmt.Errorf("lexicon: word %d: empty lemma", i)
		}
		if _, ok := knownPOS[w.POS]; !ok {
			return nil, fmt.Errorf("lexicon: word %q: unknown pos %q", w.Lemma, w.POS)
		}
		if w.Ent != "" && w.Ent != EntLoc && w.Ent != EntGPE {
			return nil, fmt.Errorf("lexicon: word %q: unknown ent %q", w.Lemma, w.Ent)
		}
		t := tag{lemma: lemma, pos: w.POS, ent: w.Ent}
		for _, form := range append([]string{w.Lemma}, w.Forms...) {
			k := Normalize(form)
			if k == "" {
				continue
			}
			if _, dup := lx.forms[k]; !dup {
				lx.forms[k] = t
			}
		}
	}
	return lx, nil
}

// LexiconAnalyzer tags tokens by dictionary lookup. The lexicon can be
// swapped at runtime; in-flight Analyze calls keep the snapshot they started
// with.
type LexiconAnalyzer struct {
	lex atomic.Pointer[Lexicon]
}

// NewLexiconAnalyzer loads the lexicon at path, or the built-in one when path
// is empty.
func NewLexiconAnalyzer(path string) (*LexiconAnalyzer, error) {
	a := &LexiconAnalyzer{}
	if err := a.Reload(path); err != nil {
		return nil, err
	}
	return a, nil
}

// NewLexiconAnalyzerFrom builds an analyzer around an already parsed lexicon.
func NewLexiconAnalyzerFrom(lx *Lexicon) *LexiconAnalyzer {
	a := &LexiconAnalyzer{}
	a.lex.Store(lx)
	return a
}

// Reload replaces the lexicon. On error the current lexicon is kept.
func (a *LexiconAnalyzer) Reload(path string) error {
	data := defaultLexicon
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("lexicon: %w", err)
		}
		data = b
	}
	lx, err := ParseLexicon(data)
	if err != nil {
		return err
	}
	a.lex.Store(lx)
	return nil
}

// Size returns the number of forms in the active lexicon.
func (a *LexiconAnalyzer) Size() int { return a.lex.Load().Len() }

// Analyze tokenizes text and tags every token from the lexicon. Numerals are
// NUM, symbols are PUNCT and unknown words are X with their normalized form
// as lemma.
func (a *LexiconAnalyzer) Analyze(ctx context.Context, text string) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lx := a.lex.Load()
	spans := tokenize(text)
	out := make([]Token, 0, len(spans))
	for _, sp := range spans {
		tok := Token{Text: sp.text, Idx: sp.idx}
		key := Normalize(sp.text)
		switch t, ok := lx.forms[key]; {
		case ok:
			tok.Lemma, tok.POS, tok.Ent = t.lemma, t.pos, t.ent
		case isNumeric(sp.text):
			tok.Lemma, tok.POS = sp.text, POSNum
		case isPunct(sp.text):
			tok.Lemma, tok.POS = sp.text, POSPunct
		default:
			tok.Lemma, tok.POS = key, POSOther
		}
		out = append(out, tok)
	}
	assignDeps(out)
	return out, nil
}

// assignDeps labels shallow dependency relations from word order. It is a
// heuristic for a dictionary tagger, not a parser.
func assignDeps(toks []Token) {
	sawVerb := false
	for i := range toks {
		t := &toks[i]
		next := ""
		if i+1 < len(toks) {
			next = toks[i+1].POS
		}
		prev := ""
		if i > 0 {
			prev = toks[i-1].POS
		}
		switch t.POS {
		case POSVerb:
			if sawVerb {
				t.Dep = "conj"
			} else {
				t.Dep = "ROOT"
				sawVerb = true
			}
		case POSAdj:
			if next == POSNoun {
				t.Dep = "amod"
			} else {
				t.Dep = "dep"
			}
		case POSNum:
			if next == POSNoun {
				t.Dep = "nummod"
			} else {
				t.Dep = "dep"
			}
		case POSAdp:
			t.Dep = "case"
		case POSNoun:
			switch {
			case prev == POSAdp:
				t.Dep = "obl"
			case sawVerb:
				t.Dep = "obj"
			default:
				t.Dep = "nsubj"
			}
		case POSPron:
			t.Dep = "nsubj"
		case POSPunct:
			t.Dep = "punct"
		case POSAdv:
			t.Dep = "advmod"
		default:
			t.Dep = "dep"
		}
	}
}

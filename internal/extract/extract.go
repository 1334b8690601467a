// Package extract turns analyzed text into the structured attribute set stored
// for every diary message. Extract is a pure function of its inputs; the
// Extractor type only adds the analyzer call in front of it.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/nlp"
)

var (
	quantityUnits = setOf("стакан", "чашка", "кружка", "тарелка", "пачка", "кусок", "бутылка",
		"банка", "ложка", "порция", "штука", "литр", "грамм", "часть")
	timeUnits      = setOf("секунда", "минута", "час", "день", "неделя", "месяц", "год")
	sizeIndicators = setOf("большой", "маленький", "средний", "огромный", "небольшой")
	relativeDates  = setOf("сегодня", "вчера", "позавчера")
)

var (
	fullDateRE = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4}|\d{2})\b`)
	timeRE     = regexp.MustCompile(`(\d{1,2})[:.](\d{2})`)
	// RE2 has no Unicode \b; the trailing group stands in for it.
	durationRE = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(минут[аыу]?|час(?:а|ов)?)(?:[^\p{L}]|$)`)
)

const (
	negationMarker = "без"
	withMarker     = "с"
)

func setOf(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func in(set map[string]struct{}, w string) bool {
	_, ok := set[w]
	return ok
}

// Extractor runs the analyzer and then Extract.
type Extractor struct {
	Analyzer nlp.Analyzer
}

// New returns an Extractor backed by a.
func New(a nlp.Analyzer) *Extractor { return &Extractor{Analyzer: a} }

// Extract analyzes text and derives its attributes.
func (e *Extractor) Extract(ctx context.Context, text string) (domain.Attributes, error) {
	toks, err := e.Analyzer.Analyze(ctx, text)
	if err != nil {
		return domain.Attributes{}, fmt.Errorf("analyze: %w", err)
	}
	return Extract(toks, text), nil
}

// Extract derives the structured attributes of text from its tokens.
//
// Decision points:
//   - action is the lemma of the first verb.
//   - object is set once by a unit phrase, a noun after a numeral or a plain
//     noun. A size indicator followed by a noun may reseed it.
//   - specific_object is "adj noun" for an adjective directly before a noun,
//     or "noun без X" for a unit phrase followed by a negation.
//   - time, date and duration come from patterns over the raw text; numerals
//     consumed by them are not quantities.
//   - location is the lemma of the first location entity.
//   - size is dropped when no object was found.
func Extract(toks []nlp.Token, text string) domain.Attributes {
	var a domain.Attributes
	skip := scanPatterns(text, toks, &a)

	consumed := make(map[int]bool)
	tokAt := func(i int) *nlp.Token {
		if i < 0 || i >= len(toks) || skip.covers(toks[i].Idx) {
			return nil
		}
		return &toks[i]
	}
	isNoun := func(t *nlp.Token) bool {
		return t != nil && t.POS == nlp.POSNoun && !t.IsLocation() && !in(timeUnits, t.Lemma)
	}
	isPlainNoun := func(t *nlp.Token) bool { return isNoun(t) && !in(quantityUnits, t.Lemma) }
	setOnce := func(dst **string, v string) {
		if *dst == nil && v != "" {
			*dst = domain.Ptr(v)
		}
	}

	for i := range toks {
		tok := tokAt(i)
		if tok == nil {
			continue
		}
		next := tokAt(i + 1)

		if tok.IsLocation() {
			setOnce(&a.Location, tok.Lemma)
			continue
		}
		if in(relativeDates, tok.Lemma) {
			setOnce(&a.Date, tok.Lemma)
			continue
		}

		switch tok.POS {
		case nlp.POSVerb:
			setOnce(&a.Action, tok.Lemma)

		case nlp.POSNum:
			switch {
			case next == nil:
			case in(timeUnits, next.Lemma):
				// left to the duration pattern
			case in(quantityUnits, next.Lemma):
				setOnce(&a.Quantity, tok.Text+" "+next.Text)
			case isPlainNoun(next):
				setOnce(&a.Quantity, tok.Text+" "+next.Text)
				setOnce(&a.Object, next.Lemma)
			}

		case nlp.POSAdj:
			if in(sizeIndicators, tok.Lemma) {
				setOnce(&a.Size, tok.Lemma)
				if isPlainNoun(next) {
					a.Object = domain.Ptr(next.Lemma)
				}
				continue
			}
			if isNoun(next) {
				setOnce(&a.SpecificObject, tok.Lemma+" "+next.Lemma)
			}

		case nlp.POSAdp:
			if tok.Lemma == withMarker && isNoun(next) {
				setOnce(&a.Conditions, withMarker+" "+next.Lemma)
				consumed[i+1] = true
			}

		case nlp.POSNoun:
			if consumed[i] {
				continue
			}
			if in(quantityUnits, tok.Lemma) {
				setOnce(&a.Quantity, tok.Lemma)
				noun, at := next, i+1
				if noun != nil && noun.POS == nlp.POSAdj {
					noun, at = tokAt(i+2), i+2
				}
				if !isPlainNoun(noun) {
					continue
				}
				setOnce(&a.Object, noun.Lemma)
				if neg := tokAt(at + 1); neg != nil && neg.Lemma == negationMarker {
					if what := tokAt(at + 2); what != nil && what.POS != nlp.POSPunct {
						setOnce(&a.SpecificObject, noun.Lemma+" "+negationMarker+" "+what.Lemma)
						consumed[at+2] = true
					}
				}
				continue
			}
			if isPlainNoun(tok) {
				setOnce(&a.Object, tok.Lemma)
			}
		}
	}

	if a.Object == nil {
		a.Size = nil
	}
	return a
}

// spans is a set of byte ranges [start, end) of the text.
type spans [][2]int

func (s spans) covers(idx int) bool {
	for _, r := range s {
		if idx >= r[0] && idx < r[1] {
			return true
		}
	}
	return false
}

// scanPatterns fills date, time and duration from the raw text and returns
// the byte ranges those matches occupy. toks is only consulted to reject
// decimal amounts such as "0.33 литра".
func scanPatterns(text string, toks []nlp.Token, a *domain.Attributes) spans {
	var out spans

	// Full dates first so their digits are not read as a time.
	masked := []byte(text)
	for _, m := range fullDateRE.FindAllStringSubmatchIndex(text, -1) {
		if a.Date == nil && validDayMonth(text[m[2]:m[3]], text[m[4]:m[5]]) {
			a.Date = domain.Ptr(text[m[0]:m[1]])
		}
		out = append(out, [2]int{m[0], m[1]})
		for j := m[0]; j < m[1]; j++ {
			masked[j] = ' '
		}
	}

	// HH:MM or HH.MM. A dotted pair that is not a valid clock time but is a
	// valid day.month is a short date.
	for _, m := range timeRE.FindAllSubmatchIndex(masked, -1) {
		if partOfNumber(text, m[0], m[1]) || unitFollows(toks, m[1]) {
			continue
		}
		h, mm := text[m[2]:m[3]], text[m[4]:m[5]]
		switch {
		case validClock(h, mm):
			if a.Time == nil {
				hv, _ := strconv.Atoi(h)
				a.Time = domain.Ptr(fmt.Sprintf("%02d:%s", hv, mm))
			}
		case text[m[3]] == '.' && validDayMonth(h, mm):
			if a.Date == nil {
				a.Date = domain.Ptr(text[m[0]:m[1]])
			}
		default:
			continue
		}
		out = append(out, [2]int{m[0], m[1]})
	}

	if m := durationRE.FindStringSubmatchIndex(text); m != nil && !out.covers(m[0]) {
		a.Duration = domain.Ptr(strings.ToLower(text[m[0]:m[5]]))
		out = append(out, [2]int{m[2], m[3]})
	}
	return out
}

// partOfNumber reports whether text[start:end] is glued to further digits,
// as in "10.305" or "3.14.15".
func partOfNumber(text string, start, end int) bool {
	if start > 0 {
		c := text[start-1]
		if isDigit(c) || c == '.' || c == ',' || c == ':' {
			return true
		}
	}
	if end < len(text) {
		c := text[end]
		if isDigit(c) {
			return true
		}
		if (c == '.' || c == ',' || c == ':') && end+1 < len(text) && isDigit(text[end+1]) {
			return true
		}
	}
	return false
}

// unitFollows reports whether the first token starting at or after pos is a
// quantity or time unit.
func unitFollows(toks []nlp.Token, pos int) bool {
	for _, t := range toks {
		if t.Idx < pos || t.POS == nlp.POSPunct {
			continue
		}
		return in(quantityUnits, t.Lemma) || in(timeUnits, t.Lemma)
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func validClock(h, m string) bool {
	hv, err1 := strconv.Atoi(h)
	mv, err2 := strconv.Atoi(m)
	return err1 == nil && err2 == nil && hv >= 0 && hv < 24 && mv >= 0 && mv < 60
}

func validDayMonth(d, m string) bool {
	dv, err1 := strconv.Atoi(d)
	mv, err2 := strconv.Atoi(m)
	return err1 == nil && err2 == nil && dv >= 1 && dv <= 31 && mv >= 1 && mv <= 12
}

package nlp

import (
	"regexp"
	"unicode"
)

// wordRE matches a decimal number ("0.33", "2,5"), a word (letters and
// digits, optionally hyphenated) or a single non-space symbol.
var wordRE = regexp.MustCompile(`\p{N}+[.,]\p{N}+|[\p{L}\p{N}]+(?:-[\p{L}\p{N}]+)*|[^\s\p{L}\p{N}]`)

// span is a raw token with its byte offset.
type span struct {
	text string
	idx  int
}

func tokenize(s string) []span {
	locs := wordRE.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]span, 0, len(locs))
	for _, l := range locs {
		out = append(out, span{text: s[l[0]:l[1]], idx: l[0]})
	}
	return out
}

// isNumeric accepts digits with at most one decimal separator.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	sep := false
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
		case (r == '.' || r == ',') && !sep && i > 0 && i < len(s)-1:
			sep = true
		default:
			return false
		}
	}
	return true
}

// isPunct reports whether s has no letter or digit.
func isPunct(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

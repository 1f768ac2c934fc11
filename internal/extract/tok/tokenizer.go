// Package tok splits text deterministically into word/number/punctuation
// token spans over rune offsets, Unicode-aware, each span carrying a
// diacritic-stripped, lowercased normalized form used for matching.
package tok

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/groundedtext/extract/internal/extract"
)

// Kind classifies a token's character class.
type Kind int

const (
	Word Kind = iota
	Number
	Punct
)

// Token is a Tokenizer-internal richer view of a TokenSpan, carrying Kind in
// addition to the fields the pipeline's TokenSpan exposes.
type Token struct {
	extract.TokenSpan
	Kind Kind
}

// normalizer strips combining marks (diacritics) after NFKD decomposition,
// the standard golang.org/x/text idiom for accent folding.
var normalizer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds text the same way token spans are folded, for use when
// normalizing a short query string (e.g. an extraction's text) prior to
// alignment.
func Normalize(s string) string {
	out, _, err := transform.String(normalizer, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Tokenize splits text into stable token spans. Whitespace runes are
// consumed but never emitted as tokens; every non-whitespace rune belongs to
// exactly one token. Tokens are non-overlapping and strictly increasing in
// char offset, and concatenating text[span.CharStart:span.CharEnd] for every
// span plus the inter-span whitespace reconstructs text exactly (the
// round-trip invariant).
func Tokenize(text string) []Token {
	runesIn := []rune(text)
	var out []Token
	i := 0
	idx := 0
	for i < len(runesIn) {
		r := runesIn[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			start := i
			kind := Word
			if unicode.IsDigit(r) {
				kind = Number
			}
			i++
			sepSeen := false
			for i < len(runesIn) {
				c := runesIn[i]
				if kind == Word && (unicode.IsLetter(c) || unicode.IsDigit(c)) {
					i++
					continue
				}
				if kind == Number {
					if unicode.IsDigit(c) {
						i++
						continue
					}
					// At most one internal '.' or ',' continues a number
					// run, and only when followed by another digit.
					if !sepSeen && (c == '.' || c == ',') && i+1 < len(runesIn) && unicode.IsDigit(runesIn[i+1]) {
						sepSeen = true
						i += 2
						continue
					}
				}
				break
			}
			out = append(out, makeToken(runesIn, start, i, idx, kind))
			idx++
		default:
			out = append(out, makeToken(runesIn, i, i+1, idx, Punct))
			idx++
			i++
		}
	}
	return out
}

func makeToken(runesIn []rune, start, end, index int, kind Kind) Token {
	raw := string(runesIn[start:end])
	return Token{
		TokenSpan: extract.TokenSpan{
			TokenIndex: index,
			CharStart:  start,
			CharEnd:    end,
			Normalized: Normalize(raw),
		},
		Kind: kind,
	}
}

// Spans projects Tokens down to the plain TokenSpan the rest of the pipeline
// consumes.
func Spans(tokens []Token) []extract.TokenSpan {
	spans := make([]extract.TokenSpan, len(tokens))
	for i, t := range tokens {
		spans[i] = t.TokenSpan
	}
	return spans
}

// Package align implements the three-tier EXACT/FUZZY/LESSER strategy
// that grounds each candidate extraction's text to a char interval of its
// source chunk, plus attribute-extraction parent inheritance. Fuzzy
// matching is a windowed two-stage scorer: a cheap character-multiset
// filter followed by a dynamic-programming LCS ratio over the surviving
// windows.
package align

import (
	"math"
	"strings"

	"github.com/groundedtext/extract/internal/extract"
	"github.com/groundedtext/extract/internal/extract/tok"
)

// Config tunes the three alignment tiers. Zero thresholds, slack, and suffix
// fall back to the documented defaults; AcceptLesser is used as given, so
// the zero Config leaves the LESSER tier off.
type Config struct {
	FuzzyThreshold  float64
	LesserThreshold float64
	FuzzySlack      float64
	AcceptLesser    bool
	AttributeSuffix string
}

func (c Config) normalized() Config {
	if c.FuzzyThreshold <= 0 {
		c.FuzzyThreshold = 0.75
	}
	if c.LesserThreshold <= 0 {
		c.LesserThreshold = 0.5
	}
	if c.FuzzySlack <= 0 {
		c.FuzzySlack = 0.25
	}
	if c.AttributeSuffix == "" {
		c.AttributeSuffix = "_attributes"
	}
	return c
}

// Align assigns CharInterval, TokenInterval, and AlignmentStatus to every
// candidate, in emission order. candidates with a nil CharInterval on entry
// are treated as freshly parsed (the normal case); attribute candidates
// (Extraction.IsAttribute) never run the matching tiers — they inherit their
// nearest preceding non-attribute sibling of the same GroupIndex.
func Align(candidates []extract.Extraction, sourceTokens []extract.TokenSpan, cfg Config) []extract.Extraction {
	cfg = cfg.normalized()
	sourceNorm := make([]string, len(sourceTokens))
	for i, t := range sourceTokens {
		sourceNorm[i] = t.Normalized
	}

	out := make([]extract.Extraction, len(candidates))
	for i, cand := range candidates {
		if cand.IsAttribute(cfg.AttributeSuffix) {
			out[i] = cand
			inheritFromParent(out, i, cand.GroupIndex, cfg.AttributeSuffix)
			continue
		}
		out[i] = alignOne(cand, sourceTokens, sourceNorm, cfg)
	}
	return out
}

func inheritFromParent(out []extract.Extraction, idx int, groupIndex int, attrSuffix string) {
	for j := idx - 1; j >= 0; j-- {
		if out[j].IsAttribute(attrSuffix) && out[j].GroupIndex == groupIndex {
			// A preceding attribute in the same group never owns a span;
			// keep walking back to find the actual parent.
			continue
		}
		if out[j].GroupIndex == groupIndex {
			out[idx].CharInterval = out[j].CharInterval
			out[idx].TokenInterval = out[j].TokenInterval
			out[idx].AlignmentStatus = out[j].AlignmentStatus
			return
		}
	}
}

func alignOne(cand extract.Extraction, sourceTokens []extract.TokenSpan, sourceNorm []string, cfg Config) extract.Extraction {
	query := tokensOf(cand.Text)
	n := len(query)
	if n == 0 || len(sourceTokens) == 0 {
		cand.AlignmentStatus = extract.Unaligned
		return cand
	}

	if start, ok := findExact(query, sourceNorm); ok {
		return withInterval(cand, sourceTokens, start, start+n, extract.Exact)
	}

	if start, w, ok := findFuzzy(query, sourceNorm, cfg); ok {
		return withInterval(cand, sourceTokens, start, start+w, extract.Fuzzy)
	}

	if cfg.AcceptLesser {
		if start, w, ok := findLesser(query, sourceNorm, cfg); ok {
			return withInterval(cand, sourceTokens, start, start+w, extract.Lesser)
		}
	}

	cand.AlignmentStatus = extract.Unaligned
	return cand
}

func tokensOf(text string) []string {
	tokens := tok.Tokenize(text)
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Normalized
	}
	return out
}

func withInterval(cand extract.Extraction, sourceTokens []extract.TokenSpan, start, end int, status extract.AlignmentStatus) extract.Extraction {
	first, last := sourceTokens[start], sourceTokens[end-1]
	ci := extract.CharInterval{Start: first.CharStart, End: last.CharEnd}
	ti := extract.TokenInterval{Start: first.TokenIndex, End: last.TokenIndex + 1}
	cand.CharInterval = &ci
	cand.TokenInterval = &ti
	cand.AlignmentStatus = status
	return cand
}

// findExact returns the smallest index i such that source[i:i+n] equals
// query exactly, elementwise.
func findExact(query, source []string) (int, bool) {
	n := len(query)
	if n > len(source) {
		return 0, false
	}
	for i := 0; i+n <= len(source); i++ {
		if equalSlices(source[i:i+n], query) {
			return i, true
		}
	}
	return 0, false
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// findFuzzy scans windows of size in [ceil(n*(1-slack)), ceil(n*(1+slack))]
// token-widths (clamped to the source length). A window's and the query's
// normalized tokens are joined into flat character sequences so that a
// singular/plural or light-inflection mismatch inside one token — "chair"
// vs "chairs" — still scores a near-match instead of a hard miss; a cheap
// character-multiset intersection filter runs before the LCS-block ratio
// scores surviving windows. Returns the best window's start and size.
func findFuzzy(query, source []string, cfg Config) (start, size int, ok bool) {
	n := len(query)
	wMin := maxInt(1, ceilFrac(n, 1-cfg.FuzzySlack))
	wMax := minInt(len(source), ceilFrac(n, 1+cfg.FuzzySlack))
	if wMin > wMax {
		return 0, 0, false
	}

	queryChars := runeTokens(strings.Join(query, " "))
	queryCounts := counter(queryChars)
	minIntersection := ceilFrac(len(queryChars), cfg.FuzzyThreshold)

	bestRatio := -1.0
	bestStart, bestSize := -1, -1

	for w := wMin; w <= wMax; w++ {
		for s := 0; s+w <= len(source); s++ {
			windowChars := runeTokens(strings.Join(source[s:s+w], " "))
			if intersectionSize(queryCounts, windowChars) < minIntersection {
				continue
			}
			matched := lcsLength(queryChars, windowChars)
			ratio := float64(matched) / float64(len(queryChars))
			if ratio > bestRatio {
				bestRatio = ratio
				bestStart = s
				bestSize = w
			}
		}
	}

	if bestStart < 0 || bestRatio < cfg.FuzzyThreshold {
		return 0, 0, false
	}
	return bestStart, bestSize, true
}

// findLesser handles the case where the extraction text is a paraphrased,
// longer version of a short source span: it looks for
// the shortest source window whose own tokens mostly reappear, in order,
// somewhere inside the query — i.e. the window is a near-subsequence of the
// (longer) query rather than the other way around.
func findLesser(query, source []string, cfg Config) (start, size int, ok bool) {
	for w := 1; w <= len(source); w++ {
		target := ceilFrac(w, cfg.LesserThreshold)
		if target <= 0 {
			target = 1
		}
		for s := 0; s+w <= len(source); s++ {
			window := source[s : s+w]
			if subsequenceCount(window, query) >= target {
				return s, w, true
			}
		}
	}
	return 0, 0, false
}

// runeTokens splits a string into single-rune strings so the generic
// lcsLength/counter helpers can score character sequences as readily as
// token sequences.
func runeTokens(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

func counter(tokens []string) map[string]int {
	m := make(map[string]int, len(tokens))
	for _, t := range tokens {
		m[t]++
	}
	return m
}

func intersectionSize(queryCounts map[string]int, window []string) int {
	remaining := make(map[string]int, len(queryCounts))
	for k, v := range queryCounts {
		remaining[k] = v
	}
	total := 0
	for _, w := range window {
		if remaining[w] > 0 {
			remaining[w]--
			total++
		}
	}
	return total
}

func ceilFrac(n int, frac float64) int {
	return int(math.Ceil(float64(n) * frac))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

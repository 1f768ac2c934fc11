// Package chunk partitions a document into token-aligned chunks: greedy
// accumulation toward a target character budget, never splitting inside a
// token, preferring a sentence boundary as the split point within the last
// 15% of a chunk's span.
package chunk

import (
	"strings"
	"unicode"

	"github.com/groundedtext/extract/internal/extract"
	"github.com/groundedtext/extract/internal/extract/tok"
)

const (
	DefaultMaxChars        = 1000
	boundarySearchFraction = 0.15
)

// Options controls the Chunker's behavior.
type Options struct {
	MaxChars  int // default DefaultMaxChars
	MaxTokens int // 0 means unbounded
}

func (o Options) normalized() Options {
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	return o
}

var sentenceEnders = map[rune]bool{'.': true, '!': true, '?': true}

// isSentenceBoundary reports whether tokens[i] is terminal punctuation
// followed by whitespace (or end of the token stream).
func isSentenceBoundary(tokens []tok.Token, i int, runesIn []rune) bool {
	t := tokens[i]
	if t.Kind != tok.Punct {
		return false
	}
	if !sentenceEnders[runesIn[t.CharStart]] {
		return false
	}
	if i == len(tokens)-1 {
		return true
	}
	next := tokens[i+1]
	return next.CharStart > t.CharEnd
}

// Chunk partitions doc into token-aligned, non-overlapping chunks. Returns
// any warnings raised for tokens that alone exceed MaxChars.
func Chunk(doc extract.Document, opts Options) ([]extract.Chunk, []extract.Warning, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, nil, extract.InvalidInputError("document text is empty", nil)
	}
	opts = opts.normalized()

	tokens := tok.Tokenize(doc.Text)
	if len(tokens) == 0 {
		return nil, nil, extract.InvalidInputError("document contains no tokens", nil)
	}
	runesIn := []rune(doc.Text)

	var chunks []extract.Chunk
	var warnings []extract.Warning

	start := 0
	for start < len(tokens) {
		end := nextChunkEnd(tokens, start, opts, runesIn)
		if end == start {
			// A single token alone exceeds the budget; it forms its own
			// chunk so the chunker always makes forward progress.
			end = start + 1
			warnings = append(warnings, extract.Warning{
				DocumentID: doc.ID,
				ChunkIndex: len(chunks),
				Kind:       "chunk_token_overflow",
				Message:    "a single token exceeded max_char_buffer and was emitted as its own chunk",
			})
		}

		first, last := tokens[start], tokens[end-1]
		// Token offsets are rune offsets, so the text view is sliced over
		// runes rather than bytes.
		textView := string(runesIn[first.CharStart:last.CharEnd])
		chunks = append(chunks, extract.Chunk{
			DocumentID:         doc.ID,
			Index:              len(chunks),
			TokenInterval:      extract.TokenInterval{Start: first.TokenIndex, End: last.TokenIndex + 1},
			TextView:           textView,
			SanitizedForPrompt: sanitize(textView),
		})
		start = end
	}

	return chunks, warnings, nil
}

// nextChunkEnd returns the exclusive end token index for a chunk starting at
// start, preferring a sentence boundary within the last 15% of the chunk's
// span when the budget is exceeded mid-sentence.
func nextChunkEnd(tokens []tok.Token, start int, opts Options, runesIn []rune) int {
	chunkStart := tokens[start].CharStart
	lastGoodEnd := start
	lastBoundaryEnd := -1
	exceeded := false

	for i := start; i < len(tokens); i++ {
		span := tokens[i].CharEnd - chunkStart
		tokenCount := i - start + 1
		overChars := span > opts.MaxChars
		overTokens := opts.MaxTokens > 0 && tokenCount > opts.MaxTokens
		if overChars || overTokens {
			exceeded = true
			break
		}
		lastGoodEnd = i + 1

		if isSentenceBoundary(tokens, i, runesIn) {
			frac := float64(tokens[i].CharEnd-chunkStart) / float64(opts.MaxChars)
			if frac >= 1-boundarySearchFraction {
				lastBoundaryEnd = i + 1
			}
		}
	}

	if exceeded && lastBoundaryEnd > start {
		return lastBoundaryEnd
	}
	return lastGoodEnd
}

// sanitize strips control characters (Unicode category Cc) other than
// newline/tab before prompt injection, without mutating the chunk's
// TextView (which must remain the verbatim document substring).
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.Is(unicode.Cc, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Package prompt composes one inference request from a task description,
// few-shot examples, the chunk text, and an optional trailing-context
// window carried over from the previous chunk. A fixed template filled in
// with strings.Builder rather than a templating engine.
package prompt

import (
	"encoding/json"
	"strings"

	"github.com/groundedtext/extract/internal/extract"
)

// Options configures prompt assembly. Zero values fall back to the
// documented defaults.
type Options struct {
	TaskDescription        string
	IncludeFormatNote      bool // suppressed when the provider enforces schema natively
	TrailingContextChars   int  // default 200
	DisableTrailingContext bool
}

func (o Options) normalized() Options {
	if o.TrailingContextChars <= 0 {
		o.TrailingContextChars = 200
	}
	return o
}

const formatNote = `Respond with a single JSON object of the form {"extractions": [...]}. ` +
	`Each element is either {"class": "<class>", "text": "<verbatim span>", "attributes": {...}} ` +
	`or the shorthand {"<class>": "<verbatim span>", "<class>_attributes": {...}}.`

// Builder assembles prompts for a fixed task description and example set.
type Builder struct {
	opts     Options
	examples []extract.ExampleRecord
}

func New(opts Options, examples []extract.ExampleRecord) *Builder {
	return &Builder{opts: opts.normalized(), examples: examples}
}

// Build composes the prompt for chunk, optionally carrying the trailing K
// characters of prevChunkText (the same document's previous chunk, if any)
// as context the model may use but must not re-extract from.
func (b *Builder) Build(chunk extract.Chunk, prevChunkText string) string {
	var sb strings.Builder

	sb.WriteString(b.opts.TaskDescription)
	sb.WriteString("\n\n")

	if b.opts.IncludeFormatNote {
		sb.WriteString(formatNote)
		sb.WriteString("\n\n")
	}

	for _, ex := range b.examples {
		sb.WriteString("Input: ")
		sb.WriteString(ex.Text)
		sb.WriteString("\nOutput: ")
		sb.WriteString(serializeExample(ex.Extractions))
		sb.WriteString("\n\n")
	}

	if !b.opts.DisableTrailingContext && prevChunkText != "" {
		tail := prevChunkText
		if r := []rune(tail); len(r) > b.opts.TrailingContextChars {
			tail = string(r[len(r)-b.opts.TrailingContextChars:])
		}
		sb.WriteString("Preceding context (for reference only, do not re-extract): ")
		sb.WriteString(tail)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Input: ")
	sb.WriteString(chunk.SanitizedForPrompt)
	sb.WriteString("\nOutput:")

	return sb.String()
}

type serializedExtraction struct {
	Class      string         `json:"class"`
	Text       string         `json:"text"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// serializeExample renders extractions in the same explicit
// {class,text,attributes} shape the FormatNormalizer accepts, so the model
// learns the output convention by demonstration.
func serializeExample(extractions []extract.Extraction) string {
	rendered := make([]serializedExtraction, 0, len(extractions))
	for _, e := range extractions {
		rendered = append(rendered, serializedExtraction{
			Class:      e.Class,
			Text:       e.Text,
			Attributes: attributesToPlain(e.Attributes),
		})
	}
	out, err := json.Marshal(struct {
		Extractions []serializedExtraction `json:"extractions"`
	}{Extractions: rendered})
	if err != nil {
		// Attribute values are a closed tagged union; Marshal cannot fail
		// on them. Surface an empty example rather than panicking.
		return `{"extractions": []}`
	}
	return string(out)
}

func attributesToPlain(attrs map[string]extract.Value) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v extract.Value) any {
	switch v.Kind {
	case extract.KindString:
		return v.Str
	case extract.KindNumber:
		return v.Num
	case extract.KindBool:
		return v.Bool
	case extract.KindList:
		return v.List
	default:
		return nil
	}
}

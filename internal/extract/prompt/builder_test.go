package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/groundedtext/extract/internal/extract"
)

func exampleRecord() extract.ExampleRecord {
	return extract.ExampleRecord{
		Text: "Patient takes aspirin 500mg daily.",
		Extractions: []extract.Extraction{
			{
				Class:      "medication",
				Text:       "aspirin 500mg",
				Attributes: map[string]extract.Value{"frequency": extract.StringValue("daily")},
			},
		},
	}
}

func TestBuild_IncludesTaskDescriptionAndChunk(t *testing.T) {
	b := New(Options{TaskDescription: "Extract medications."}, nil)
	chunk := extract.Chunk{SanitizedForPrompt: "He took ibuprofen."}

	out := b.Build(chunk, "")
	assert.Contains(t, out, "Extract medications.")
	assert.Contains(t, out, "He took ibuprofen.")
	assert.NotContains(t, out, "Preceding context")
}

func TestBuild_RendersExamplesInParserShape(t *testing.T) {
	b := New(Options{TaskDescription: "Extract medications."}, []extract.ExampleRecord{exampleRecord()})
	chunk := extract.Chunk{SanitizedForPrompt: "chunk text"}

	out := b.Build(chunk, "")
	assert.Contains(t, out, `"class":"medication"`)
	assert.Contains(t, out, `"text":"aspirin 500mg"`)
	assert.Contains(t, out, `"frequency":"daily"`)
}

func TestBuild_FormatNoteSuppressedByDefault(t *testing.T) {
	b := New(Options{TaskDescription: "Extract."}, nil)
	out := b.Build(extract.Chunk{SanitizedForPrompt: "x"}, "")
	assert.NotContains(t, out, "Respond with a single JSON object")
}

func TestBuild_FormatNoteIncludedWhenRequested(t *testing.T) {
	b := New(Options{TaskDescription: "Extract.", IncludeFormatNote: true}, nil)
	out := b.Build(extract.Chunk{SanitizedForPrompt: "x"}, "")
	assert.Contains(t, out, "Respond with a single JSON object")
}

func TestBuild_TrailingContextTruncatedToWindow(t *testing.T) {
	b := New(Options{TaskDescription: "Extract.", TrailingContextChars: 5}, nil)
	prev := "abcdefghij"
	out := b.Build(extract.Chunk{SanitizedForPrompt: "x"}, prev)
	assert.Contains(t, out, "fghij")
	assert.NotContains(t, out, "abcde")
}

func TestBuild_TrailingContextDisabled(t *testing.T) {
	b := New(Options{TaskDescription: "Extract.", DisableTrailingContext: true}, nil)
	out := b.Build(extract.Chunk{SanitizedForPrompt: "x"}, "some previous chunk tail")
	assert.NotContains(t, out, "previous chunk tail")
}

func TestBuild_EndsWithOpenOutputPrompt(t *testing.T) {
	b := New(Options{TaskDescription: "Extract."}, nil)
	out := b.Build(extract.Chunk{SanitizedForPrompt: "x"}, "")
	assert.True(t, strings.HasSuffix(out, "Input: x\nOutput:"))
}

package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundedtext/extract/internal/extract"
)

func TestDefaultSchemaAdapter_DerivesClassesInOrder(t *testing.T) {
	examples := []extract.ExampleRecord{
		{Extractions: []extract.Extraction{
			{Class: "medication", Text: "aspirin"},
			{Class: "symptom", Text: "headache"},
		}},
		{Extractions: []extract.Extraction{
			{Class: "medication", Text: "ibuprofen"}, // duplicate class
		}},
	}

	artifact, err := DefaultSchemaAdapter{}.FromExamples(examples)
	require.NoError(t, err)
	assert.True(t, artifact.RequiresRawOutput())

	cfg := artifact.ToProviderConfig()
	assert.Equal(t, []string{"medication", "symptom"}, cfg["extraction_classes"])

	schema, ok := cfg["response_schema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema["required"], "extractions")
}

func TestDefaultSchemaAdapter_NoClassesFails(t *testing.T) {
	_, err := DefaultSchemaAdapter{}.FromExamples([]extract.ExampleRecord{{Text: "no extractions"}})
	require.Error(t, err)
	var typed *extract.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, extract.KindSchema, typed.Kind)
}

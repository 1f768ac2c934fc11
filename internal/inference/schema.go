package inference

import "github.com/groundedtext/extract/internal/extract"

// defaultArtifact carries the JSON schema derived from the example set.
// It never claims native enforcement, so the PromptBuilder always includes
// its own format-reminder note and the FormatNormalizer's fence handling
// stays load-bearing.
type defaultArtifact struct {
	classes []string
	schema  map[string]any
}

func (a defaultArtifact) ToProviderConfig() map[string]any {
	return map[string]any{
		"extraction_classes": a.classes,
		"response_schema":    a.schema,
	}
}

func (a defaultArtifact) RequiresRawOutput() bool { return true }

// DefaultSchemaAdapter derives a structured-output schema from the classes
// observed across the example set. Provider adapters that enforce schemas
// server-side should supply their own SchemaAdapter; this one offers the
// schema as a hint only.
type DefaultSchemaAdapter struct{}

func (DefaultSchemaAdapter) FromExamples(examples []extract.ExampleRecord) (SchemaArtifact, error) {
	seen := map[string]bool{}
	var classes []string
	for _, ex := range examples {
		for _, e := range ex.Extractions {
			if !seen[e.Class] {
				seen[e.Class] = true
				classes = append(classes, e.Class)
			}
		}
	}
	if len(classes) == 0 {
		return nil, extract.SchemaError("no extraction classes found in examples", nil)
	}
	return defaultArtifact{classes: classes, schema: schemaFor(classes)}, nil
}

// schemaFor builds the JSON schema for the normalizer's explicit element
// shape: {"extractions": [{"class", "text", "attributes"}]}, with "class"
// constrained to the classes the examples demonstrated and "attributes" a
// free-form object.
func schemaFor(classes []string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"extractions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"class":      map[string]any{"type": "string", "enum": classes},
						"text":       map[string]any{"type": "string"},
						"attributes": map[string]any{"type": "object"},
					},
					"required": []string{"class", "text"},
				},
			},
		},
		"required": []string{"extractions"},
	}
}

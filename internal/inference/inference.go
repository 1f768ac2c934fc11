// Package inference defines the extraction pipeline's provider-agnostic
// inference capability: a small batch-oriented abstraction implemented
// once per LLM provider, plus the SchemaAdapter capability that derives
// provider-specific structured-output configuration from few-shot
// examples.
package inference

import (
	"context"

	"github.com/groundedtext/extract/internal/extract"
)

// Options tunes a single Infer call. ProviderConfig carries adapter-derived
// settings from a SchemaArtifact (e.g. a JSON schema or response-format
// block) opaquely, since its shape is provider-specific.
type Options struct {
	Temperature     float64
	MaxOutputTokens int
	ProviderConfig  map[string]any
}

// Inference is the capability every LLM provider adapter implements: turn a
// batch of prompts into a batch of raw text responses, in the same order.
// Implementations may fan out internally but must return one response per
// prompt, or an error.
type Inference interface {
	Infer(ctx context.Context, prompts []string, opts Options) ([]string, error)
}

// SchemaArtifact is the provider-specific structured-output configuration
// produced by a SchemaAdapter from a set of few-shot examples.
type SchemaArtifact interface {
	// ToProviderConfig returns the opaque config to attach to Options.ProviderConfig.
	ToProviderConfig() map[string]any
	// RequiresRawOutput reports whether the provider cannot enforce the
	// output shape natively, meaning the PromptBuilder must include its
	// own format-reminder note.
	RequiresRawOutput() bool
}

// SchemaAdapter derives a SchemaArtifact from the example set a pipeline
// was configured with.
type SchemaAdapter interface {
	FromExamples(examples []extract.ExampleRecord) (SchemaArtifact, error)
}

// Package pipeline is the extraction pipeline's top-level coordinator: a
// thin wiring layer over validator → chunker → annotator → merger that
// validates config invariants, derives a SchemaArtifact once at
// construction, and surfaces the module's typed errors. No business logic
// lives here — every non-trivial decision is made by the component
// packages this wires together.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groundedtext/extract/internal/extract"
	"github.com/groundedtext/extract/internal/extract/align"
	"github.com/groundedtext/extract/internal/extract/annotate"
	"github.com/groundedtext/extract/internal/extract/chunk"
	"github.com/groundedtext/extract/internal/extract/merge"
	"github.com/groundedtext/extract/internal/extract/normalize"
	"github.com/groundedtext/extract/internal/extract/prompt"
	"github.com/groundedtext/extract/internal/extract/tok"
	"github.com/groundedtext/extract/internal/extract/validate"
	"github.com/groundedtext/extract/internal/inference"
	"github.com/groundedtext/extract/internal/observability"
)

// Config carries the pipeline's extraction knobs plus the task
// description used to build prompts.
type Config struct {
	MaxCharBuffer      int
	MaxTokensPerChunk  int // 0 = unbounded
	ExtractionPasses   int
	MaxWorkers         int
	FuzzyThreshold     float64
	LesserThreshold    float64
	AcceptLesser       bool
	FuzzySlack         float64
	ContextWindowChars int
	ValidationLevel    validate.Level
	MaxRetries         int
	RequestTimeout     time.Duration
	AttributeSuffix    string
	WrapperKey         string
	TaskDescription    string
	Temperature        float64
	MaxOutputTokens    int
}

// normalized fills unset knobs with their defaults. ExtractionPasses has no
// default, and a zero MaxWorkers or FuzzyThreshold means "unset"; values
// outside the allowed ranges are left for validateInvariants to reject.
func (c Config) normalized() Config {
	if c.MaxCharBuffer <= 0 {
		c.MaxCharBuffer = chunk.DefaultMaxChars
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = 10
	}
	if c.FuzzyThreshold == 0 {
		c.FuzzyThreshold = 0.75
	}
	if c.LesserThreshold <= 0 {
		c.LesserThreshold = 0.5
	}
	if c.FuzzySlack <= 0 {
		c.FuzzySlack = 0.25
	}
	if c.ContextWindowChars <= 0 {
		c.ContextWindowChars = 200
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	return c
}

// validateInvariants rejects configs that cannot run: extraction_passes
// >= 1, max_workers >= 1, fuzzy_threshold in (0, 1].
func (c Config) validateInvariants() error {
	if c.ExtractionPasses < 1 {
		return extract.InvalidInputError("extraction_passes must be >= 1", nil)
	}
	if c.MaxWorkers < 1 {
		return extract.InvalidInputError("max_workers must be >= 1", nil)
	}
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		return extract.InvalidInputError("fuzzy_threshold must be in (0, 1]", nil)
	}
	return nil
}

// Pipeline wires the Chunker, Annotator, PassMerger, and PromptValidator
// together for repeated Run calls against the same example set and
// provider.
type Pipeline struct {
	cfg       Config
	chunkOpts chunk.Options
	alignCfg  align.Config
	annotator *annotate.Annotator
	passes    int
}

// New validates cfg, derives a SchemaArtifact from examples via schemaAdapter,
// runs the PromptValidator pre-flight pass over examples, and returns a
// ready-to-run Pipeline. Returns a fatal typed error without making any
// Inference call if config is invalid, schema derivation fails, or
// validation_level is ERROR and an example fails to align.
func New(infer inference.Inference, schemaAdapter inference.SchemaAdapter, examples []extract.ExampleRecord, cfg Config) (*Pipeline, error) {
	cfg = cfg.normalized()
	if err := cfg.validateInvariants(); err != nil {
		return nil, err
	}

	alignCfg := align.Config{
		FuzzyThreshold:  cfg.FuzzyThreshold,
		LesserThreshold: cfg.LesserThreshold,
		FuzzySlack:      cfg.FuzzySlack,
		AcceptLesser:    cfg.AcceptLesser,
		AttributeSuffix: cfg.AttributeSuffix,
	}

	report := validate.Validate(examples, alignCfg)
	if err := validate.Check(report, cfg.ValidationLevel); err != nil {
		return nil, err
	}
	if cfg.ValidationLevel != validate.LevelOff {
		for _, entry := range report {
			if entry.Status == extract.Exact {
				continue
			}
			log.Warn().
				Int("example", entry.ExampleIndex).
				Int("extraction", entry.ExtractionIndex).
				Str("status", entry.Status.String()).
				Msg(entry.Reason)
		}
	}

	artifact, err := schemaAdapter.FromExamples(examples)
	if err != nil {
		return nil, extract.SchemaError("schema adapter failed to derive config from examples", err)
	}

	builder := prompt.New(prompt.Options{
		TaskDescription:      cfg.TaskDescription,
		IncludeFormatNote:    artifact.RequiresRawOutput(),
		TrailingContextChars: cfg.ContextWindowChars,
	}, examples)

	normOpts := normalize.Options{WrapperKey: cfg.WrapperKey, AttributeSuffix: cfg.AttributeSuffix}

	annotatorOpts := annotate.Options{
		MaxWorkers:      cfg.MaxWorkers,
		MaxRetries:      cfg.MaxRetries,
		RequestTimeout:  cfg.RequestTimeout,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
		ProviderConfig:  artifact.ToProviderConfig(),
	}

	return &Pipeline{
		cfg:       cfg,
		chunkOpts: chunk.Options{MaxChars: cfg.MaxCharBuffer, MaxTokens: cfg.MaxTokensPerChunk},
		alignCfg:  alignCfg,
		annotator: annotate.New(infer, builder, alignCfg, normOpts, annotatorOpts),
		passes:    cfg.ExtractionPasses,
	}, nil
}

// WithMetrics attaches OTel instruments to the Pipeline's Annotator; a
// nil argument restores the no-op default.
func (p *Pipeline) WithMetrics(m *observability.Metrics) *Pipeline {
	p.annotator.WithMetrics(m)
	return p
}

// Run annotates every document in docs, in order, stopping at the first
// fatal error. Per-chunk degradation never surfaces here — it is recorded
// as a Warning on the corresponding AnnotatedDocument.
func (p *Pipeline) Run(ctx context.Context, docs []extract.Document) ([]extract.AnnotatedDocument, error) {
	out := make([]extract.AnnotatedDocument, 0, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		ad, err := p.RunDocument(ctx, doc)
		if err != nil {
			return out, err
		}
		out = append(out, ad)
	}
	return out, nil
}

// RunDocument runs the full chunk → (per pass) annotate → merge pipeline
// for a single document.
func (p *Pipeline) RunDocument(ctx context.Context, doc extract.Document) (extract.AnnotatedDocument, error) {
	chunks, chunkWarnings, err := chunk.Chunk(doc, p.chunkOpts)
	if err != nil {
		return extract.AnnotatedDocument{}, err
	}

	docTokens := tok.Spans(tok.Tokenize(doc.Text))

	passLists := make([][]extract.Extraction, 0, p.passes)
	warnings := append([]extract.Warning{}, chunkWarnings...)

	for pass := 0; pass < p.passes; pass++ {
		chunkResults, passWarnings, err := p.annotator.AnnotatePass(ctx, doc, docTokens, chunks, pass)
		if err != nil {
			return extract.AnnotatedDocument{}, err
		}
		warnings = append(warnings, passWarnings...)

		flat := make([]extract.Extraction, 0)
		for _, chunkExtractions := range chunkResults {
			flat = append(flat, chunkExtractions...)
		}
		passLists = append(passLists, flat)
	}

	merged := merge.Merge(passLists)
	extract.SortExtractions(merged)

	return extract.AnnotatedDocument{
		DocumentID:  doc.ID,
		Text:        doc.Text,
		Extractions: merged,
		Warnings:    warnings,
	}, nil
}

// Command extract runs the extraction-and-grounding pipeline over a batch
// of documents from the command line, emitting one annotated document per
// input document as a JSON line on stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groundedtext/extract/internal/config"
	"github.com/groundedtext/extract/internal/extract/pipeline"
	"github.com/groundedtext/extract/internal/extract/validate"
	"github.com/groundedtext/extract/internal/inference"
	"github.com/groundedtext/extract/internal/inference/providers"
	"github.com/groundedtext/extract/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	input := flag.String("input", "-", "input Documents: file path, or - for stdin (JSON array or JSON Lines)")
	examplesPath := flag.String("examples", "", "JSON file of few-shot ExampleRecords")
	passes := flag.Int("passes", cfg.Extraction.ExtractionPasses, "extraction passes")
	workers := flag.Int("workers", cfg.Extraction.MaxWorkers, "max concurrent inference tasks")
	provider := flag.String("provider", cfg.Provider, "inference provider: anthropic | openai | google")
	model := flag.String("model", "", "override the configured model for the selected provider")
	validationLevel := flag.String("validation-level", cfg.Extraction.ValidationLevel, "prompt validation level: off | warning | error")
	taskDescription := flag.String("task", "Extract the requested information verbatim from the source text.", "task description included in every prompt")
	flag.Parse()

	cfg.Provider = *provider
	switch cfg.Provider {
	case "anthropic":
		if *model != "" {
			cfg.Anthropic.Model = *model
		}
	case "google":
		if *model != "" {
			cfg.Google.Model = *model
		}
	default:
		if *model != "" {
			cfg.OpenAI.Model = *model
		}
	}

	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx := context.Background()
	metrics, shutdown, err := observability.InitMetrics(ctx, cfg.Obs)
	if err != nil {
		log.Fatal().Err(err).Msg("init metrics")
	}
	defer func() { _ = shutdown(ctx) }()

	docs, err := readDocuments(*input)
	if err != nil {
		log.Fatal().Err(err).Msg("read documents")
	}
	examples, err := readExamples(*examplesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("read examples")
	}

	infer, err := providers.Build(cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("build inference provider")
	}

	pl, err := pipeline.New(infer, inference.DefaultSchemaAdapter{}, examples, pipeline.Config{
		ExtractionPasses:   *passes,
		MaxWorkers:         *workers,
		MaxCharBuffer:      cfg.Extraction.MaxCharBuffer,
		FuzzyThreshold:     cfg.Extraction.FuzzyThreshold,
		LesserThreshold:    cfg.Extraction.LesserThreshold,
		AcceptLesser:       cfg.Extraction.AcceptLesser,
		FuzzySlack:         cfg.Extraction.FuzzySlack,
		ContextWindowChars: cfg.Extraction.ContextWindowChars,
		ValidationLevel:    parseLevel(*validationLevel),
		MaxRetries:         cfg.Extraction.MaxRetries,
		RequestTimeout:     time.Duration(cfg.Extraction.RequestTimeoutSeconds) * time.Second,
		TaskDescription:    *taskDescription,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("construct pipeline")
	}
	pl.WithMetrics(metrics)

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)

	for _, doc := range docs {
		ad, err := pl.RunDocument(ctx, doc)
		if err != nil {
			log.Error().Err(err).Str("document_id", doc.ID).Msg("annotate document")
			os.Exit(1)
		}
		for _, w := range ad.Warnings {
			log.Warn().
				Str("document_id", w.DocumentID).
				Int("chunk_index", w.ChunkIndex).
				Int("pass", w.Pass).
				Str("kind", w.Kind).
				Msg(w.Message)
		}
		if err := enc.Encode(toAnnotatedDocumentOut(ad)); err != nil {
			log.Fatal().Err(err).Msg("encode output")
		}
	}
}

func parseLevel(s string) validate.Level {
	switch s {
	case "off":
		return validate.LevelOff
	case "error":
		return validate.LevelError
	default:
		return validate.LevelWarning
	}
}

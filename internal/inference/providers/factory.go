// Package providers is the extraction pipeline's provider registry, a
// factory keyed by provider name.
package providers

import (
	"fmt"
	"net/http"

	"github.com/groundedtext/extract/internal/config"
	"github.com/groundedtext/extract/internal/inference"
	"github.com/groundedtext/extract/internal/inference/anthropic"
	"github.com/groundedtext/extract/internal/inference/google"
	"github.com/groundedtext/extract/internal/inference/openai"
)

// Build constructs an inference.Inference based on cfg.Provider.
func Build(cfg config.Config, httpClient *http.Client) (inference.Inference, error) {
	switch cfg.Provider {
	case "", "openai":
		return openai.New(cfg.OpenAI, httpClient), nil
	case "anthropic":
		return anthropic.New(cfg.Anthropic, httpClient), nil
	case "google":
		return google.New(cfg.Google, httpClient)
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", cfg.Provider)
	}
}

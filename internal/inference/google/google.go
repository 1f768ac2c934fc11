// Package google implements the extraction pipeline's Inference capability
// over the Gemini API via google.golang.org/genai: a single
// GenerateContent call per prompt, no streaming.
package google

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	genai "google.golang.org/genai"

	"github.com/groundedtext/extract/internal/config"
	"github.com/groundedtext/extract/internal/extract"
	"github.com/groundedtext/extract/internal/inference"
)

// Client adapts the genai SDK to inference.Inference.
type Client struct {
	client *genai.Client
	model  string
}

func New(cfg config.GoogleConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}

	httpOpts := genai.HTTPOptions{}
	if cfg.Timeout > 0 {
		t := time.Duration(cfg.Timeout) * time.Second
		httpOpts.Timeout = &t
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		httpOpts.BaseURL = strings.TrimSuffix(base, "/") + "/"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      strings.TrimSpace(cfg.APIKey),
		HTTPClient:  httpClient,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("init google client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

const batchWorkers = 4

// Infer fans the prompt batch out across a small bounded pool and joins
// the responses in request order.
func (c *Client) Infer(ctx context.Context, prompts []string, opts inference.Options) ([]string, error) {
	out := make([]string, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchWorkers)
	for i, p := range prompts {
		i, p := i, p
		g.Go(func() error {
			text, err := c.infer1(gctx, p, opts)
			if err != nil {
				return err
			}
			out[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) infer1(ctx context.Context, prompt string, opts inference.Options) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		t := float32(opts.Temperature)
		cfg.Temperature = &t
	}
	if opts.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxOutputTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", extract.InferenceRuntimeError("google genai request failed", err)
	}
	if resp == nil {
		return "", extract.InferenceRuntimeError("nil google genai response", nil)
	}
	// A blocked prompt comes back with no candidates, so feedback is
	// inspected first to classify the failure as non-retriable.
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", extract.InferenceConfigError(fmt.Sprintf("request blocked by google: %s", resp.PromptFeedback.BlockReason), nil)
	}
	if len(resp.Candidates) == 0 {
		return "", extract.InferenceOutputError("no candidates in google genai response", nil)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", extract.InferenceOutputError("empty response from google genai", nil)
	}
	return text, nil
}

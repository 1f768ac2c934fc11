// Package anthropic implements the extraction pipeline's Inference
// capability over the Anthropic Messages API: one single-message-in,
// single-text-out call per prompt — the pipeline never needs tool use or
// conversation history.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/errgroup"

	"github.com/groundedtext/extract/internal/config"
	"github.com/groundedtext/extract/internal/extract"
	"github.com/groundedtext/extract/internal/inference"
)

const (
	defaultMaxTokens int64 = 4096
	batchWorkers           = 4
)

// Client adapts the Anthropic SDK to inference.Inference.
type Client struct {
	sdk   anthropicsdk.Client
	model string
}

// New constructs a Client from provider configuration: API key, optional
// base URL, shared http.Client, falling back to a current Claude model.
func New(cfg config.AnthropicConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(anthropicsdk.ModelClaude3_7SonnetLatest)
	}
	return &Client{sdk: anthropicsdk.NewClient(opts...), model: model}
}

// Infer fans the prompt batch out across a small bounded pool and joins
// the responses in request order. The Annotator sends a single prompt per
// call (one per chunk attempt, retries included).
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
	maxTokens := defaultMaxTokens
	if opts.MaxOutputTokens > 0 {
		maxTokens = int64(opts.MaxOutputTokens)
	}
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropicsdk.Float(opts.Temperature)
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return "", classifyError(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	if sb.Len() == 0 {
		return "", extract.InferenceOutputError("empty response from Anthropic", nil)
	}
	return sb.String(), nil
}

// classifyError maps transport failures to InferenceRuntimeError
// (retriable); anything that looks like a 4xx config problem (bad model,
// bad auth) surfaces as InferenceConfigError instead.
func classifyError(err error) error {
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return extract.InferenceConfigError(fmt.Sprintf("anthropic request rejected (status %d)", apiErr.StatusCode), err)
	}
	return extract.InferenceRuntimeError("anthropic request failed", err)
}

// Package openai implements the extraction pipeline's Inference capability
// over the OpenAI Chat Completions and Responses APIs: one
// single-message-in, single-text-out call per prompt, the API surface
// switchable via configuration.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/responses"
	"golang.org/x/sync/errgroup"

	"github.com/groundedtext/extract/internal/config"
	"github.com/groundedtext/extract/internal/extract"
	"github.com/groundedtext/extract/internal/inference"
)

const batchWorkers = 4

// Client adapts the OpenAI SDK to inference.Inference. It supports both
// the Chat Completions and Responses APIs, selected via the API config
// field.
type Client struct {
	sdk   sdk.Client
	model string
	api   string // "completions" (default) or "responses"
}

func New(cfg config.OpenAIConfig, httpClient *http.Client) *Client {
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
	api := strings.ToLower(strings.TrimSpace(cfg.API))
	if api == "" {
		api = "completions"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model, api: api}
}

// Infer fans the prompt batch out across a small bounded pool and joins
// the responses in request order.
func (c *Client) Infer(ctx context.Context, prompts []string, opts inference.Options) ([]string, error) {
	out := make([]string, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchWorkers)
	for i, p := range prompts {
		i, p := i, p
		g.Go(func() error {
			var (
				text string
				err  error
			)
			if c.api == "responses" {
				text, err = c.inferResponses(gctx, p, opts)
			} else {
				text, err = c.inferCompletions(gctx, p, opts)
			}
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

func (c *Client) inferCompletions(ctx context.Context, prompt string, opts inference.Options) (string, error) {
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(c.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(prompt),
		},
	}
	if opts.Temperature > 0 {
		params.Temperature = sdk.Float(opts.Temperature)
	}
	if opts.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(opts.MaxOutputTokens))
	}

	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyError(err)
	}
	if len(comp.Choices) == 0 || strings.TrimSpace(comp.Choices[0].Message.Content) == "" {
		return "", extract.InferenceOutputError("empty response from OpenAI chat completions", nil)
	}
	return comp.Choices[0].Message.Content, nil
}

func (c *Client) inferResponses(ctx context.Context, prompt string, opts inference.Options) (string, error) {
	params := responses.ResponseNewParams{
		Model: sdk.ResponsesModel(c.model),
		Input: responses.ResponseNewParamsInputUnion{OfString: sdk.String(prompt)},
	}
	if opts.MaxOutputTokens > 0 {
		params.MaxOutputTokens = sdk.Int(int64(opts.MaxOutputTokens))
	}

	resp, err := c.sdk.Responses.New(ctx, params)
	if err != nil {
		return "", classifyError(err)
	}
	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return "", extract.InferenceOutputError("empty response from OpenAI responses API", nil)
	}
	return text, nil
}

func classifyError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return extract.InferenceConfigError(fmt.Sprintf("openai request rejected (status %d)", apiErr.StatusCode), err)
	}
	return extract.InferenceRuntimeError("openai request failed", err)
}

package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/groundedtext/extract/internal/config"
	"github.com/groundedtext/extract/internal/extract"
	"github.com/groundedtext/extract/internal/inference"
)

func minimalUsage() sdk.Usage { return sdk.Usage{} }

func TestInfer_ReturnsText(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		defer r.Body.Close()
		w.Header().Set("Content-Type", "application/json")
		resp := sdk.Message{
			ID:         "msg_1",
			Type:       constant.Message("message"),
			Role:       constant.Assistant("assistant"),
			Model:      sdk.ModelClaude3_7SonnetLatest,
			StopReason: sdk.StopReasonEndTurn,
			Content:    []sdk.ContentBlockUnion{{Type: "text", Text: `{"extractions":[]}`}},
			Usage:      minimalUsage(),
		}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)

	c := New(config.AnthropicConfig{APIKey: "k", Model: "m", BaseURL: srv.URL}, srv.Client())
	out, err := c.Infer(context.Background(), []string{"extract this"}, inference.Options{})
	if err != nil {
		t.Fatalf("Infer returned error: %v", err)
	}
	if len(out) != 1 || out[0] != `{"extractions":[]}` {
		t.Fatalf("unexpected output %v", out)
	}
	if gotPath != "/v1/messages" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestInfer_RejectsEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := sdk.Message{
			ID:         "msg_2",
			Type:       constant.Message("message"),
			Role:       constant.Assistant("assistant"),
			Model:      sdk.ModelClaude3_7SonnetLatest,
			StopReason: sdk.StopReasonEndTurn,
			Content:    []sdk.ContentBlockUnion{},
			Usage:      minimalUsage(),
		}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)

	c := New(config.AnthropicConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	_, err := c.Infer(context.Background(), []string{"x"}, inference.Options{})
	if err == nil {
		t.Fatal("expected error for empty response content")
	}
}

func TestInfer_MapsNonFatalStatusToRuntimeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`))
	}))
	t.Cleanup(srv.Close)

	c := New(config.AnthropicConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	_, err := c.Infer(context.Background(), []string{"x"}, inference.Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	var typed *extract.Error
	if !errors.As(err, &typed) || typed.Kind != extract.KindInferenceRuntime {
		t.Fatalf("expected an inference_runtime error, got %v", err)
	}
}

package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/groundedtext/extract/internal/config"
	"github.com/groundedtext/extract/internal/extract"
	"github.com/groundedtext/extract/internal/inference"
)

func TestInfer_ReturnsText(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"extractions\":[]}"}]}}]}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(config.GoogleConfig{APIKey: "k", Model: "test-model", BaseURL: srv.URL}, srv.Client())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	out, err := c.Infer(context.Background(), []string{"extract this"}, inference.Options{})
	if err != nil {
		t.Fatalf("Infer returned error: %v", err)
	}
	if len(out) != 1 || out[0] != `{"extractions":[]}` {
		t.Fatalf("unexpected output %v", out)
	}
	if gotPath == "" {
		t.Fatal("expected request to reach the fake server")
	}
}

func TestInfer_BlockedPromptIsConfigError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(config.GoogleConfig{APIKey: "k", Model: "test-model", BaseURL: srv.URL}, srv.Client())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = c.Infer(context.Background(), []string{"x"}, inference.Options{})
	if err == nil {
		t.Fatal("expected error for blocked prompt")
	}
	var typed *extract.Error
	if !errors.As(err, &typed) || typed.Kind != extract.KindInferenceConfig {
		t.Fatalf("expected an inference_config error, got %v", err)
	}
}

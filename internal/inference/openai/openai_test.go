package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/groundedtext/extract/internal/config"
	"github.com/groundedtext/extract/internal/inference"
)

func TestInfer_CompletionsReturnsText(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl_1",
			"object": "chat.completion",
			"created": 0,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"extractions\":[]}"}}]
		}`))
	}))
	t.Cleanup(srv.Close)

	c := New(config.OpenAIConfig{APIKey: "k", Model: "gpt-4o-mini", BaseURL: srv.URL}, srv.Client())
	out, err := c.Infer(context.Background(), []string{"extract this"}, inference.Options{})
	if err != nil {
		t.Fatalf("Infer returned error: %v", err)
	}
	if len(out) != 1 || out[0] != `{"extractions":[]}` {
		t.Fatalf("unexpected output %v", out)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestInfer_ResponsesAPI(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_1",
			"object": "response",
			"created_at": 0,
			"model": "gpt-4o-mini",
			"status": "completed",
			"output": [{"type": "message", "role": "assistant", "status": "completed", "content": [{"type": "output_text", "text": "{\"extractions\":[]}"}]}]
		}`))
	}))
	t.Cleanup(srv.Close)

	c := New(config.OpenAIConfig{APIKey: "k", Model: "gpt-4o-mini", BaseURL: srv.URL, API: "responses"}, srv.Client())
	out, err := c.Infer(context.Background(), []string{"extract this"}, inference.Options{})
	if err != nil {
		t.Fatalf("Infer returned error: %v", err)
	}
	if len(out) != 1 || out[0] != `{"extractions":[]}` {
		t.Fatalf("unexpected output %v", out)
	}
	if gotPath != "/responses" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestInfer_RejectsEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "chatcmpl_2", "object": "chat.completion", "created": 0, "model": "gpt-4o-mini", "choices": []}`))
	}))
	t.Cleanup(srv.Close)

	c := New(config.OpenAIConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	_, err := c.Infer(context.Background(), []string{"x"}, inference.Options{})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

// Package fake provides a configurable test double for the
// inference.Inference capability: a fixed response/error pair, with a hook
// for richer per-call behavior.
package fake

import (
	"context"
	"sync"

	"github.com/groundedtext/extract/internal/inference"
)

// Provider is a configurable Inference double for tests. Resp and Err
// cover the common fixed-response case; Respond, when set, overrides both
// for call-by-call control (e.g. simulating a transient failure followed
// by success).
type Provider struct {
	Resp []string
	Err  error

	Respond func(ctx context.Context, prompts []string, opts inference.Options) ([]string, error)

	mu    sync.Mutex
	Calls int
}

func (f *Provider) Infer(ctx context.Context, prompts []string, opts inference.Options) ([]string, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()

	if f.Respond != nil {
		return f.Respond(ctx, prompts, opts)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]string, len(prompts))
	for i := range prompts {
		if i < len(f.Resp) {
			out[i] = f.Resp[i]
		} else if len(f.Resp) > 0 {
			out[i] = f.Resp[len(f.Resp)-1]
		}
	}
	return out, nil
}

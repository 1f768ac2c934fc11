// Package annotate fans a chunk list out to an Inference capability under
// bounded concurrency, normalizes and aligns each response, and retries
// per-chunk failures with jittered exponential backoff. Workers write into
// a result buffer indexed by chunk position, so output order never depends
// on completion order.
package annotate

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/groundedtext/extract/internal/extract"
	"github.com/groundedtext/extract/internal/extract/align"
	"github.com/groundedtext/extract/internal/extract/normalize"
	"github.com/groundedtext/extract/internal/extract/prompt"
	"github.com/groundedtext/extract/internal/inference"
	"github.com/groundedtext/extract/internal/observability"
)

// Options controls concurrency and retry policy.
type Options struct {
	MaxWorkers      int // default 10
	MaxRetries      int // retries after the first attempt; 0 disables retrying
	BaseBackoff     time.Duration
	RequestTimeout  time.Duration
	Temperature     float64
	MaxOutputTokens int
	ProviderConfig  map[string]any
}

func (o Options) normalized() Options {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = 10
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 250 * time.Millisecond
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 60 * time.Second
	}
	return o
}

// Annotator orchestrates one pass of chunked inference, normalization, and
// alignment.
type Annotator struct {
	infer   inference.Inference
	builder *prompt.Builder
	align   align.Config
	norm    normalize.Options
	opts    Options
	metrics *observability.Metrics
}

func New(infer inference.Inference, builder *prompt.Builder, alignCfg align.Config, normOpts normalize.Options, opts Options) *Annotator {
	return &Annotator{infer: infer, builder: builder, align: alignCfg, norm: normOpts, opts: opts.normalized(), metrics: observability.NoopMetrics()}
}

// WithMetrics attaches the OTel instruments the Annotator records through;
// passing nil restores the no-op default.
func (a *Annotator) WithMetrics(m *observability.Metrics) *Annotator {
	if m == nil {
		m = observability.NoopMetrics()
	}
	a.metrics = m
	return a
}

// AnnotatePass runs a single extraction pass over chunks, whose TokenInterval
// fields index into docTokens (the full document's token spans). Returns one
// extraction list per chunk, in chunk order, plus any degradation warnings.
func (a *Annotator) AnnotatePass(ctx context.Context, doc extract.Document, docTokens []extract.TokenSpan, chunks []extract.Chunk, pass int) ([][]extract.Extraction, []extract.Warning, error) {
	results := make([][]extract.Extraction, len(chunks))
	var (
		mu       sync.Mutex
		warnings []extract.Warning
	)

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, a.opts.MaxWorkers)

	for i := range chunks {
		i := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			prevText := ""
			if i > 0 {
				prevText = chunks[i-1].TextView
			}
			sourceTokens := docTokens[chunks[i].TokenInterval.Start:chunks[i].TokenInterval.End]

			extractions, warning, err := a.annotateChunk(gctx, doc, chunks[i], prevText, sourceTokens, pass)
			if err != nil {
				return err
			}
			results[i] = extractions
			if warning != nil {
				mu.Lock()
				warnings = append(warnings, *warning)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return results, warnings, nil
}

// annotateChunk drives the retry loop for a single chunk. Retriable
// failures exhaust their retries and then degrade to an empty extraction
// list plus a Warning; non-retriable failures — a provider config
// rejection or cancellation — return an error that aborts the whole
// pass.
func (a *Annotator) annotateChunk(ctx context.Context, doc extract.Document, chunk extract.Chunk, prevText string, sourceTokens []extract.TokenSpan, pass int) ([]extract.Extraction, *extract.Warning, error) {
	reminder := false
	start := time.Now()
	defer func() { a.metrics.RecordChunkDuration(ctx, time.Since(start)) }()

	for attempt := 0; attempt <= a.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			a.metrics.RecordChunkRetry(ctx)
			sleepBackoff(a.opts.BaseBackoff, attempt)
		}

		text := a.builder.Build(chunk, prevText)
		if reminder {
			text += "\n\nReminder: respond with valid JSON only."
		}

		callCtx, cancel := context.WithTimeout(ctx, a.opts.RequestTimeout)
		responses, err := a.infer.Infer(callCtx, []string{text}, inference.Options{
			Temperature:     a.opts.Temperature,
			MaxOutputTokens: a.opts.MaxOutputTokens,
			ProviderConfig:  a.opts.ProviderConfig,
		})
		cancel()

		if err != nil {
			// Providers wrap a cancelled request as a retriable runtime
			// error, so a cancelled pass is detected here and aborts.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			if !extract.IsRetriable(err) {
				return nil, nil, err
			}
			if attempt < a.opts.MaxRetries {
				continue
			}
			return nil, &extract.Warning{
				DocumentID: doc.ID,
				ChunkIndex: chunk.Index,
				Pass:       pass,
				Kind:       warningKind(err),
				Message:    err.Error(),
			}, nil
		}

		var raw string
		if len(responses) > 0 {
			raw = responses[0]
		}

		protos, err := normalize.Normalize(raw, a.norm)
		if err != nil {
			if attempt < a.opts.MaxRetries {
				reminder = true
				continue
			}
			return nil, &extract.Warning{
				DocumentID: doc.ID,
				ChunkIndex: chunk.Index,
				Pass:       pass,
				Kind:       "format_parse",
				Message:    err.Error(),
			}, nil
		}

		aligned := align.Align(toExtractions(protos), sourceTokens, a.align)
		for _, e := range aligned {
			a.metrics.RecordExtraction(ctx, e.AlignmentStatus.String())
		}
		return aligned, nil, nil
	}

	// Unreachable: the loop above always returns by its final iteration.
	return nil, nil, nil
}

// warningKind names a degraded chunk's failure after the typed error that
// exhausted its retries.
func warningKind(err error) string {
	var e *extract.Error
	if errors.As(err, &e) {
		return e.Kind.String()
	}
	return "inference_runtime"
}

func toExtractions(protos []normalize.ProtoExtraction) []extract.Extraction {
	out := make([]extract.Extraction, len(protos))
	for i, p := range protos {
		out[i] = extract.Extraction{
			Class:      p.Class,
			Text:       p.Text,
			Attributes: p.Attributes,
			GroupIndex: p.GroupIndex,
		}
	}
	return out
}

// sleepBackoff waits base*2^(attempt-1), jittered +/-20%.
func sleepBackoff(base time.Duration, attempt int) {
	d := base << uint(attempt-1)
	jitter := 1 + (rand.Float64()*0.4 - 0.2)
	time.Sleep(time.Duration(float64(d) * jitter))
}

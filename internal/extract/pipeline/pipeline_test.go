package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundedtext/extract/internal/extract"
	"github.com/groundedtext/extract/internal/extract/validate"
	"github.com/groundedtext/extract/internal/inference"
	"github.com/groundedtext/extract/internal/inference/fake"
)

func exampleSet() []extract.ExampleRecord {
	return []extract.ExampleRecord{
		{
			Text: "Patient takes aspirin daily.",
			Extractions: []extract.Extraction{
				{Class: "medication", Text: "aspirin"},
			},
		},
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	p := &fake.Provider{Resp: []string{`{"extractions":[]}`}}
	_, err := New(p, inference.DefaultSchemaAdapter{}, exampleSet(), Config{ExtractionPasses: 0})
	require.Error(t, err)

	_, err = New(p, inference.DefaultSchemaAdapter{}, exampleSet(), Config{ExtractionPasses: 1, MaxWorkers: -1})
	require.Error(t, err)

	_, err = New(p, inference.DefaultSchemaAdapter{}, exampleSet(), Config{ExtractionPasses: 1, FuzzyThreshold: 2})
	require.Error(t, err)
}

func TestNew_FailsFastOnUnalignableExampleAtErrorLevel(t *testing.T) {
	p := &fake.Provider{Resp: []string{`{"extractions":[]}`}}
	badExamples := []extract.ExampleRecord{
		{
			Text: "Patient takes aspirin daily.",
			Extractions: []extract.Extraction{
				{Class: "medication", Text: "a drug that does not appear verbatim anywhere"},
			},
		},
	}
	_, err := New(p, inference.DefaultSchemaAdapter{}, badExamples, Config{
		ExtractionPasses: 1,
		ValidationLevel:  validate.LevelError,
	})
	require.Error(t, err)
	var reportErr *extract.AlignmentReportErr
	require.ErrorAs(t, err, &reportErr)
	assert.Zero(t, p.Calls) // no inference call should have been attempted
}

func TestRunDocument_SinglePassMergesAndSorts(t *testing.T) {
	p := &fake.Provider{Resp: []string{`{"extractions":[{"medication":"aspirin"}]}`}}
	pl, err := New(p, inference.DefaultSchemaAdapter{}, exampleSet(), Config{
		ExtractionPasses: 1,
		MaxWorkers:       4,
		TaskDescription:  "Extract medications.",
	})
	require.NoError(t, err)

	doc := extract.Document{ID: "d1", Text: "Patient takes aspirin 500mg daily."}
	ad, err := pl.RunDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "d1", ad.DocumentID)
	require.Len(t, ad.Extractions, 1)
	assert.Equal(t, extract.Exact, ad.Extractions[0].AlignmentStatus)
}

func TestRunDocument_AttributeChildInheritsParentInterval(t *testing.T) {
	p := &fake.Provider{Resp: []string{`{"extractions":[{"medication":"aspirin 500mg","medication_attributes":{"frequency":"daily"}}]}`}}
	pl, err := New(p, inference.DefaultSchemaAdapter{}, exampleSet(), Config{
		ExtractionPasses: 1,
		MaxWorkers:       4,
		TaskDescription:  "Extract medications.",
	})
	require.NoError(t, err)

	doc := extract.Document{ID: "d1", Text: "Patient takes aspirin 500mg daily."}
	ad, err := pl.RunDocument(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, ad.Extractions, 2)

	parent, child := ad.Extractions[0], ad.Extractions[1]
	assert.Equal(t, "medication", parent.Class)
	require.NotNil(t, parent.CharInterval)
	assert.Equal(t, extract.CharInterval{Start: 14, End: 27}, *parent.CharInterval)
	assert.Equal(t, extract.Exact, parent.AlignmentStatus)

	assert.Equal(t, "medication_attributes", child.Class)
	require.NotNil(t, child.CharInterval)
	assert.Equal(t, *parent.CharInterval, *child.CharInterval)
	assert.Equal(t, extract.Exact, child.AlignmentStatus)
	assert.Equal(t, extract.StringValue("daily"), child.Attributes["frequency"])
}

func TestRunDocument_TwoPassesMerge(t *testing.T) {
	calls := 0
	p := &fake.Provider{Respond: func(ctx context.Context, prompts []string, opts inference.Options) ([]string, error) {
		calls++
		if calls%2 == 1 {
			return []string{`{"extractions":[{"medication":"aspirin"}]}`}, nil
		}
		return []string{`{"extractions":[{"dose":"500mg"}]}`}, nil
	}}
	pl, err := New(p, inference.DefaultSchemaAdapter{}, exampleSet(), Config{
		ExtractionPasses: 2,
		MaxWorkers:       4,
		TaskDescription:  "Extract medications and doses.",
	})
	require.NoError(t, err)

	doc := extract.Document{ID: "d1", Text: "Patient takes aspirin 500mg daily."}
	ad, err := pl.RunDocument(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, ad.Extractions, 2)
}

func TestRun_StopsAtFirstFatalError(t *testing.T) {
	p := &fake.Provider{Resp: []string{`{"extractions":[{"medication":"aspirin"}]}`}}
	pl, err := New(p, inference.DefaultSchemaAdapter{}, exampleSet(), Config{
		ExtractionPasses: 1,
		MaxWorkers:       4,
		TaskDescription:  "Extract medications.",
	})
	require.NoError(t, err)

	docs := []extract.Document{
		{ID: "d1", Text: "Patient takes aspirin 500mg daily."},
		{ID: "d2", Text: "   "}, // empty after trim, Chunk rejects it
	}
	out, err := pl.Run(context.Background(), docs)
	require.Error(t, err)
	assert.Len(t, out, 1)
}

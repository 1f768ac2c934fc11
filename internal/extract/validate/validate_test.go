package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundedtext/extract/internal/extract"
	"github.com/groundedtext/extract/internal/extract/align"
)

func TestValidate_ExactExample(t *testing.T) {
	examples := []extract.ExampleRecord{
		{
			Text: "Patient takes aspirin daily.",
			Extractions: []extract.Extraction{
				{Class: "medication", Text: "aspirin", GroupIndex: 0},
			},
		},
	}

	report := Validate(examples, align.Config{})
	require.Len(t, report, 1)
	assert.Equal(t, extract.Exact, report[0].Status)
	assert.Equal(t, 0, report[0].ExampleIndex)
	assert.Equal(t, 0, report[0].ExtractionIndex)
}

func TestValidate_UnalignedExample(t *testing.T) {
	examples := []extract.ExampleRecord{
		{
			Text: "The weather is sunny.",
			Extractions: []extract.Extraction{
				{Class: "medication", Text: "a phrase not present at all", GroupIndex: 0},
			},
		},
	}

	report := Validate(examples, align.Config{})
	require.Len(t, report, 1)
	assert.Equal(t, extract.Unaligned, report[0].Status)
}

func TestCheck_WarningLevelNeverFails(t *testing.T) {
	report := []extract.AlignmentReportEntry{{Status: extract.Unaligned}}
	assert.NoError(t, Check(report, LevelWarning))
	assert.NoError(t, Check(report, LevelOff))
}

func TestCheck_ErrorLevelFailsOnUnaligned(t *testing.T) {
	report := []extract.AlignmentReportEntry{
		{Status: extract.Exact},
		{Status: extract.Unaligned},
	}
	err := Check(report, LevelError)
	require.Error(t, err)

	var reportErr *extract.AlignmentReportErr
	require.ErrorAs(t, err, &reportErr)
	assert.Len(t, reportErr.Report, 1)
}

func TestCheck_ErrorLevelPassesWhenAllAligned(t *testing.T) {
	report := []extract.AlignmentReportEntry{
		{Status: extract.Exact},
		{Status: extract.Fuzzy},
		{Status: extract.Lesser},
	}
	assert.NoError(t, Check(report, LevelError))
}

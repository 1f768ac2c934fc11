// Package validate is the pipeline's pre-flight check: the Aligner is run
// against every few-shot example's own text, so a badly-worded example is
// caught before any inference call is spent on it. Validation is just
// alignment run against known answers instead of model output.
package validate

import (
	"github.com/groundedtext/extract/internal/extract"
	"github.com/groundedtext/extract/internal/extract/align"
	"github.com/groundedtext/extract/internal/extract/tok"
)

// Level gates which alignment statuses the pipeline treats as fatal.
// LevelWarning is the zero value so an unconfigured pipeline still surfaces
// misaligned examples.
type Level int

const (
	LevelWarning Level = iota
	LevelOff
	LevelError
)

// Validate runs the Aligner over every example's own extractions against its
// own text, producing one report entry per extraction in example order.
func Validate(examples []extract.ExampleRecord, cfg align.Config) []extract.AlignmentReportEntry {
	var report []extract.AlignmentReportEntry
	for exIdx, ex := range examples {
		tokens := tok.Spans(tok.Tokenize(ex.Text))
		aligned := align.Align(ex.Extractions, tokens, cfg)
		for extIdx, e := range aligned {
			report = append(report, extract.AlignmentReportEntry{
				ExampleIndex:    exIdx,
				ExtractionIndex: extIdx,
				Status:          e.AlignmentStatus,
				Reason:          reason(e),
			})
		}
	}
	return report
}

func reason(e extract.Extraction) string {
	switch e.AlignmentStatus {
	case extract.Exact:
		return "exact token-subsequence match"
	case extract.Fuzzy:
		return "fuzzy window match above threshold"
	case extract.Lesser:
		return "paraphrase subsequence match"
	default:
		return "no source span found for example text"
	}
}

// Check gates a report against level, returning an *AlignmentReportErr
// (fatal) when level is LevelError and any entry is UNALIGNED. WARNING and
// OFF never fail; at WARNING the caller logs the report instead.
func Check(report []extract.AlignmentReportEntry, level Level) error {
	if level != LevelError {
		return nil
	}
	var failing []extract.AlignmentReportEntry
	for _, entry := range report {
		if entry.Status == extract.Unaligned {
			failing = append(failing, entry)
		}
	}
	if len(failing) > 0 {
		return extract.NewAlignmentReportError(failing)
	}
	return nil
}

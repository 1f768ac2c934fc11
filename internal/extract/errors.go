package extract

import (
	"errors"
	"fmt"
)

// Kind tags the module's typed-error taxonomy.
type Kind int

const (
	KindInvalidInput Kind = iota
	KindSchema
	KindInferenceConfig
	KindInferenceRuntime
	KindInferenceOutput
	KindFormatParse
	KindAlignmentReport
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindSchema:
		return "schema"
	case KindInferenceConfig:
		return "inference_config"
	case KindInferenceRuntime:
		return "inference_runtime"
	case KindInferenceOutput:
		return "inference_output"
	case KindFormatParse:
		return "format_parse"
	case KindAlignmentReport:
		return "alignment_report"
	default:
		return "unknown"
	}
}

// Error is the root of the pipeline's typed error taxonomy. Every error the
// pipeline raises can be inspected via errors.As with a *extract.Error
// target and unwrapped to the underlying cause via errors.Unwrap.
type Error struct {
	Kind     Kind
	Message  string
	Original error
}

func (e *Error) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Original)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Original }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Original: cause}
}

func InvalidInputError(msg string, cause error) error {
	return newErr(KindInvalidInput, msg, cause)
}

func SchemaError(msg string, cause error) error {
	return newErr(KindSchema, msg, cause)
}

func InferenceConfigError(msg string, cause error) error {
	return newErr(KindInferenceConfig, msg, cause)
}

func InferenceRuntimeError(msg string, cause error) error {
	return newErr(KindInferenceRuntime, msg, cause)
}

func InferenceOutputError(msg string, cause error) error {
	return newErr(KindInferenceOutput, msg, cause)
}

func FormatParseError(msg string, cause error) error {
	return newErr(KindFormatParse, msg, cause)
}

// AlignmentReportErr carries the full pre-flight report so callers can
// render which examples failed validation and why.
type AlignmentReportErr struct {
	Err    *Error
	Report []AlignmentReportEntry
}

func NewAlignmentReportError(report []AlignmentReportEntry) error {
	return &AlignmentReportErr{
		Err:    newErr(KindAlignmentReport, "one or more examples failed alignment validation", nil),
		Report: report,
	}
}

func (e *AlignmentReportErr) Error() string { return e.Err.Error() }

func (e *AlignmentReportErr) Unwrap() error { return e.Err }

// IsRetriable reports whether err should be retried per the Annotator's
// per-chunk retry policy (runtime/transport failures, empty or malformed
// responses, unparseable output).
func IsRetriable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindInferenceRuntime || e.Kind == KindInferenceOutput || e.Kind == KindFormatParse
}

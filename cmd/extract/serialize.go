package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/groundedtext/extract/internal/extract"
)

// documentIn is the wire shape the CLI reads Documents in, either as a single
// JSON array or as JSON Lines (one Document per line).
type documentIn struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type extractionIn struct {
	Class      string         `json:"class"`
	Text       string         `json:"text"`
	Attributes map[string]any `json:"attributes,omitempty"`
	GroupIndex int            `json:"group_index,omitempty"`
}

type exampleIn struct {
	Text        string         `json:"text"`
	Extractions []extractionIn `json:"extractions"`
}

// readDocuments reads path (or stdin when path is "-"), accepting either a
// single JSON array of Document or JSON Lines.
func readDocuments(path string) ([]extract.Document, error) {
	r, closeFn, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" {
		return nil, fmt.Errorf("%s: no input documents", path)
	}

	var ins []documentIn
	if trimmed[0] == '[' {
		if err := json.Unmarshal([]byte(trimmed), &ins); err != nil {
			return nil, fmt.Errorf("parse document array: %w", err)
		}
	} else {
		scanner := bufio.NewScanner(strings.NewReader(trimmed))
		scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var d documentIn
			if err := json.Unmarshal([]byte(line), &d); err != nil {
				return nil, fmt.Errorf("parse document line: %w", err)
			}
			ins = append(ins, d)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan documents: %w", err)
		}
	}

	docs := make([]extract.Document, len(ins))
	for i, d := range ins {
		docs[i] = extract.Document{ID: d.ID, Text: d.Text}
	}
	return docs, nil
}

// readExamples reads a JSON array of ExampleRecord from path.
func readExamples(path string) ([]extract.ExampleRecord, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var ins []exampleIn
	if err := json.Unmarshal(b, &ins); err != nil {
		return nil, fmt.Errorf("parse examples: %w", err)
	}
	examples := make([]extract.ExampleRecord, len(ins))
	for i, ex := range ins {
		extractions := make([]extract.Extraction, len(ex.Extractions))
		for j, e := range ex.Extractions {
			extractions[j] = extract.Extraction{
				Class:      e.Class,
				Text:       e.Text,
				Attributes: attributesFromPlain(e.Attributes),
				GroupIndex: e.GroupIndex,
			}
		}
		examples[i] = extract.ExampleRecord{Text: ex.Text, Extractions: extractions}
	}
	return examples, nil
}

func attributesFromPlain(attrs map[string]any) map[string]extract.Value {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]extract.Value, len(attrs))
	for k, v := range attrs {
		out[k] = valueFromPlain(v)
	}
	return out
}

func valueFromPlain(v any) extract.Value {
	switch t := v.(type) {
	case string:
		return extract.StringValue(t)
	case float64:
		return extract.NumberValue(t)
	case bool:
		return extract.BoolValue(t)
	case []any:
		list := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				list = append(list, s)
			}
		}
		return extract.ListValue(list)
	default:
		return extract.NullValue()
	}
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" || path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

// charIntervalOut/tokenIntervalOut/extractionOut/warningOut/annotatedDocumentOut
// are the JSON Lines output shapes: alignment_status as the lowercase
// variant name, intervals as {start, end} objects, warnings omitted when
// empty.
type charIntervalOut struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type tokenIntervalOut struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type extractionOut struct {
	Class           string            `json:"class"`
	Text            string            `json:"text"`
	Attributes      map[string]any    `json:"attributes,omitempty"`
	CharInterval    *charIntervalOut  `json:"char_interval,omitempty"`
	TokenInterval   *tokenIntervalOut `json:"token_interval,omitempty"`
	AlignmentStatus string            `json:"alignment_status"`
	GroupIndex      int               `json:"group_index,omitempty"`
}

type warningOut struct {
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Pass       int    `json:"pass"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

type annotatedDocumentOut struct {
	DocumentID  string          `json:"document_id"`
	Text        string          `json:"text"`
	Extractions []extractionOut `json:"extractions"`
	Warnings    []warningOut    `json:"warnings,omitempty"`
}

func toAnnotatedDocumentOut(ad extract.AnnotatedDocument) annotatedDocumentOut {
	out := annotatedDocumentOut{
		DocumentID:  ad.DocumentID,
		Text:        ad.Text,
		Extractions: make([]extractionOut, len(ad.Extractions)),
	}
	for i, e := range ad.Extractions {
		eo := extractionOut{
			Class:           e.Class,
			Text:            e.Text,
			Attributes:      attributesToPlain(e.Attributes),
			AlignmentStatus: e.AlignmentStatus.String(),
			GroupIndex:      e.GroupIndex,
		}
		if e.CharInterval != nil {
			eo.CharInterval = &charIntervalOut{Start: e.CharInterval.Start, End: e.CharInterval.End}
		}
		if e.TokenInterval != nil {
			eo.TokenInterval = &tokenIntervalOut{Start: e.TokenInterval.Start, End: e.TokenInterval.End}
		}
		out.Extractions[i] = eo
	}
	for _, w := range ad.Warnings {
		out.Warnings = append(out.Warnings, warningOut{
			DocumentID: w.DocumentID,
			ChunkIndex: w.ChunkIndex,
			Pass:       w.Pass,
			Kind:       w.Kind,
			Message:    w.Message,
		})
	}
	return out
}

func attributesToPlain(attrs map[string]extract.Value) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		switch v.Kind {
		case extract.KindString:
			out[k] = v.Str
		case extract.KindNumber:
			out[k] = v.Num
		case extract.KindBool:
			out[k] = v.Bool
		case extract.KindList:
			out[k] = v.List
		default:
			out[k] = nil
		}
	}
	return out
}

// Package normalize turns raw LLM output into an ordered list of
// proto-extractions: reasoning blocks and code fences are stripped, the
// body is parsed as JSON or YAML, and the parsed value is coerced into the
// accepted element shapes.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/groundedtext/extract/internal/extract"
)

// ProtoExtraction is a parsed-but-unaligned extraction candidate.
type ProtoExtraction struct {
	Class      string
	Text       string
	Attributes map[string]extract.Value
	GroupIndex int
}

// Options configures wrapper-key and attribute-suffix conventions.
type Options struct {
	WrapperKey      string // default "extractions"
	AttributeSuffix string // default "_attributes"
}

func (o Options) normalized() Options {
	if o.WrapperKey == "" {
		o.WrapperKey = "extractions"
	}
	if o.AttributeSuffix == "" {
		o.AttributeSuffix = "_attributes"
	}
	return o
}

var (
	thinkBlockRe = regexp.MustCompile(`(?is)<think>.*?</think>`)
	fenceRe      = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\\s*\\n(.*?)\\n?```")
)

// Normalize strips <think> blocks and code fences, parses the remaining
// body as JSON or YAML (honoring the fence's language hint for parse
// order), and returns an ordered list of proto-extractions.
func Normalize(raw string, opts Options) ([]ProtoExtraction, error) {
	opts = opts.normalized()

	body := thinkBlockRe.ReplaceAllString(raw, "")
	order := []string{"json", "yaml"}
	if m := fenceRe.FindStringSubmatch(body); m != nil {
		body = m[2]
		switch strings.ToLower(strings.TrimSpace(m[1])) {
		case "json":
			order = []string{"json"}
		case "yaml", "yml":
			order = []string{"yaml"}
		}
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, extract.FormatParseError("normalized output is empty", nil)
	}

	var parsed any
	var lastErr error
	parsedOK := false
	for _, kind := range order {
		var err error
		switch kind {
		case "json":
			err = json.Unmarshal([]byte(body), &parsed)
		case "yaml":
			err = yaml.Unmarshal([]byte(body), &parsed)
		}
		if err == nil {
			parsedOK = true
			break
		}
		lastErr = err
	}
	if !parsedOK {
		return nil, extract.FormatParseError("output unparseable as JSON or YAML", lastErr)
	}

	elements, err := toElementList(parsed, opts)
	if err != nil {
		return nil, extract.FormatParseError("unexpected output shape", err)
	}

	out := make([]ProtoExtraction, 0, len(elements))
	for i, el := range elements {
		obj, ok := asObject(el)
		if !ok {
			return nil, extract.FormatParseError(fmt.Sprintf("element %d is not an object", i), nil)
		}
		protos, err := parseElement(obj, opts)
		if err != nil {
			return nil, extract.FormatParseError(fmt.Sprintf("element %d: %v", i, err), err)
		}
		for j := range protos {
			protos[j].GroupIndex = i
		}
		out = append(out, protos...)
	}
	return out, nil
}

func toElementList(parsed any, opts Options) ([]any, error) {
	switch v := parsed.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if wrapped, ok := v[opts.WrapperKey]; ok {
			list, ok := wrapped.([]any)
			if !ok {
				return nil, fmt.Errorf("wrapper key %q is not a list", opts.WrapperKey)
			}
			return list, nil
		}
		return []any{v}, nil
	default:
		return nil, fmt.Errorf("top-level value is neither an object nor a list")
	}
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		// yaml.v3 can decode plain maps with non-string keys; convert.
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprintf("%v", k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// parseElement accepts either the explicit {class, text, attributes} shape
// or the implicit {class: text, class+suffix: attributes} shape. Unknown
// keys are preserved as attributes. An implicit element's attribute bag
// comes back as its own attribute extraction (empty text, class+suffix) so
// the Aligner can give it the parent's span via their shared group index.
func parseElement(obj map[string]any, opts Options) ([]ProtoExtraction, error) {
	if cls, ok := obj["class"]; ok {
		pe := ProtoExtraction{Attributes: map[string]extract.Value{}}
		pe.Class = fmt.Sprintf("%v", cls)
		if txt, ok := obj["text"]; ok {
			pe.Text, _ = txt.(string)
		}
		if attrs, ok := obj["attributes"]; ok {
			m, ok := asObject(attrs)
			if !ok {
				return nil, fmt.Errorf("attributes is not an object")
			}
			for k, v := range m {
				pe.Attributes[k] = toValue(v)
			}
		}
		for k, v := range obj {
			if k == "class" || k == "text" || k == "attributes" {
				continue
			}
			pe.Attributes[k] = toValue(v)
		}
		return []ProtoExtraction{pe}, nil
	}

	// Implicit shape: find the single class key (not ending in the
	// attribute suffix) that carries the span text.
	var classKey string
	found := 0
	for k, v := range obj {
		if strings.HasSuffix(k, opts.AttributeSuffix) {
			continue
		}
		if _, isStr := v.(string); isStr {
			classKey = k
			found++
		}
	}
	if found == 0 {
		// An element that is only an attribute bag still parses; with no
		// span-carrying sibling in the same element it will surface
		// UNALIGNED downstream rather than failing the whole chunk.
		return attributeOnlyElement(obj, opts)
	}
	if found > 1 {
		return nil, fmt.Errorf("expected exactly one class key carrying text, found %d", found)
	}

	pe := ProtoExtraction{Class: classKey, Text: obj[classKey].(string), Attributes: map[string]extract.Value{}}
	attrKey := classKey + opts.AttributeSuffix
	out := []ProtoExtraction{pe}
	if attrs, ok := obj[attrKey]; ok {
		m, ok := asObject(attrs)
		if !ok {
			return nil, fmt.Errorf("%s is not an object", attrKey)
		}
		child := ProtoExtraction{Class: attrKey, Attributes: make(map[string]extract.Value, len(m))}
		for k, v := range m {
			child.Attributes[k] = toValue(v)
		}
		out = append(out, child)
	}
	for k, v := range obj {
		if k == classKey || k == attrKey {
			continue
		}
		out[0].Attributes[k] = toValue(v)
	}
	return out, nil
}

func attributeOnlyElement(obj map[string]any, opts Options) ([]ProtoExtraction, error) {
	var attrKey string
	count := 0
	for k := range obj {
		if strings.HasSuffix(k, opts.AttributeSuffix) {
			attrKey = k
			count++
		}
	}
	if count != 1 {
		return nil, fmt.Errorf("expected exactly one class key carrying text, found 0")
	}
	m, ok := asObject(obj[attrKey])
	if !ok {
		return nil, fmt.Errorf("%s is not an object", attrKey)
	}
	pe := ProtoExtraction{Class: attrKey, Attributes: make(map[string]extract.Value, len(m))}
	for k, v := range m {
		pe.Attributes[k] = toValue(v)
	}
	return []ProtoExtraction{pe}, nil
}

func toValue(v any) extract.Value {
	switch t := v.(type) {
	case nil:
		return extract.NullValue()
	case string:
		return extract.StringValue(t)
	case bool:
		return extract.BoolValue(t)
	case float64:
		return extract.NumberValue(t)
	case int:
		return extract.NumberValue(float64(t))
	case []any:
		list := make([]string, 0, len(t))
		for _, item := range t {
			list = append(list, fmt.Sprintf("%v", item))
		}
		return extract.ListValue(list)
	default:
		return extract.StringValue(fmt.Sprintf("%v", t))
	}
}

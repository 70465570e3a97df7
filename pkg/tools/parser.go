package tools

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	maxCallBytes     = 10 << 20
	argumentsTagName = "arguments"
	snippetLimit     = 200
)

// ErrNoToolCall is returned when a response contains no <tool> element.
var ErrNoToolCall = errors.New("no tool call found in text")

var (
	callPattern = regexp.MustCompile(`(?s)<tool>.*?</tool>`)

	// &amp; &lt; &gt; &quot; &apos; and numeric references
	entityPattern = regexp.MustCompile(`&(?:amp|lt|gt|quot|apos|#\d+|#x[0-9a-fA-F]+);`)
)

// ParseToolCall decodes the first <tool> element in a planner reply. The
// trimmed text preceding it is returned as the planner's reasoning.
func ParseToolCall(text string) (*ToolCall, string, error) {
	if len(text) > maxCallBytes {
		return nil, text, fmt.Errorf("planner reply is %d bytes, limit is %d", len(text), maxCallBytes)
	}

	span := callPattern.FindStringIndex(text)
	if span == nil {
		return nil, text, ErrNoToolCall
	}
	reasoning := strings.TrimSpace(text[:span[0]])
	raw := text[span[0]:span[1]]

	call := new(ToolCall)
	if err := DecodeLenient([]byte(raw), call); err != nil {
		if len(raw) > snippetLimit {
			raw = raw[:snippetLimit] + "..."
		}
		return nil, reasoning, fmt.Errorf("failed to unmarshal tool call XML: %w\nXML snippet: %s", err, raw)
	}

	if call.ToolName = strings.TrimSpace(call.ToolName); call.ToolName == "" {
		return nil, reasoning, errors.New("tool_name is required in tool call")
	}
	return call, reasoning, nil
}

// HasToolCall reports whether text contains a <tool> element.
func HasToolCall(text string) bool {
	return callPattern.MatchString(text)
}

// DecodeLenient unmarshals XML, retrying once with bare ampersands escaped.
// Models routinely emit URLs with raw query strings inside arguments.
func DecodeLenient(data []byte, v interface{}) error {
	if err := xml.Unmarshal(data, v); err == nil {
		return nil
	}
	return xml.Unmarshal(escapeBareAmpersands(data), v)
}

func escapeBareAmpersands(data []byte) []byte {
	entities := map[int]struct{}{}
	for _, m := range entityPattern.FindAllIndex(data, -1) {
		entities[m[0]] = struct{}{}
	}

	out := make([]byte, 0, len(data)+16)
	for i, b := range data {
		if b != '&' {
			out = append(out, b)
			continue
		}
		if _, ok := entities[i]; ok {
			out = append(out, b)
		} else {
			out = append(out, "&amp;"...)
		}
	}
	return out
}

// XMLToMap converts the direct children of an <arguments> element into a map
// of their raw character data. CDATA sections are unwrapped by the decoder.
// Whitespace is left for Normalize to handle per parameter.
func XMLToMap(data []byte) (map[string]interface{}, error) {
	dec := xml.NewDecoder(bytes.NewReader(escapeBareAmpersands(data)))
	result := map[string]interface{}{}

	var path []string
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode arguments: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			path = append(path, t.Name.Local)
			text.Reset()

		case xml.EndElement:
			if len(path) == 0 {
				continue
			}
			name := path[len(path)-1]
			path = path[:len(path)-1]

			if len(path) == 1 && path[0] == argumentsTagName {
				result[name] = text.String()
			}
			text.Reset()

		case xml.CharData:
			text.Write(t)
		}
	}

	return result, nil
}

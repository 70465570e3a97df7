// Package tools defines the XML tool-call format exchanged with the planner
// and the parameter schema of callable operations.
package tools

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ToolCall represents a parsed tool invocation from the planner's response.
//
// Example:
//
//	<tool>
//	<tool_name>click_element</tool_name>
//	<arguments>
//	  <selector>#search-button</selector>
//	</arguments>
//	</tool>
type ToolCall struct {
	XMLName   xml.Name       `xml:"tool"`
	ToolName  string         `xml:"tool_name"`
	Arguments ArgumentsBlock `xml:"arguments"`
}

// ArgumentsBlock keeps <arguments> undecoded so each operation can read it flat.
type ArgumentsBlock struct {
	InnerXML []byte `xml:",innerxml"`
}

// NewToolCall builds a call to name with flat string arguments.
func NewToolCall(name string, args map[string]string) *ToolCall {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var inner strings.Builder
	for _, k := range keys {
		inner.WriteString("<" + k + ">")
		_ = xml.EscapeText(&inner, []byte(args[k]))
		inner.WriteString("</" + k + ">")
	}
	return &ToolCall{ToolName: name, Arguments: ArgumentsBlock{InnerXML: []byte(inner.String())}}
}

// GetArgumentsXML re-wraps the raw arguments in their <arguments> element.
func (tc *ToolCall) GetArgumentsXML() []byte {
	var b bytes.Buffer
	b.Grow(len(tc.Arguments.InnerXML) + 2*len(argumentsTagName) + 5)
	b.WriteString("<" + argumentsTagName + ">")
	b.Write(tc.Arguments.InnerXML)
	b.WriteString("</" + argumentsTagName + ">")
	return b.Bytes()
}

// Args decodes the call's arguments into a flat map.
func (tc *ToolCall) Args() (Args, error) {
	m, err := XMLToMap(tc.GetArgumentsXML())
	if err != nil {
		return nil, err
	}
	args := make(Args, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			args[k] = s
		}
	}
	return args, nil
}

// String renders the call in the planner's XML format.
func (tc *ToolCall) String() string {
	return fmt.Sprintf("<tool>\n<tool_name>%s</tool_name>\n<arguments>%s</arguments>\n</tool>", tc.ToolName, tc.Arguments.InnerXML)
}

// Args holds flat string arguments.
type Args map[string]string

// String returns the named argument or def when absent.
func (a Args) String(name, def string) string {
	if v, ok := a[name]; ok && v != "" {
		return v
	}
	return def
}

// Int returns the named argument parsed as an integer, or def when absent.
func (a Args) Int(name string, def int) (int, error) {
	v, ok := a[name]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("argument %q must be an integer, got %q", name, v)
	}
	return n, nil
}

// Param describes one operation parameter.
type Param struct {
	Name        string
	Type        string // "string" or "integer"
	Description string
	Required    bool
	Default     string

	// Verbatim keeps surrounding spaces in the value, dropping only the line
	// breaks that frame it inside the XML element.
	Verbatim bool
}

// Normalize returns args with whitespace trimmed per parameter. Values of
// Verbatim parameters keep their spaces; everything else is TrimSpace'd.
func Normalize(params []Param, args Args) Args {
	verbatim := make(map[string]bool, len(params))
	for _, p := range params {
		verbatim[p.Name] = p.Verbatim
	}

	out := make(Args, len(args))
	for k, v := range args {
		if verbatim[k] {
			out[k] = strings.Trim(v, "\r\n")
		} else {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

// Validate checks that every required parameter is present.
func Validate(params []Param, args Args) error {
	var missing []string
	for _, p := range params {
		if p.Required && args[p.Name] == "" {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required argument(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// Spec describes a callable operation to a planner.
type Spec struct {
	Name        string
	Description string
	Params      []Param

	// Finishing marks the operation that ends the run.
	Finishing bool
}

// Usage renders an example invocation with placeholder values.
func (s Spec) Usage() string {
	args := make(map[string]string, len(s.Params))
	for _, p := range s.Params {
		if p.Required {
			args[p.Name] = p.Name
		}
	}
	return NewToolCall(s.Name, args).String()
}

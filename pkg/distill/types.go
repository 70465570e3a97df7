package distill

import (
	"encoding/json"
	"fmt"
)

// MaxSampleRows bounds the rows kept per table.
const MaxSampleRows = 3

// ControlKind tags a form control variant.
type ControlKind string

const (
	KindSelect ControlKind = "select"
	KindInput  ControlKind = "input"
	KindButton ControlKind = "button"
)

// Control describes one form control. Which fields are meaningful depends on
// Kind: Select uses Label and Options, Input uses InputType, Label and
// Placeholder, Button uses Text.
type Control struct {
	Kind        ControlKind
	Label       *string
	Options     []string
	InputType   string
	Placeholder *string
	Text        string
}

type selectJSON struct {
	Kind    ControlKind `json:"kind"`
	Label   *string     `json:"label"`
	Options []string    `json:"options"`
}

type inputJSON struct {
	Kind        ControlKind `json:"kind"`
	InputType   string      `json:"input_type"`
	Label       *string     `json:"label"`
	Placeholder *string     `json:"placeholder"`
}

type buttonJSON struct {
	Kind ControlKind `json:"kind"`
	Text string      `json:"text"`
}

// MarshalJSON emits only the fields of the control's variant.
func (c Control) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case KindSelect:
		options := c.Options
		if options == nil {
			options = []string{}
		}
		return json.Marshal(selectJSON{Kind: c.Kind, Label: c.Label, Options: options})
	case KindInput:
		return json.Marshal(inputJSON{Kind: c.Kind, InputType: c.InputType, Label: c.Label, Placeholder: c.Placeholder})
	case KindButton:
		return json.Marshal(buttonJSON{Kind: c.Kind, Text: c.Text})
	default:
		return nil, fmt.Errorf("unknown control kind %q", c.Kind)
	}
}

// UnmarshalJSON decodes any of the variant encodings.
func (c *Control) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind        ControlKind `json:"kind"`
		Label       *string     `json:"label"`
		Options     []string    `json:"options"`
		InputType   string      `json:"input_type"`
		Placeholder *string     `json:"placeholder"`
		Text        string      `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case KindSelect:
		*c = Control{Kind: raw.Kind, Label: raw.Label, Options: raw.Options}
	case KindInput:
		*c = Control{Kind: raw.Kind, InputType: raw.InputType, Label: raw.Label, Placeholder: raw.Placeholder}
	case KindButton:
		*c = Control{Kind: raw.Kind, Text: raw.Text}
	default:
		return fmt.Errorf("unknown control kind %q", raw.Kind)
	}
	return nil
}

// Form describes one form element and its controls in document order.
type Form struct {
	ID       *string   `json:"id"`
	Action   *string   `json:"action"`
	Controls []Control `json:"controls"`
}

// Table describes a table's headers and its first data rows.
type Table struct {
	ID         *string    `json:"id"`
	Headers    []string   `json:"headers"`
	SampleRows [][]string `json:"sample_rows"`
}

// Page is the distilled summary of a document.
type Page struct {
	Forms  []Form  `json:"forms"`
	Tables []Table `json:"tables"`
}

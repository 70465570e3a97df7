package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Sentinels written in place of an empty header or data section.
const (
	NoHeader = "No header found."
	NoData   = "No data found."
)

// Table is the extraction result: column titles and rows of cells.
type Table struct {
	Header []string
	Data   [][]string
}

// Empty reports whether the table has neither header nor data.
func (t *Table) Empty() bool {
	return len(t.Header) == 0 && len(t.Data) == 0
}

type tableJSON struct {
	Header any `json:"header"`
	Data   any `json:"data"`
}

// MarshalJSON writes {"header": [...], "data": [[...]]}, substituting the
// sentinel strings for empty sections.
func (t Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{Header: NoHeader, Data: NoData}
	if len(t.Header) > 0 {
		out.Header = t.Header
	}
	if len(t.Data) > 0 {
		out.Data = t.Data
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both the list and the sentinel form of each section.
// Non-string cells are converted to their JSON text.
func (t *Table) UnmarshalJSON(b []byte) error {
	var raw struct {
		Header json.RawMessage `json:"header"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	t.Header = nil
	t.Data = nil

	if isList(raw.Header) {
		var cells []any
		if err := json.Unmarshal(raw.Header, &cells); err != nil {
			return fmt.Errorf("invalid header: %w", err)
		}
		t.Header = cellStrings(cells)
	}

	if isList(raw.Data) {
		var rows [][]any
		if err := json.Unmarshal(raw.Data, &rows); err != nil {
			return fmt.Errorf("invalid data: %w", err)
		}
		for _, row := range rows {
			t.Data = append(t.Data, cellStrings(row))
		}
	}
	return nil
}

func isList(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func cellStrings(cells []any) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		switch v := c.(type) {
		case string:
			out = append(out, strings.TrimSpace(v))
		case nil:
			out = append(out, "")
		default:
			b, _ := json.Marshal(v)
			out = append(out, string(b))
		}
	}
	return out
}

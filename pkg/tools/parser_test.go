package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCall(t *testing.T) {
	text := `I should submit the search form first.
<tool>
<tool_name>click_element</tool_name>
<arguments>
  <selector>#search-button</selector>
</arguments>
</tool>
trailing text`

	call, reasoning, err := ParseToolCall(text)
	require.NoError(t, err)
	assert.Equal(t, "click_element", call.ToolName)
	assert.Equal(t, "I should submit the search form first.", reasoning)

	args, err := call.Args()
	require.NoError(t, err)
	assert.Equal(t, Args{"selector": "#search-button"}, args)
}

func TestParseToolCall_Errors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{name: "no call", text: "I am done thinking", wantErr: "no tool call found"},
		{name: "missing name", text: "<tool><arguments></arguments></tool>", wantErr: "tool_name is required"},
		{name: "broken xml", text: "<tool><tool_name>x</tool_name><arguments><a></arguments></tool>", wantErr: "failed to unmarshal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseToolCall(tt.text)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, _, err := ParseToolCall("plain")
	assert.ErrorIs(t, err, ErrNoToolCall)
}

func TestParseToolCall_UnescapedAmpersand(t *testing.T) {
	text := `<tool><tool_name>navigate_to_url</tool_name><arguments><url>https://example.com/?a=1&b=2</url></arguments></tool>`

	call, _, err := ParseToolCall(text)
	require.NoError(t, err)

	args, err := call.Args()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/?a=1&b=2", args["url"])
}

func TestParseToolCall_CDATA(t *testing.T) {
	text := `<tool><tool_name>read_element_text</tool_name><arguments><selector><![CDATA[a[href="/x"] > span]]></selector></arguments></tool>`

	call, _, err := ParseToolCall(text)
	require.NoError(t, err)

	args, err := call.Args()
	require.NoError(t, err)
	assert.Equal(t, `a[href="/x"] > span`, args["selector"])
}

func TestNewToolCall_RoundTrip(t *testing.T) {
	call := NewToolCall("type_into_element", map[string]string{
		"selector": "#q",
		"text":     "ham & eggs <fresh>",
	})

	parsed, _, err := ParseToolCall(call.String())
	require.NoError(t, err)
	assert.Equal(t, "type_into_element", parsed.ToolName)

	args, err := parsed.Args()
	require.NoError(t, err)
	assert.Equal(t, "ham & eggs <fresh>", args["text"])
	assert.Equal(t, "#q", args["selector"])
}

func TestHasToolCall(t *testing.T) {
	assert.True(t, HasToolCall("x <tool><tool_name>a</tool_name></tool>"))
	assert.False(t, HasToolCall("no call here"))
}

func TestArgs(t *testing.T) {
	args := Args{"timeout": "5", "bad": "five"}

	n, err := args.Int("timeout", 30)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = args.Int("missing", 30)
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	_, err = args.Int("bad", 30)
	assert.Error(t, err)

	assert.Equal(t, "body", args.String("selector", "body"))
}

func TestValidate(t *testing.T) {
	params := []Param{
		{Name: "selector", Type: "string", Description: "CSS selector", Required: true},
		{Name: "timeout", Type: "integer", Description: "Seconds", Default: "30"},
	}

	assert.NoError(t, Validate(params, Args{"selector": "#a"}))
	err := Validate(params, Args{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selector")
}

func TestXMLToMap_KeepsRawText(t *testing.T) {
	m, err := XMLToMap([]byte("<arguments>\n  <selector> #q </selector>\n  <text>  oak  </text>\n  <empty></empty>\n</arguments>"))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"selector": " #q ",
		"text":     "  oak  ",
		"empty":    "",
	}, m)
}

func TestNormalize(t *testing.T) {
	params := []Param{
		{Name: "selector", Type: "string", Required: true},
		{Name: "text", Type: "string", Required: true, Verbatim: true},
	}

	args := Normalize(params, Args{
		"selector": "\n  #q  \n",
		"text":     "\n  oak tree  \r\n",
		"extra":    "  x  ",
	})
	assert.Equal(t, Args{"selector": "#q", "text": "  oak tree  ", "extra": "x"}, args)

	blank := Normalize(params, Args{"selector": "   ", "text": "   "})
	err := Validate(params, blank)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selector")
	assert.NotContains(t, err.Error(), "text")
}

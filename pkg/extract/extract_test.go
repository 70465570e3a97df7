package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/handoff"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/navigator"
	"github.com/entrhq/webpilot/pkg/types"
)

func TestRun_UnsetHandoffShortCircuits(t *testing.T) {
	called := false
	ex := Func(func(ctx context.Context, html, task string) (*Table, error) {
		called = true
		return &Table{}, nil
	})

	table, err := Run(context.Background(), handoff.New(), ex, "task")
	assert.Nil(t, table)
	assert.ErrorIs(t, err, navigator.ErrNavigationFailed)
	assert.False(t, called)

	_, err = Run(context.Background(), nil, ex, "task")
	assert.ErrorIs(t, err, navigator.ErrNavigationFailed)
	assert.False(t, called)
}

func TestRun_PassesFragment(t *testing.T) {
	h := handoff.New()
	require.NoError(t, h.Set("#results", "<table><tr><td>Oak</td></tr></table>"))

	var gotHTML, gotTask string
	ex := Func(func(ctx context.Context, html, task string) (*Table, error) {
		gotHTML, gotTask = html, task
		return &Table{Data: [][]string{{"Oak"}}}, nil
	})

	table, err := Run(context.Background(), h, ex, "list trees")
	require.NoError(t, err)
	assert.Equal(t, "<table><tr><td>Oak</td></tr></table>", gotHTML)
	assert.Equal(t, "list trees", gotTask)
	assert.Equal(t, [][]string{{"Oak"}}, table.Data)
}

func TestRun_ExtractorError(t *testing.T) {
	h := handoff.New()
	require.NoError(t, h.Set("#r", "<p>x</p>"))
	boom := errors.New("boom")

	_, err := Run(context.Background(), h, Func(func(ctx context.Context, html, task string) (*Table, error) {
		return nil, boom
	}), "t")
	assert.ErrorIs(t, err, boom)
}

func TestTable_JSON(t *testing.T) {
	full := Table{Header: []string{"Name", "Weight"}, Data: [][]string{{"Oak", "3t"}}}
	b, err := json.Marshal(full)
	require.NoError(t, err)
	assert.JSONEq(t, `{"header":["Name","Weight"],"data":[["Oak","3t"]]}`, string(b))

	b, err = json.Marshal(Table{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"header":"No header found.","data":"No data found."}`, string(b))

	var parsed Table
	require.NoError(t, json.Unmarshal([]byte(`{"header":"No header found.","data":[["a", 1, null]]}`), &parsed))
	assert.Empty(t, parsed.Header)
	assert.Equal(t, [][]string{{"a", "1", ""}}, parsed.Data)

	require.NoError(t, json.Unmarshal([]byte(`{"header":["h"],"data":"No data found."}`), &parsed))
	assert.Equal(t, []string{"h"}, parsed.Header)
	assert.Nil(t, parsed.Data)
}

func TestTableExtractor(t *testing.T) {
	html := `<div id="results"><table>
		<tr><th>Name</th><th>Weight</th></tr>
		<tr><td>Oak</td><td> 3 t </td></tr>
		<tr><td>Pine</td><td>2 t</td></tr>
	</table></div>`

	table, err := TableExtractor{}.Extract(context.Background(), html, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Weight"}, table.Header)
	assert.Equal(t, [][]string{{"Oak", "3 t"}, {"Pine", "2 t"}}, table.Data)

	table, err = TableExtractor{}.Extract(context.Background(), "<p>nothing</p>", "")
	require.NoError(t, err)
	assert.True(t, table.Empty())
}

type replyProvider struct {
	reply    string
	messages []*types.Message
}

func (p *replyProvider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	return nil, errors.New("not implemented")
}

func (p *replyProvider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	p.messages = messages
	return types.NewAssistantMessage(p.reply), nil
}

func (p *replyProvider) GetModelInfo() *types.ModelInfo { return &types.ModelInfo{} }
func (p *replyProvider) GetModel() string               { return "test" }

func TestLLMExtractor(t *testing.T) {
	provider := &replyProvider{reply: "Here you go:\n```json\n{\"header\": [\"Name\"], \"data\": [[\"Oak\"]]}\n```"}
	ex := NewLLMExtractor(provider)

	table, err := ex.Extract(context.Background(), `<div><script>x()</script><td>Oak</td></div>`, "list trees")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name"}, table.Header)
	assert.Equal(t, [][]string{{"Oak"}}, table.Data)

	require.Len(t, provider.messages, 2)
	assert.Contains(t, provider.messages[0].Content, NoHeader)
	assert.Contains(t, provider.messages[1].Content, "list trees")
	assert.NotContains(t, provider.messages[1].Content, "x()")
}

func TestParseTable_Errors(t *testing.T) {
	_, err := ParseTable("no json here")
	assert.ErrorContains(t, err, "no JSON object")

	_, err = ParseTable(`{"header": [1,}`)
	assert.Error(t, err)
}

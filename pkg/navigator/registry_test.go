package navigator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/browser/browsertest"
	"github.com/entrhq/webpilot/pkg/planner"
	"github.com/entrhq/webpilot/pkg/tools"
)

func noop(ctx context.Context, args tools.Args) (browser.Outcome, error) {
	return browser.Success("ok"), nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Operation{Name: "a", Handler: noop}))

	assert.ErrorContains(t, r.Register(Operation{Name: "a", Handler: noop}), "already registered")
	assert.ErrorContains(t, r.Register(Operation{Handler: noop}), "name is required")
	assert.ErrorContains(t, r.Register(Operation{Name: "b"}), "no handler")

	_, ok := r.Lookup("a")
	assert.True(t, ok)
	_, ok = r.Lookup("b")
	assert.False(t, ok)
}

func TestRegistry_Invoke(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Operation{
		Name:   "echo",
		Params: []tools.Param{{Name: "text", Type: "string", Required: true}},
		Handler: func(ctx context.Context, args tools.Args) (browser.Outcome, error) {
			return browser.Success(args["text"]), nil
		},
	}))

	_, out, ran, err := r.Invoke(context.Background(), tools.NewToolCall("echo", map[string]string{"text": "hi"}))
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "hi", out.Message)

	_, out, ran, err = r.Invoke(context.Background(), tools.NewToolCall("echo", nil))
	require.NoError(t, err)
	assert.False(t, ran)
	assert.False(t, out.OK)
	assert.Contains(t, out.Message, "Invalid arguments for 'echo'")

	_, out, ran, err = r.Invoke(context.Background(), tools.NewToolCall("nope", nil))
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, "Error: Unknown tool 'nope'. Available tools: echo.", out.Message)
}

func TestNavigatorOperations(t *testing.T) {
	tab := browsertest.NewTab("https://example.com")
	session, _, err := browsertest.StartedSession(context.Background(), tab)
	require.NoError(t, err)
	defer session.Stop()

	nav, err := New(session, planner.NewScript())
	require.NoError(t, err)

	assert.Equal(t, []string{
		OpGetCurrentURL, OpListInteractiveElements, OpReadElementText,
		OpTypeIntoElement, OpClickElement, OpSelectDropdownOption,
		OpNavigateToURL, OpScrollPage, OpWaitLoading,
		OpGetBodyContent, OpGetHeadContent, OpGetDistilledDOM,
		OpCommitAndFinish,
	}, nav.Registry().Names())

	var finishing []string
	for _, spec := range nav.Registry().Specs() {
		if spec.Finishing {
			finishing = append(finishing, spec.Name)
		}
	}
	assert.Equal(t, []string{OpCommitAndFinish}, finishing)

	wait, ok := nav.Registry().Lookup(OpWaitLoading)
	require.True(t, ok)
	assert.Equal(t, "30", wait.Params[1].Default)
	assert.Equal(t, PhaseVerifying, wait.Kind.Target())

	click, _ := nav.Registry().Lookup(OpClickElement)
	assert.Equal(t, PhaseActing, click.Kind.Target())
}

func TestRenderOutcome(t *testing.T) {
	out := browser.Success("Found 1 interactive elements.")
	out.Data = []browser.InteractiveElement{{Tag: "button", Text: "Go", CSSSelector: "#go"}}

	rendered := renderOutcome(out)
	assert.Contains(t, rendered, "Found 1 interactive elements.\n[")
	assert.Contains(t, rendered, `"css_selector": "#go"`)

	assert.Equal(t, "plain", renderOutcome(browser.Failure("plain")))
}

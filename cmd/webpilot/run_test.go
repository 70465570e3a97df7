package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/browser/browsertest"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/extract"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/navigator"
	"github.com/entrhq/webpilot/pkg/types"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "webpilot-cmd-logs")
	if err != nil {
		panic(err)
	}
	logging.Configure(logging.Options{Dir: dir, Level: "debug"})
	code := m.Run()
	_ = logging.Shutdown()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type cannedProvider struct {
	mu      sync.Mutex
	replies []string
}

func (p *cannedProvider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	return nil, errors.New("not implemented")
}

func (p *cannedProvider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.replies) == 0 {
		return types.NewAssistantMessage(""), nil
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	return types.NewAssistantMessage(reply), nil
}

func (p *cannedProvider) GetModelInfo() *types.ModelInfo { return &types.ModelInfo{} }
func (p *cannedProvider) GetModel() string               { return "canned" }

const treeTable = `<table id="trees"><tr><th>Name</th><th>Weight</th></tr><tr><td>Oak</td><td>3t</td></tr></table>`

func treeTab() *browsertest.Tab {
	tab := browsertest.NewTab("https://example.com/trees")
	tab.SetContent("<html><body>" + treeTable + "</body></html>")
	tab.Set("#trees", browsertest.Visible("table").WithHTML(treeTable))
	return tab
}

func TestExecute_TableExtractor(t *testing.T) {
	tab := treeTab()
	launcher := browsertest.NewLauncher(tab)
	plannerLLM := &cannedProvider{replies: []string{
		"The table is already on the page.\n<tool><tool_name>commit_and_finish</tool_name><arguments><selector>#trees</selector></arguments></tool>",
	}}

	cfg := config.DefaultConfig()
	opts := &runOptions{URL: "https://example.com/trees", Task: "list trees", Extractor: extractorTable, Verbose: true}

	var out, status bytes.Buffer
	err := execute(context.Background(), cfg, opts, &dependencies{launcher: launcher, planner: plannerLLM}, &out, &status)
	require.NoError(t, err)

	var table extract.Table
	require.NoError(t, json.Unmarshal(out.Bytes(), &table))
	assert.Equal(t, []string{"Name", "Weight"}, table.Header)
	assert.Equal(t, [][]string{{"Oak", "3t"}}, table.Data)

	assert.Contains(t, status.String(), "commit_and_finish")
	assert.Contains(t, status.String(), "committed #trees")
	assert.Contains(t, status.String(), "logs: ")
	assert.Contains(t, status.String(), "(session "+logging.GetSessionID()+")")
	assert.NotContains(t, status.String(), "allowed urls")
	assert.NotContains(t, status.String(), "table is empty")
	assert.Equal(t, 1, launcher.Closes())
	assert.True(t, launcher.Options().Headless)
}

func TestExecute_LLMExtractor(t *testing.T) {
	launcher := browsertest.NewLauncher(treeTab())
	plannerLLM := &cannedProvider{replies: []string{
		"<tool><tool_name>commit_and_finish</tool_name><arguments><selector>#trees</selector></arguments></tool>",
	}}
	extractionLLM := &cannedProvider{replies: []string{`{"header": "No header found.", "data": [["Oak"]]}`}}

	opts := &runOptions{URL: "https://example.com/trees", Task: "tree names", Extractor: extractorLLM}

	var out bytes.Buffer
	err := execute(context.Background(), config.DefaultConfig(), opts,
		&dependencies{launcher: launcher, planner: plannerLLM, extractor: extractionLLM}, &out, &bytes.Buffer{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"header": "No header found.", "data": [["Oak"]]}`, out.String())
}

func TestExecute_EmptyTableAndURLPolicy(t *testing.T) {
	launcher := browsertest.NewLauncher(treeTab())
	plannerLLM := &cannedProvider{replies: []string{
		"<tool><tool_name>commit_and_finish</tool_name><arguments><selector>#trees</selector></arguments></tool>",
	}}
	extractionLLM := &cannedProvider{replies: []string{`{"header": "No header found.", "data": "No data found."}`}}

	cfg := config.DefaultConfig()
	cfg.Navigation.AllowedURLs = []string{"https://example.com/*"}
	opts := &runOptions{URL: "https://example.com/trees", Task: "t", Extractor: extractorLLM, Verbose: true}

	var out, status bytes.Buffer
	err := execute(context.Background(), cfg, opts,
		&dependencies{launcher: launcher, planner: plannerLLM, extractor: extractionLLM}, &out, &status)
	require.NoError(t, err)
	assert.JSONEq(t, `{"header": "No header found.", "data": "No data found."}`, out.String())
	assert.Contains(t, status.String(), "allowed urls: https://example.com/*")
	assert.Contains(t, status.String(), "warning: extracted table is empty")
}

func TestExecute_NavigationFailure(t *testing.T) {
	launcher := browsertest.NewLauncher(treeTab())
	plannerLLM := &cannedProvider{replies: []string{"I cannot find it. <give_up/>"}}

	var out bytes.Buffer
	err := execute(context.Background(), config.DefaultConfig(),
		&runOptions{URL: "https://example.com/trees", Task: "t", Extractor: extractorTable},
		&dependencies{launcher: launcher, planner: plannerLLM}, &out, &bytes.Buffer{})
	require.ErrorIs(t, err, navigator.ErrNavigationFailed)
	assert.Contains(t, err.Error(), "planner gave up")
	assert.Empty(t, out.String())
	assert.Equal(t, 1, launcher.Closes())
}

func TestExecute_LaunchFailure(t *testing.T) {
	launcher := browsertest.NewLauncher(treeTab())
	launcher.Err = errors.New("no chromium")

	err := execute(context.Background(), config.DefaultConfig(),
		&runOptions{URL: "https://example.com", Task: "t", Extractor: extractorTable},
		&dependencies{launcher: launcher, planner: &cannedProvider{}}, &bytes.Buffer{}, &bytes.Buffer{})
	var sessionErr *browser.SessionError
	require.ErrorAs(t, err, &sessionErr)
	assert.Equal(t, "launch", sessionErr.Op)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("planner:\n  max_steps: 7\nbrowser:\n  headless: true\n"), 0o600))

	headless := false
	cfg, err := loadConfig(&runOptions{ConfigFile: path, Extractor: extractorLLM, Headless: &headless})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Planner.MaxSteps)
	assert.False(t, cfg.Browser.Headless)

	cfg, err = loadConfig(&runOptions{ConfigFile: path, Extractor: extractorLLM, MaxSteps: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Planner.MaxSteps)

	_, err = loadConfig(&runOptions{Extractor: "magic"})
	assert.ErrorContains(t, err, "unknown extractor")
}

func TestRunCmd_RequiresFlags(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"run", "--url", "https://example.com"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	assert.ErrorContains(t, err, `"task"`)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "a", firstLine("a\nb"))
	assert.Len(t, firstLine(string(bytes.Repeat([]byte("x"), 200))), 123)
}

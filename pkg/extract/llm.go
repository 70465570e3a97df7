package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/llm/tokenizer"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/types"
)

// DefaultFragmentTokens bounds the HTML sent to the model.
const DefaultFragmentTokens = 12000

const systemPrompt = `You are an expert data extraction agent. Your sole task is to analyze the provided HTML content and extract the information required to fulfill the user's task.

Answer with a single valid JSON object and nothing else:
{"header": ["column", ...], "data": [["cell", ...], ...]}

For tabular data, "header" holds the column titles and "data" the rows. For non-tabular information, such as a paragraph, still use the same structure with columns relevant to the task.
If the extracted data has no header, set "header" to the exact string "` + NoHeader + `".
If there is no data, set "data" to the exact string "` + NoData + `".`

// LLMExtractor asks a language model to build the table.
type LLMExtractor struct {
	provider       llm.Provider
	fragmentTokens int
	logger         *logging.Logger
}

// LLMOption configures an LLMExtractor.
type LLMOption func(*LLMExtractor)

// WithFragmentTokens bounds the fragment's token count; zero disables trimming.
func WithFragmentTokens(n int) LLMOption {
	return func(e *LLMExtractor) {
		e.fragmentTokens = n
	}
}

// WithLogger attaches a component logger.
func WithLogger(l *logging.Logger) LLMOption {
	return func(e *LLMExtractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewLLMExtractor creates an extractor backed by provider.
func NewLLMExtractor(provider llm.Provider, opts ...LLMOption) *LLMExtractor {
	e := &LLMExtractor{
		provider:       provider,
		fragmentTokens: DefaultFragmentTokens,
		logger:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract implements Extractor.
func (e *LLMExtractor) Extract(ctx context.Context, html, task string) (*Table, error) {
	content := html
	if cleaned, err := browser.CleanHTML(html, len(html)); err == nil && cleaned.HTML != "" {
		content = cleaned.HTML
	}
	content = tokenizer.Truncate(content, e.fragmentTokens)
	e.logger.Debugf("extracting from %d tokens of HTML", tokenizer.Count(content))

	reply, err := e.provider.Complete(ctx, []*types.Message{
		types.NewSystemMessage(systemPrompt),
		types.NewUserMessage(fmt.Sprintf("<task>\n%s\n</task>\n\n<html_content>\n%s\n</html_content>", task, content)),
	})
	if err != nil {
		return nil, fmt.Errorf("extraction completion failed: %w", err)
	}

	table, err := ParseTable(reply.Content)
	if err != nil {
		e.logger.Warnf("unparseable extraction answer: %v", err)
		return nil, err
	}
	return table, nil
}

// ParseTable reads a table from a model answer, tolerating code fences and
// text around the JSON object.
func ParseTable(answer string) (*Table, error) {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end < start {
		return nil, errors.New("no JSON object in answer")
	}

	var table Table
	if err := json.Unmarshal([]byte(answer[start:end+1]), &table); err != nil {
		return nil, fmt.Errorf("failed to parse table JSON: %w", err)
	}
	return &table, nil
}

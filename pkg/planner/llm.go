package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/llm/tokenizer"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/tools"
	"github.com/entrhq/webpilot/pkg/types"
)

// LLMPlanner defaults
const (
	DefaultObservationTokens = 4000
	DefaultParseRetries      = 2
)

// LLMPlanner asks a language model for each tool call. It keeps the
// conversation for one run and resets it when a run starts at step 1.
type LLMPlanner struct {
	provider          llm.Provider
	observationTokens int
	parseRetries      int
	instructions      string
	logger            *logging.Logger

	messages []*types.Message
}

// LLMOption configures an LLMPlanner.
type LLMOption func(*LLMPlanner)

// WithObservationTokens bounds each observation's token count; zero disables trimming.
func WithObservationTokens(n int) LLMOption {
	return func(p *LLMPlanner) {
		p.observationTokens = n
	}
}

// WithParseRetries sets how often a malformed answer is sent back for correction.
func WithParseRetries(n int) LLMOption {
	return func(p *LLMPlanner) {
		if n >= 0 {
			p.parseRetries = n
		}
	}
}

// WithInstructions prepends custom instructions to the system prompt.
func WithInstructions(s string) LLMOption {
	return func(p *LLMPlanner) {
		p.instructions = s
	}
}

// WithLogger attaches a component logger.
func WithLogger(l *logging.Logger) LLMOption {
	return func(p *LLMPlanner) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewLLMPlanner creates a planner backed by provider.
func NewLLMPlanner(provider llm.Provider, opts ...LLMOption) *LLMPlanner {
	p := &LLMPlanner{
		provider:          provider,
		observationTokens: DefaultObservationTokens,
		parseRetries:      DefaultParseRetries,
		logger:            logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next implements Planner.
func (p *LLMPlanner) Next(ctx context.Context, turn Turn) (*tools.ToolCall, error) {
	observation := tokenizer.Truncate(turn.Observation, p.observationTokens)

	if turn.Step <= 1 || p.messages == nil {
		p.messages = []*types.Message{
			types.NewSystemMessage(BuildSystemPrompt(turn.Tools, p.instructions)),
			types.NewUserMessage(BuildTaskMessage(turn.Task, observation)),
		}
	} else {
		p.messages = append(p.messages, types.NewUserMessage(BuildObservationMessage(turn, observation)))
	}

	var lastErr error
	for attempt := 0; attempt <= p.parseRetries; attempt++ {
		reply, err := p.provider.Complete(ctx, p.messages)
		if err != nil {
			return nil, fmt.Errorf("planner completion failed: %w", err)
		}
		p.messages = append(p.messages, types.NewAssistantMessage(reply.Content))

		call, reasoning, err := tools.ParseToolCall(reply.Content)
		if err == nil {
			if reasoning != "" {
				p.logger.Debugf("step %d reasoning: %s", turn.Step, reasoning)
			}
			return call, nil
		}
		if !tools.HasToolCall(reply.Content) && strings.Contains(reply.Content, GiveUpTag) {
			p.logger.Infof("model gave up at step %d", turn.Step)
			return nil, ErrGiveUp
		}

		lastErr = err
		p.logger.Warnf("step %d attempt %d: %v", turn.Step, attempt+1, err)
		p.messages = append(p.messages, types.NewUserMessage(BuildParseErrorMessage(err)))
	}

	return nil, fmt.Errorf("no valid tool call after %d attempts: %w", p.parseRetries+1, lastErr)
}

// History returns the conversation of the current run.
func (p *LLMPlanner) History() []*types.Message {
	return append([]*types.Message(nil), p.messages...)
}

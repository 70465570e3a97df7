package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/types"
	"github.com/openai/openai-go"
)

const (
	ssePrefix   = "data: "
	sseDone     = "[DONE]"
	maxSSELine  = 1 << 20
	chunkBuffer = 16
)

type completionRequest struct {
	Model    string                                   `json:"model"`
	Messages []openai.ChatCompletionMessageParamUnion `json:"messages"`
	Stream   bool                                     `json:"stream"`
}

type streamEvent struct {
	Choices []struct {
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamCompletion posts messages with stream=true and relays the deltas.
// Errors after the response starts arrive as a final chunk with Error set.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	body, err := p.open(ctx, messages)
	if err != nil {
		return nil, err
	}
	out := make(chan *llm.StreamChunk, chunkBuffer)
	go relay(ctx, body, out)
	return out, nil
}

func (p *Provider) open(ctx context.Context, messages []*types.Message) (io.ReadCloser, error) {
	payload, err := json.Marshal(completionRequest{
		Model:    p.model,
		Messages: toParams(messages),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp.Body, nil
	}

	defer resp.Body.Close()
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return nil, fmt.Errorf("completion request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
}

// relay decodes server-sent events until [DONE], EOF or cancellation.
func relay(ctx context.Context, body io.ReadCloser, out chan<- *llm.StreamChunk) {
	defer close(out)
	defer body.Close()

	emit := func(c *llm.StreamChunk) bool {
		select {
		case out <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	roleSent := false

	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), ssePrefix)
		if !ok {
			// comments, blank separators and other fields
			continue
		}
		if data == sseDone {
			emit(&llm.StreamChunk{Finished: true})
			return
		}

		var ev streamEvent
		if json.Unmarshal([]byte(data), &ev) != nil || len(ev.Choices) == 0 {
			continue
		}
		choice := ev.Choices[0]

		c := &llm.StreamChunk{Content: choice.Delta.Content}
		if !roleSent && choice.Delta.Role != "" {
			c.Role, roleSent = choice.Delta.Role, true
		}
		c.Finished = choice.FinishReason != nil && *choice.FinishReason == "stop"
		if c.Content == "" && c.Role == "" && !c.Finished {
			continue
		}
		if !emit(c) {
			return
		}
	}

	if err := sc.Err(); err != nil {
		emit(&llm.StreamChunk{Error: fmt.Errorf("read completion stream: %w", err)})
	}
}

func toParams(messages []*types.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			params[i] = openai.SystemMessage(m.Content)
		case types.RoleAssistant:
			params[i] = openai.AssistantMessage(m.Content)
		default:
			params[i] = openai.UserMessage(m.Content)
		}
	}
	return params
}

// Package llm provides abstractions for the language model that backs the
// planner and the extraction phase.
//
// The navigator itself never talks to a model: planners and extractors are
// external collaborators that receive a Provider.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reply, err := provider.Complete(ctx, []*types.Message{
//	    types.NewUserMessage("Hello!"),
//	})
package llm

import (
	"context"

	"github.com/entrhq/webpilot/pkg/types"
)

// StreamChunk is a fragment of a streamed completion.
type StreamChunk struct {
	// Error is set when the stream failed; it is the last chunk sent.
	Error error

	// Role is set on the first chunk of a response.
	Role string

	// Content is the text delta.
	Content string

	// Finished marks the final chunk.
	Finished bool
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}

// Provider is a chat completion backend.
//
// Providers handle API communication only. Turning completions into tool calls
// is the planner's job.
type Provider interface {
	// StreamCompletion streams the reply to messages. The channel is closed
	// after the last chunk.
	// Stream-time errors are delivered as chunks with Error set.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete returns the whole reply to messages.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo describes the backing model.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name.
	GetModel() string
}

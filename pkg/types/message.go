// Package types holds the small value types shared between the navigator,
// the planner and the LLM providers.
package types

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem is the system prompt.
	RoleUser      MessageRole = "user"      // RoleUser is user input and tool observations.
	RoleAssistant MessageRole = "assistant" // RoleAssistant is model output.
)

// Message is a single conversation turn exchanged with an LLM provider.
type Message struct {
	// Role indicates who produced the message.
	Role MessageRole

	// Content is the text body of the message.
	Content string
}

// NewMessage creates a message with the given role and content.
func NewMessage(role MessageRole, content string) *Message {
	return &Message{Role: role, Content: content}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return NewMessage(RoleAssistant, content)
}

// ModelInfo describes the model behind a provider.
type ModelInfo struct {
	Metadata          map[string]interface{}
	Provider          string
	Name              string
	MaxTokens         int
	SupportsStreaming bool
}

package types

// EventType defines the type of event emitted by the navigator.
type EventType string

const (
	EventTypeToolCall        EventType = "tool_call"         // EventTypeToolCall indicates the planner invoked a tool.
	EventTypeToolResult      EventType = "tool_result"       // EventTypeToolResult indicates a tool produced an outcome.
	EventTypeToolResultError EventType = "tool_result_error" // EventTypeToolResultError indicates a tool failed with a fatal error.
	EventTypePhaseChange     EventType = "phase_change"      // EventTypePhaseChange indicates the navigation phase changed.
	EventTypeCommitted       EventType = "committed"         // EventTypeCommitted indicates a fragment was committed to the handoff.
	EventTypeAbandoned       EventType = "abandoned"         // EventTypeAbandoned indicates navigation ended without a commit.
	EventTypeError           EventType = "error"             // EventTypeError indicates an error occurred in the loop.
)

// Event represents something that happened during a navigation run.
type Event struct {
	// Metadata carries free-form details such as the commit selector.
	Metadata map[string]interface{}

	// ToolInput holds the parsed arguments of a tool call.
	ToolInput map[string]interface{}

	// ToolOutput is the outcome text of the tool (for tool result events).
	ToolOutput string

	// Error is set on error and fatal tool events.
	Error error

	// ToolName is the name of the tool being called.
	ToolName string

	// Phase is the phase entered (for phase change events).
	Phase string

	// Step is the 1-based loop iteration the event belongs to.
	Step int

	// Type selects which of the other fields are meaningful.
	Type EventType

	// OK reports whether a tool outcome was a success.
	OK bool
}

func newEvent(t EventType, step int) *Event {
	return &Event{Type: t, Step: step, Metadata: map[string]interface{}{}}
}

// NewToolCallEvent records the planner choosing a tool.
func NewToolCallEvent(step int, toolName string, toolInput map[string]interface{}) *Event {
	e := newEvent(EventTypeToolCall, step)
	e.ToolName, e.ToolInput = toolName, toolInput
	return e
}

// NewToolResultEvent records a tool outcome, successful or not.
func NewToolResultEvent(step int, toolName string, ok bool, output string) *Event {
	e := newEvent(EventTypeToolResult, step)
	e.ToolName, e.OK, e.ToolOutput = toolName, ok, output
	return e
}

// NewToolResultErrorEvent records a tool that hit a fatal session error.
func NewToolResultErrorEvent(step int, toolName string, err error) *Event {
	e := newEvent(EventTypeToolResultError, step)
	e.ToolName, e.Error = toolName, err
	return e
}

// NewPhaseChangeEvent records entry into phase.
func NewPhaseChangeEvent(step int, phase string) *Event {
	e := newEvent(EventTypePhaseChange, step)
	e.Phase = phase
	return e
}

// NewCommittedEvent records a stored fragment.
func NewCommittedEvent(step int, selector string) *Event {
	return newEvent(EventTypeCommitted, step).WithMetadata("selector", selector)
}

// NewAbandonedEvent records a run ending without a commit.
func NewAbandonedEvent(step int, reason string) *Event {
	return newEvent(EventTypeAbandoned, step).WithMetadata("reason", reason)
}

// NewErrorEvent records a loop error.
func NewErrorEvent(step int, err error) *Event {
	e := newEvent(EventTypeError, step)
	e.Error = err
	return e
}

// WithMetadata sets key and returns e.
func (e *Event) WithMetadata(key string, value interface{}) *Event {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// IsToolEvent returns true if the event relates to a tool invocation.
func (e *Event) IsToolEvent() bool {
	switch e.Type {
	case EventTypeToolCall, EventTypeToolResult, EventTypeToolResultError:
		return true
	}
	return false
}

// IsTerminal returns true if the event ends a navigation run.
func (e *Event) IsTerminal() bool {
	return e.Type == EventTypeCommitted || e.Type == EventTypeAbandoned
}

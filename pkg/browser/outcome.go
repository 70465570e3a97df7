package browser

// Outcome is the result of a tool invocation. Expected failures are outcomes
// with OK false, never Go errors.
type Outcome struct {
	OK      bool
	Message string
	// Data carries a structured payload, e.g. []InteractiveElement
	Data any
}

// Success returns a successful outcome.
func Success(message string) Outcome {
	return Outcome{OK: true, Message: message}
}

// Failure returns a failed outcome.
func Failure(message string) Outcome {
	return Outcome{OK: false, Message: message}
}

func (o Outcome) String() string {
	return o.Message
}

// InteractiveElement describes one visible link, button, input or select.
type InteractiveElement struct {
	Tag         string `json:"tag"`
	Text        string `json:"text"`
	CSSSelector string `json:"css_selector,omitempty"`
}

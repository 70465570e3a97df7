package browser

import (
	"context"
	"time"
)

// Box is an element's bounding box in CSS pixels relative to the viewport.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Element is a live handle to one DOM node. Handles are valid for a single tool
// call only; callers Release them before returning.
type Element interface {
	// BoundingBox returns nil when the element is not rendered.
	BoundingBox(ctx context.Context) (*Box, error)
	// TagName returns the upper-case tag name, e.g. "SELECT".
	TagName(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Text(ctx context.Context) (string, error)
	OuterHTML(ctx context.Context) (string, error)
	// TypeText sends the keystrokes for text in one call.
	TypeText(ctx context.Context, text string) error
	// HasOption reports whether a select element carries an option with the given value attribute.
	HasOption(ctx context.Context, value string) (bool, error)
	SelectOption(ctx context.Context, value string) error
	Release()
}

// Tab is the single active page of a session.
type Tab interface {
	// Query returns nil, nil when no element matches.
	Query(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Evaluate runs a JavaScript function expression with one argument.
	Evaluate(ctx context.Context, script string, arg any) (any, error)
	Navigate(ctx context.Context, url string) error
	URL() string
	// Content returns the serialized live DOM.
	Content(ctx context.Context) (string, error)
}

// TabProvider hands out the active tab. Session implements it.
type TabProvider interface {
	Tab() (Tab, error)
}

// Handle owns a launched browser and its active tab.
type Handle interface {
	Tab() Tab
	Close() error
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// LaunchOptions configures a browser launch.
type LaunchOptions struct {
	Headless bool
	Viewport Viewport
	// Timeout is the default timeout for engine operations
	Timeout time.Duration
}

// Launcher starts a browser engine.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Handle, error)
}

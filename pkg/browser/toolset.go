package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/webpilot/pkg/logging"
)

// InteractiveSelector matches the elements reported by ListInteractiveElements.
const InteractiveSelector = "a, button, input:not([type=hidden]), select"

const (
	clickScript      = "sel => { const el = document.querySelector(sel); if (!el) return false; el.click(); return true; }"
	scrollDownScript = "() => window.scrollBy(0, window.innerHeight)"
	scrollUpScript   = "() => window.scrollBy(0, -window.innerHeight)"
)

// Toolset implements the atomic page actions. Every method re-resolves its
// selector against the live tab.
type Toolset struct {
	tabs    TabProvider
	locator *Locator
	policy  *URLPolicy
	logger  *logging.Logger
}

// ToolsetOption configures a Toolset.
type ToolsetOption func(*Toolset)

// WithURLPolicy restricts Navigate to the policy's allow-list.
func WithURLPolicy(p *URLPolicy) ToolsetOption {
	return func(t *Toolset) {
		t.policy = p
	}
}

// WithToolsetLogger attaches a component logger.
func WithToolsetLogger(l *logging.Logger) ToolsetOption {
	return func(t *Toolset) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewToolset creates a toolset over the given tab provider.
func NewToolset(tabs TabProvider, opts ...ToolsetOption) *Toolset {
	t := &Toolset{
		tabs:    tabs,
		locator: NewLocator(tabs),
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Locator returns the toolset's element locator.
func (t *Toolset) Locator() *Locator {
	return t.locator
}

func notFound(selector string) Outcome {
	return Failure(fmt.Sprintf("Error: Element with selector '%s' not found.", selector))
}

// downgrade turns a non-fatal browser error into a failed outcome.
func (t *Toolset) downgrade(action, subject string, err error) (Outcome, error) {
	if IsFatal(err) {
		return Outcome{}, err
	}
	t.logger.Debugf("%s %q: %v", action, subject, err)
	return Failure(fmt.Sprintf("Error %s '%s': %v", action, subject, err)), nil
}

// Click clicks an interactable element through script evaluation so overlays
// covering the element do not intercept it.
func (t *Toolset) Click(ctx context.Context, selector string) (Outcome, error) {
	el, status, err := t.locator.Locate(ctx, selector)
	if err != nil {
		return t.downgrade("clicking element", selector, err)
	}
	switch status {
	case NotFound:
		return notFound(selector), nil
	case NotInteractable:
		el.Release()
		return Failure(fmt.Sprintf("Error: Element '%s' is not visible or not positioned in viewport.", selector)), nil
	}
	el.Release()

	tab, err := t.tabs.Tab()
	if err != nil {
		return Outcome{}, err
	}

	v, err := tab.Evaluate(ctx, clickScript, selector)
	if err != nil {
		return t.downgrade("clicking element", selector, err)
	}
	if clicked, ok := v.(bool); ok && !clicked {
		return notFound(selector), nil
	}
	return Success(fmt.Sprintf("Successfully clicked element '%s'.", selector)), nil
}

// TypeInto sends text to the element as one keystroke sequence.
func (t *Toolset) TypeInto(ctx context.Context, selector, text string) (Outcome, error) {
	el, err := t.locator.Resolve(ctx, selector)
	if errors.Is(err, ErrElementNotFound) {
		return notFound(selector), nil
	}
	if err != nil {
		return t.downgrade("typing into", selector, err)
	}
	defer el.Release()

	if err := el.TypeText(ctx, text); err != nil {
		return t.downgrade("typing into", selector, err)
	}
	return Success(fmt.Sprintf("Successfully typed '%s' into element '%s'.", text, selector)), nil
}

// SelectOption selects the option whose value attribute equals value.
func (t *Toolset) SelectOption(ctx context.Context, selector, value string) (Outcome, error) {
	el, err := t.locator.Resolve(ctx, selector)
	if errors.Is(err, ErrElementNotFound) {
		return notFound(selector), nil
	}
	if err != nil {
		return t.downgrade("selecting option in", selector, err)
	}
	defer el.Release()

	tag, err := el.TagName(ctx)
	if err != nil {
		return t.downgrade("selecting option in", selector, err)
	}
	if !strings.EqualFold(tag, "select") {
		return Failure(fmt.Sprintf("Error: Element '%s' is not a dropdown.", selector)), nil
	}

	ok, err := el.HasOption(ctx, value)
	if err != nil {
		return t.downgrade("selecting option in", selector, err)
	}
	if !ok {
		return Failure(fmt.Sprintf("Error: Option with value '%s' not found in dropdown '%s'.", value, selector)), nil
	}

	if err := el.SelectOption(ctx, value); err != nil {
		return t.downgrade("selecting option in", selector, err)
	}
	return Success(fmt.Sprintf("Successfully selected option with value '%s' in dropdown '%s'.", value, selector)), nil
}

// Navigate points the tab at url.
func (t *Toolset) Navigate(ctx context.Context, url string) (Outcome, error) {
	if strings.TrimSpace(url) == "" {
		return Failure("Error: URL is required."), nil
	}
	if !t.policy.Allowed(url) {
		return Failure(fmt.Sprintf("Error: Navigation to %s is not allowed by the configured URL allow-list.", url)), nil
	}

	tab, err := t.tabs.Tab()
	if err != nil {
		return Outcome{}, err
	}
	if err := tab.Navigate(ctx, url); err != nil {
		return t.downgrade("navigating to", url, err)
	}
	return Success(fmt.Sprintf("Successfully navigated to %s.", url)), nil
}

// Scroll scrolls the page by one viewport height. Direction is "up" or "down",
// case-insensitive.
func (t *Toolset) Scroll(ctx context.Context, direction string) (Outcome, error) {
	var script, message string
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "down":
		script, message = scrollDownScript, "Scrolled down."
	case "up":
		script, message = scrollUpScript, "Scrolled up."
	default:
		return Failure("Error: Invalid scroll direction. Use 'up' or 'down'."), nil
	}

	tab, err := t.tabs.Tab()
	if err != nil {
		return Outcome{}, err
	}
	if _, err := tab.Evaluate(ctx, script, nil); err != nil {
		return t.downgrade("scrolling", direction, err)
	}
	return Success(message), nil
}

// CurrentURL reports the tab's live URL.
func (t *Toolset) CurrentURL(ctx context.Context) (Outcome, error) {
	tab, err := t.tabs.Tab()
	if err != nil {
		return Outcome{}, err
	}
	return Success(fmt.Sprintf("Current URL is: %s", tab.URL())), nil
}

// ListInteractiveElements reports every visible link, button, input and select.
// Elements that fail to report a position are skipped.
func (t *Toolset) ListInteractiveElements(ctx context.Context) (Outcome, error) {
	tab, err := t.tabs.Tab()
	if err != nil {
		return Outcome{}, err
	}

	elements, err := tab.QueryAll(ctx, InteractiveSelector)
	if err != nil {
		return t.downgrade("listing", InteractiveSelector, err)
	}

	found := make([]InteractiveElement, 0, len(elements))
	for _, el := range elements {
		info, ok := t.describe(ctx, el)
		el.Release()
		if ok {
			found = append(found, info)
		}
	}

	out := Success(fmt.Sprintf("Found %d interactive elements.", len(found)))
	out.Data = found
	return out, nil
}

func (t *Toolset) describe(ctx context.Context, el Element) (InteractiveElement, bool) {
	visible, err := t.locator.IsInteractable(ctx, el)
	if err != nil || !visible {
		return InteractiveElement{}, false
	}

	tag, err := el.TagName(ctx)
	if err != nil {
		return InteractiveElement{}, false
	}

	text, err := el.Text(ctx)
	if err != nil {
		return InteractiveElement{}, false
	}
	text = strings.Join(strings.Fields(text), " ")

	attr := func(name string) string {
		v, _, err := el.Attribute(ctx, name)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(v)
	}

	id := attr("id")
	if text == "" {
		for _, name := range []string{"aria-label", "name"} {
			if text = attr(name); text != "" {
				break
			}
		}
		if text == "" {
			text = id
		}
	}

	info := InteractiveElement{Tag: elementKind(tag), Text: text}
	if id != "" {
		info.CSSSelector = "#" + id
	}
	return info, true
}

func elementKind(tag string) string {
	switch strings.ToLower(tag) {
	case "a":
		return "link"
	default:
		return strings.ToLower(tag)
	}
}

// ReadText returns the trimmed text content of the element.
func (t *Toolset) ReadText(ctx context.Context, selector string) (Outcome, error) {
	el, err := t.locator.Resolve(ctx, selector)
	if errors.Is(err, ErrElementNotFound) {
		return notFound(selector), nil
	}
	if err != nil {
		return t.downgrade("reading element", selector, err)
	}
	defer el.Release()

	text, err := el.Text(ctx)
	if err != nil {
		return t.downgrade("reading element", selector, err)
	}
	return Success(strings.TrimSpace(text)), nil
}

// BodyContent returns the outer HTML of the element matching selector, or of
// the body when selector is empty.
func (t *Toolset) BodyContent(ctx context.Context, selector string) (Outcome, error) {
	if strings.TrimSpace(selector) == "" {
		selector = "body"
	}

	el, err := t.locator.Resolve(ctx, selector)
	if errors.Is(err, ErrElementNotFound) {
		return notFound(selector), nil
	}
	if err != nil {
		return t.downgrade("getting content for selector", selector, err)
	}
	defer el.Release()

	html, err := el.OuterHTML(ctx)
	if err != nil {
		return t.downgrade("getting content for selector", selector, err)
	}
	return Success(html), nil
}

// HeadContent returns the outer HTML of the document head.
func (t *Toolset) HeadContent(ctx context.Context) (Outcome, error) {
	return t.BodyContent(ctx, "head")
}

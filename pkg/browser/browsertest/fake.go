// Package browsertest provides in-memory Tab, Element and Launcher
// implementations for tests that must not start a real browser.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/entrhq/webpilot/pkg/browser"
)

// Node is a fake DOM element.
type Node struct {
	Tag     string
	Attrs   map[string]string
	Text    string
	HTML    string
	Box     *browser.Box
	Options []string

	// Recorded interactions
	Typed    string
	Selected string
	Clicks   int
}

// Visible returns a node with a non-empty bounding box.
func Visible(tag string) *Node {
	return &Node{Tag: strings.ToUpper(tag), Attrs: map[string]string{}, Box: &browser.Box{Width: 100, Height: 20}}
}

// Hidden returns a node without a bounding box.
func Hidden(tag string) *Node {
	return &Node{Tag: strings.ToUpper(tag), Attrs: map[string]string{}}
}

// WithAttr sets an attribute and returns the node.
func (n *Node) WithAttr(key, value string) *Node {
	n.Attrs[key] = value
	return n
}

// WithText sets the text content and returns the node.
func (n *Node) WithText(text string) *Node {
	n.Text = text
	return n
}

// WithHTML sets the outer HTML and returns the node.
func (n *Node) WithHTML(html string) *Node {
	n.HTML = html
	return n
}

// WithOptions sets select option values and returns the node.
func (n *Node) WithOptions(values ...string) *Node {
	n.Options = values
	return n
}

// Eval records one script evaluation.
type Eval struct {
	Script string
	Arg    any
}

// Tab is an in-memory browser.Tab. Selectors are matched by exact string.
type Tab struct {
	mu sync.Mutex

	url     string
	nodes   map[string][]*Node
	content string

	// NavigateErr, EvalErr and QueryErr inject failures
	NavigateErr error
	EvalErr     error
	QueryErr    error

	// OnClick runs after a scripted click on selector
	OnClick func(selector string)

	evals    []Eval
	queries  map[string]int
	acquired int
	released int
}

// NewTab creates an empty tab at url.
func NewTab(url string) *Tab {
	return &Tab{
		url:     url,
		nodes:   make(map[string][]*Node),
		queries: make(map[string]int),
	}
}

// Set registers the nodes matched by selector.
func (t *Tab) Set(selector string, nodes ...*Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[selector] = nodes
}

// Remove makes selector match nothing.
func (t *Tab) Remove(selector string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.nodes, selector)
}

// Node returns the first node registered for selector, or nil.
func (t *Tab) Node(selector string) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	if nodes := t.nodes[selector]; len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// SetContent sets the serialized DOM returned by Content.
func (t *Tab) SetContent(html string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.content = html
}

// Evals returns the recorded script evaluations.
func (t *Tab) Evals() []Eval {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Eval(nil), t.evals...)
}

// Queries returns how often selector was queried.
func (t *Tab) Queries(selector string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queries[selector]
}

// Outstanding returns the number of element handles not yet released.
func (t *Tab) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acquired - t.released
}

func (t *Tab) handle(n *Node) browser.Element {
	t.acquired++
	return &element{tab: t, node: n}
}

func (t *Tab) Query(ctx context.Context, selector string) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.queries[selector]++
	if t.QueryErr != nil {
		return nil, t.QueryErr
	}
	nodes := t.nodes[selector]
	if len(nodes) == 0 {
		return nil, nil
	}
	return t.handle(nodes[0]), nil
}

func (t *Tab) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.queries[selector]++
	if t.QueryErr != nil {
		return nil, t.QueryErr
	}
	var out []browser.Element
	for _, n := range t.nodes[selector] {
		out = append(out, t.handle(n))
	}
	return out, nil
}

// Evaluate treats a string argument as a click target selector and reports
// whether it matched; other scripts return nil.
func (t *Tab) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.evals = append(t.evals, Eval{Script: script, Arg: arg})
	if t.EvalErr != nil {
		t.mu.Unlock()
		return nil, t.EvalErr
	}
	selector, ok := arg.(string)
	if !ok {
		t.mu.Unlock()
		return nil, nil
	}
	nodes := t.nodes[selector]
	if len(nodes) == 0 {
		t.mu.Unlock()
		return false, nil
	}
	nodes[0].Clicks++
	onClick := t.OnClick
	t.mu.Unlock()

	if onClick != nil {
		onClick(selector)
	}
	return true, nil
}

func (t *Tab) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.NavigateErr != nil {
		return t.NavigateErr
	}
	t.url = url
	return nil
}

func (t *Tab) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

func (t *Tab) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.content, nil
}

type element struct {
	tab  *Tab
	node *Node
}

func (e *element) BoundingBox(ctx context.Context) (*browser.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.node.Box, nil
}

func (e *element) TagName(ctx context.Context) (string, error) {
	return strings.ToUpper(e.node.Tag), ctx.Err()
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, ok := e.node.Attrs[name]
	return v, ok, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.node.Text, ctx.Err()
}

func (e *element) OuterHTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.node.HTML != "" {
		return e.node.HTML, nil
	}
	tag := strings.ToLower(e.node.Tag)
	return fmt.Sprintf("<%s>%s</%s>", tag, e.node.Text, tag), nil
}

func (e *element) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.tab.mu.Lock()
	defer e.tab.mu.Unlock()
	e.node.Typed += text
	return nil
}

func (e *element) HasOption(ctx context.Context, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for _, v := range e.node.Options {
		if v == value {
			return true, nil
		}
	}
	return false, nil
}

func (e *element) SelectOption(ctx context.Context, value string) error {
	ok, err := e.HasOption(ctx, value)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("option not found")
	}
	e.tab.mu.Lock()
	defer e.tab.mu.Unlock()
	e.node.Selected = value
	return nil
}

func (e *element) Release() {
	e.tab.mu.Lock()
	defer e.tab.mu.Unlock()
	e.tab.released++
}

// Launcher hands out a fixed Tab.
type Launcher struct {
	Tab      *Tab
	Err      error
	CloseErr error

	mu       sync.Mutex
	launches int
	closes   int
	opts     browser.LaunchOptions
}

// NewLauncher creates a launcher serving tab.
func NewLauncher(tab *Tab) *Launcher {
	return &Launcher{Tab: tab}
}

func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	l.launches++
	l.opts = opts
	return &handle{launcher: l}, nil
}

// Launches returns the number of successful launches.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

// Closes returns the number of handle closes.
func (l *Launcher) Closes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closes
}

// Options returns the options of the last launch.
func (l *Launcher) Options() browser.LaunchOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opts
}

type handle struct {
	launcher *Launcher
}

func (h *handle) Tab() browser.Tab {
	return h.launcher.Tab
}

func (h *handle) Close() error {
	h.launcher.mu.Lock()
	defer h.launcher.mu.Unlock()
	h.launcher.closes++
	return h.launcher.CloseErr
}

// StartedSession returns a started session backed by tab.
func StartedSession(ctx context.Context, tab *Tab) (*browser.Session, *Launcher, error) {
	launcher := NewLauncher(tab)
	session := browser.NewSession(tab.URL(), browser.WithLauncher(launcher))
	if err := session.Start(ctx); err != nil {
		return nil, nil, err
	}
	return session, launcher, nil
}

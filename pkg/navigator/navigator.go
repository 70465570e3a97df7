// Package navigator runs the tool-calling loop that drives a browser session
// from the initial page to a committed result fragment.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/handoff"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/planner"
	"github.com/entrhq/webpilot/pkg/tools"
	"github.com/entrhq/webpilot/pkg/types"
)

// DefaultMaxSteps bounds a run when no step budget is configured.
const DefaultMaxSteps = 25

// ErrNavigationFailed is returned when a run ends without a committed fragment.
var ErrNavigationFailed = errors.New("navigation failed: no result was committed")

// Observer receives run events. It is called synchronously from Run.
type Observer func(*types.Event)

// Result summarizes a finished run.
type Result struct {
	RunID    string
	Phase    Phase
	Phases   []Phase
	Steps    int
	Selector string
	Fragment string
	Reason   string
	Duration time.Duration

	// CommittedAt is when the fragment reached the handoff; zero when abandoned.
	CommittedAt time.Time
}

// Committed reports whether the run ended with a stored fragment.
func (r *Result) Committed() bool {
	return r.Phase == PhaseCommitted
}

// Navigator owns the operation registry and the phase machine.
type Navigator struct {
	mu sync.Mutex

	tabs        browser.TabProvider
	planner     planner.Planner
	toolset     *browser.Toolset
	waiter      *browser.WaitController
	handoff     *handoff.Handoff
	registry    *Registry
	maxSteps    int
	cleanLength int
	observer    Observer
	logger      *logging.Logger
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithToolset replaces the default toolset built over the tab provider.
func WithToolset(ts *browser.Toolset) Option {
	return func(n *Navigator) {
		n.toolset = ts
	}
}

// WithWaitController replaces the default wait controller.
func WithWaitController(w *browser.WaitController) Option {
	return func(n *Navigator) {
		n.waiter = w
	}
}

// WithHandoff sets the handoff the commit operation writes to.
func WithHandoff(h *handoff.Handoff) Option {
	return func(n *Navigator) {
		n.handoff = h
	}
}

// WithMaxSteps sets the step budget.
func WithMaxSteps(steps int) Option {
	return func(n *Navigator) {
		if steps > 0 {
			n.maxSteps = steps
		}
	}
}

// WithCleanLength bounds the cleaned HTML of page observations.
func WithCleanLength(length int) Option {
	return func(n *Navigator) {
		if length > 0 {
			n.cleanLength = length
		}
	}
}

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(n *Navigator) {
		n.observer = o
	}
}

// WithLogger attaches a component logger.
func WithLogger(l *logging.Logger) Option {
	return func(n *Navigator) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a navigator over tabs, asking p for each step.
func New(tabs browser.TabProvider, p planner.Planner, opts ...Option) (*Navigator, error) {
	if tabs == nil {
		return nil, errors.New("tab provider is required")
	}
	if p == nil {
		return nil, errors.New("planner is required")
	}

	n := &Navigator{
		tabs:        tabs,
		planner:     p,
		maxSteps:    DefaultMaxSteps,
		cleanLength: browser.DefaultCleanLength,
		logger:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.toolset == nil {
		n.toolset = browser.NewToolset(tabs, browser.WithToolsetLogger(n.logger))
	}
	if n.waiter == nil {
		n.waiter = browser.NewWaitController(n.toolset.Locator(), browser.WithWaitLogger(n.logger))
	}
	if n.handoff == nil {
		n.handoff = handoff.New()
	}

	n.registry = NewRegistry()
	for _, op := range n.operations() {
		if err := n.registry.Register(op); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Registry returns the operation registry.
func (n *Navigator) Registry() *Registry {
	return n.registry
}

// Handoff returns the handoff written by the commit operation.
func (n *Navigator) Handoff() *handoff.Handoff {
	return n.handoff
}

// run holds per-run state.
type run struct {
	id     string
	phases *phaseTracker
	result *Result
	logger *logging.Logger
	start  time.Time
}

// Run drives the planner until it commits a fragment, gives up, exhausts the
// step budget, or ctx is cancelled. Runs on one navigator are serialized.
//
// The returned Result is never nil. When nothing was committed the error
// wraps ErrNavigationFailed; fatal session errors are returned as they are.
func (n *Navigator) Run(ctx context.Context, task string) (*Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := uuid.NewString()
	r := &run{
		id:     id,
		result: &Result{RunID: id, Phase: PhasePlanning},
		logger: n.logger.With("run", id),
		start:  time.Now(),
	}

	phases, err := newPhaseTracker()
	if err != nil {
		return r.result, err
	}
	defer phases.Stop()
	r.phases = phases

	r.logger.Infof("starting run: %s", task)

	observation, err := n.observePage(ctx)
	if err != nil {
		if browser.IsFatal(err) {
			return n.abandon(r, 0, "session error", err)
		}
		observation = fmt.Sprintf("Error reading the current page: %v", err)
	}

	specs := n.registry.Specs()
	var lastTool string

	for step := 1; step <= n.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return n.abandon(r, step-1, "cancelled", fmt.Errorf("%w: %w", ErrNavigationFailed, err))
		}

		call, err := n.planner.Next(ctx, planner.Turn{
			Task:        task,
			Step:        step,
			MaxSteps:    n.maxSteps,
			Phase:       string(phases.Current()),
			LastTool:    lastTool,
			Observation: observation,
			Tools:       specs,
		})
		switch {
		case errors.Is(err, planner.ErrGiveUp):
			return n.abandon(r, step-1, "planner gave up", fmt.Errorf("%w: %w", ErrNavigationFailed, err))
		case err != nil && ctx.Err() != nil:
			return n.abandon(r, step-1, "cancelled", fmt.Errorf("%w: %w", ErrNavigationFailed, ctx.Err()))
		case err != nil:
			n.emit(types.NewErrorEvent(step, err))
			return n.abandon(r, step-1, "planner error", fmt.Errorf("%w: planner failed at step %d: %w", ErrNavigationFailed, step, err))
		}

		r.result.Steps = step
		outcome, done, err := n.dispatch(ctx, r, step, call)
		if err != nil {
			return n.abandon(r, step, "session error", err)
		}
		if done {
			return n.finish(r), nil
		}

		observation = renderOutcome(outcome)
		lastTool = call.ToolName
	}

	return n.abandon(r, n.maxSteps, "step budget exhausted",
		fmt.Errorf("%w: step budget of %d exhausted", ErrNavigationFailed, n.maxSteps))
}

// dispatch executes one call and advances the phase. done is true once the
// run reached COMMITTED.
func (n *Navigator) dispatch(ctx context.Context, r *run, step int, call *tools.ToolCall) (browser.Outcome, bool, error) {
	argsMap, err := tools.XMLToMap(call.GetArgumentsXML())
	if err != nil {
		argsMap = make(map[string]interface{})
	}
	n.emit(types.NewToolCallEvent(step, call.ToolName, argsMap))
	r.logger.Debugf("step %d: %s %v", step, call.ToolName, argsMap)

	op, outcome, ran, err := n.registry.Invoke(ctx, call)
	if err != nil {
		n.emit(types.NewToolResultErrorEvent(step, call.ToolName, err))
		return outcome, false, err
	}
	n.emit(types.NewToolResultEvent(step, call.ToolName, outcome.OK, outcome.Message))

	if !ran {
		r.logger.Warnf("step %d: %s", step, outcome.Message)
		return outcome, false, nil
	}
	// A failed commit leaves the phase unchanged.
	if op.Kind == KindCommit && !outcome.OK {
		return outcome, false, nil
	}

	if err := n.moveTo(r, step, op.Kind.Target()); err != nil {
		return outcome, false, err
	}
	if op.Kind == KindCommit {
		n.emit(types.NewCommittedEvent(step, n.handoff.Selector()))
		return outcome, true, nil
	}
	return outcome, false, nil
}

func (n *Navigator) moveTo(r *run, step int, to Phase) error {
	changed, err := r.phases.Move(to)
	if err != nil {
		return err
	}
	if changed {
		r.logger.Debugf("phase -> %s", to)
		n.emit(types.NewPhaseChangeEvent(step, string(to)))
	}
	return nil
}

func (n *Navigator) finish(r *run) *Result {
	fragment, _ := n.handoff.Get()
	r.result.Phase = r.phases.Current()
	r.result.Phases = r.phases.History()
	r.result.Selector = n.handoff.Selector()
	r.result.Fragment = fragment
	r.result.CommittedAt = n.handoff.CommittedAt()
	r.result.Duration = time.Since(r.start)
	r.logger.Infof("committed %q at %s after %d steps (%d bytes, %d transitions)",
		r.result.Selector, r.result.CommittedAt.Format(time.RFC3339), r.result.Steps, len(fragment), r.phases.Transitions())
	return r.result
}

func (n *Navigator) abandon(r *run, step int, reason string, err error) (*Result, error) {
	if moveErr := n.moveTo(r, step, PhaseAbandoned); moveErr != nil {
		r.logger.Errorf("failed to abandon run: %v", moveErr)
	}
	r.result.Phase = r.phases.Current()
	r.result.Phases = r.phases.History()
	r.result.Reason = reason
	r.result.Duration = time.Since(r.start)
	n.emit(types.NewAbandonedEvent(step, reason))
	r.logger.Warnf("run abandoned after %d steps: %s", r.result.Steps, reason)
	return r.result, err
}

func (n *Navigator) emit(e *types.Event) {
	if n.observer != nil {
		n.observer(e)
	}
}

// observePage renders the live page as the planner's first observation.
func (n *Navigator) observePage(ctx context.Context) (string, error) {
	tab, err := n.tabs.Tab()
	if err != nil {
		return "", err
	}
	content, err := tab.Content(ctx)
	if err != nil {
		return "", err
	}
	cleaned, err := browser.CleanHTML(content, n.cleanLength)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current URL: %s\n", tab.URL())
	if cleaned.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", cleaned.Title)
	}
	if cleaned.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", cleaned.Description)
	}
	b.WriteString("\n")
	b.WriteString(cleaned.HTML)
	return b.String(), nil
}

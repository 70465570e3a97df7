// Package planner decides the next tool call of a navigation run.
//
// The navigator owns the browser and the step loop; a Planner only sees the
// task, the tool catalogue and the latest observation, and answers with one
// tool call at a time.
package planner

import (
	"context"
	"errors"
	"sync"

	"github.com/entrhq/webpilot/pkg/tools"
)

// ErrGiveUp is returned by a planner that will not make further progress.
var ErrGiveUp = errors.New("planner gave up")

// Turn is the planner's view of one step.
type Turn struct {
	// Task is the user's instruction.
	Task string

	// Step is 1-based; step 1 carries the initial page observation.
	Step     int
	MaxSteps int

	// Phase is the navigator phase before this step.
	Phase string

	// LastTool names the previous call; empty on step 1.
	LastTool string

	// Observation is the page summary on step 1 and the previous call's
	// outcome afterwards.
	Observation string

	// Tools is the callable catalogue.
	Tools []tools.Spec
}

// Planner chooses the next tool call.
type Planner interface {
	Next(ctx context.Context, turn Turn) (*tools.ToolCall, error)
}

// Func adapts a function to the Planner interface.
type Func func(ctx context.Context, turn Turn) (*tools.ToolCall, error)

// Next calls f.
func (f Func) Next(ctx context.Context, turn Turn) (*tools.ToolCall, error) {
	return f(ctx, turn)
}

// Script replays a fixed sequence of calls and gives up when it runs out.
type Script struct {
	mu    sync.Mutex
	calls []*tools.ToolCall
	turns []Turn
}

// NewScript creates a planner replaying calls in order.
func NewScript(calls ...*tools.ToolCall) *Script {
	return &Script{calls: calls}
}

func (s *Script) Next(ctx context.Context, turn Turn) (*tools.ToolCall, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, turn)
	if len(s.calls) == 0 {
		return nil, ErrGiveUp
	}
	call := s.calls[0]
	s.calls = s.calls[1:]
	return call, nil
}

// Turns returns the turns seen so far.
func (s *Script) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

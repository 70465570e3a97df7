package navigator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/tools"
)

// Kind tags an operation with the phase it moves the run into.
type Kind int

const (
	// KindObserve operations wait for or read page state.
	KindObserve Kind = iota
	// KindMutate operations change page state.
	KindMutate
	// KindCommit ends the run by writing the handoff.
	KindCommit
)

// Target returns the phase an invocation of this kind moves to.
func (k Kind) Target() Phase {
	switch k {
	case KindMutate:
		return PhaseActing
	case KindCommit:
		return PhaseCommitted
	default:
		return PhaseVerifying
	}
}

// Handler executes an operation. Expected failures are failed outcomes; the
// error return is reserved for fatal session errors.
type Handler func(ctx context.Context, args tools.Args) (browser.Outcome, error)

// Operation is one entry of the tool surface.
type Operation struct {
	Name        string
	Description string
	Params      []tools.Param
	Kind        Kind
	Handler     Handler
}

// Spec returns the planner-facing description of the operation.
func (o Operation) Spec() tools.Spec {
	return tools.Spec{
		Name:        o.Name,
		Description: o.Description,
		Params:      o.Params,
		Finishing:   o.Kind == KindCommit,
	}
}

// Registry is the closed set of operations a planner may call.
type Registry struct {
	ops   []Operation
	index map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds an operation. Names must be unique.
func (r *Registry) Register(op Operation) error {
	if op.Name == "" {
		return errors.New("operation name is required")
	}
	if op.Handler == nil {
		return fmt.Errorf("operation %s has no handler", op.Name)
	}
	if _, exists := r.index[op.Name]; exists {
		return fmt.Errorf("operation %s already registered", op.Name)
	}
	r.index[op.Name] = len(r.ops)
	r.ops = append(r.ops, op)
	return nil
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (Operation, bool) {
	i, ok := r.index[name]
	if !ok {
		return Operation{}, false
	}
	return r.ops[i], true
}

// Operations returns all operations in registration order.
func (r *Registry) Operations() []Operation {
	return append([]Operation(nil), r.ops...)
}

// Specs returns the planner catalogue in registration order.
func (r *Registry) Specs() []tools.Spec {
	specs := make([]tools.Spec, 0, len(r.ops))
	for _, op := range r.ops {
		specs = append(specs, op.Spec())
	}
	return specs
}

// Names returns the registered operation names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for _, op := range r.ops {
		names = append(names, op.Name)
	}
	return names
}

// Invoke looks up and runs the operation named by call. Unknown names and
// bad arguments become failed outcomes with ran set to false.
func (r *Registry) Invoke(ctx context.Context, call *tools.ToolCall) (op Operation, outcome browser.Outcome, ran bool, err error) {
	op, ok := r.Lookup(call.ToolName)
	if !ok {
		return op, browser.Failure(fmt.Sprintf("Error: Unknown tool '%s'. Available tools: %s.",
			call.ToolName, strings.Join(r.Names(), ", "))), false, nil
	}

	args, err := call.Args()
	if err == nil {
		args = tools.Normalize(op.Params, args)
		err = tools.Validate(op.Params, args)
	}
	if err != nil {
		return op, browser.Failure(fmt.Sprintf("Error: Invalid arguments for '%s': %v", op.Name, err)), false, nil
	}

	outcome, err = op.Handler(ctx, args)
	return op, outcome, true, err
}

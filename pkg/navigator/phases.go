package navigator

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Phase is a state of the navigation loop.
type Phase string

const (
	PhasePlanning  Phase = "PLANNING"  // PhasePlanning is the initial phase.
	PhaseActing    Phase = "ACTING"    // PhaseActing follows a page-mutating operation.
	PhaseVerifying Phase = "VERIFYING" // PhaseVerifying follows a wait or read operation.
	PhaseCommitted Phase = "COMMITTED" // PhaseCommitted is terminal success.
	PhaseAbandoned Phase = "ABANDONED" // PhaseAbandoned is terminal failure.
)

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseCommitted || p == PhaseAbandoned
}

// Machine events
const (
	eventAct     statekit.EventType = "ACT"
	eventVerify  statekit.EventType = "VERIFY"
	eventCommit  statekit.EventType = "COMMIT"
	eventAbandon statekit.EventType = "ABANDON"
)

var phaseEvents = map[Phase]statekit.EventType{
	PhaseActing:    eventAct,
	PhaseVerifying: eventVerify,
	PhaseCommitted: eventCommit,
	PhaseAbandoned: eventAbandon,
}

// transitions lists the allowed target phases per phase. Staying in the same
// phase is always allowed and never reaches the machine.
var transitions = map[Phase][]Phase{
	PhasePlanning:  {PhaseActing, PhaseVerifying, PhaseCommitted, PhaseAbandoned},
	PhaseActing:    {PhaseVerifying, PhaseCommitted, PhaseAbandoned},
	PhaseVerifying: {PhaseActing, PhaseCommitted, PhaseAbandoned},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Phase) bool {
	if from == to {
		return !from.Terminal()
	}
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// phaseContext counts transitions taken by the machine.
type phaseContext struct {
	Transitions int
}

func countTransition(ctx **phaseContext, _ statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).Transitions++
}

func newPhaseMachine() (*statekit.MachineConfig[*phaseContext], error) {
	return statekit.NewMachine[*phaseContext]("navigator").
		WithInitial(statekit.StateID(PhasePlanning)).
		WithContext(&phaseContext{}).
		WithAction("count", countTransition).
		State(statekit.StateID(PhasePlanning)).
			On(eventAct).Target(statekit.StateID(PhaseActing)).Do("count").
			On(eventVerify).Target(statekit.StateID(PhaseVerifying)).Do("count").
			On(eventCommit).Target(statekit.StateID(PhaseCommitted)).Do("count").
			On(eventAbandon).Target(statekit.StateID(PhaseAbandoned)).Do("count").
			Done().
		State(statekit.StateID(PhaseActing)).
			On(eventVerify).Target(statekit.StateID(PhaseVerifying)).Do("count").
			On(eventCommit).Target(statekit.StateID(PhaseCommitted)).Do("count").
			On(eventAbandon).Target(statekit.StateID(PhaseAbandoned)).Do("count").
			Done().
		State(statekit.StateID(PhaseVerifying)).
			On(eventAct).Target(statekit.StateID(PhaseActing)).Do("count").
			On(eventCommit).Target(statekit.StateID(PhaseCommitted)).Do("count").
			On(eventAbandon).Target(statekit.StateID(PhaseAbandoned)).Do("count").
			Done().
		State(statekit.StateID(PhaseCommitted)).
			Final().
			Done().
		State(statekit.StateID(PhaseAbandoned)).
			Final().
			Done().
		Build()
}

// phaseTracker drives the statekit interpreter for one run.
type phaseTracker struct {
	interp  *statekit.Interpreter[*phaseContext]
	ctx     *phaseContext
	history []Phase
}

func newPhaseTracker() (*phaseTracker, error) {
	machine, err := newPhaseMachine()
	if err != nil {
		return nil, fmt.Errorf("failed to build phase machine: %w", err)
	}
	pctx := &phaseContext{}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **phaseContext) {
		*c = pctx
	})
	interp.Start()
	return &phaseTracker{interp: interp, ctx: pctx, history: []Phase{PhasePlanning}}, nil
}

// Current returns the active phase.
func (t *phaseTracker) Current() Phase {
	return Phase(t.interp.State().Value)
}

// Move transitions to the given phase. It reports whether the phase changed.
func (t *phaseTracker) Move(to Phase) (bool, error) {
	from := t.Current()
	if !CanTransition(from, to) {
		return false, fmt.Errorf("transition from %s to %s not allowed", from, to)
	}
	if from == to {
		return false, nil
	}
	// Send panics on events the current state does not handle; the table
	// check above keeps it on known edges.
	t.interp.Send(statekit.Event{Type: phaseEvents[to], Payload: to})
	if got := t.Current(); got != to {
		return false, fmt.Errorf("phase machine moved to %s, expected %s", got, to)
	}
	t.history = append(t.history, to)
	return true, nil
}

// History returns the phases entered so far, starting with PLANNING.
func (t *phaseTracker) History() []Phase {
	return append([]Phase(nil), t.history...)
}

// Transitions returns how many transitions the machine executed.
func (t *phaseTracker) Transitions() int {
	return t.ctx.Transitions
}

func (t *phaseTracker) Stop() {
	t.interp.Stop()
}

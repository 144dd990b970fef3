package model

import (
	"fmt"

	"github.com/roach88/ioa/internal/ioa"
)

// Outcome reports what one Execute call did.
type Outcome struct {
	// Fired is true if the precondition held and the effect ran.
	Fired bool
	// Delivered lists the inputs that received the output, in attachment order.
	Delivered []ioa.ActionRef
}

// Execute runs one locally controlled action.
//
// The precondition is re-checked first; if it no longer holds only the
// schedule runs. Otherwise the effect runs and, for a bound output, each
// attached input receives the value in attachment order followed by its own
// schedule, and finally the output's schedule runs. The whole fan-out is one
// step: structural operations cannot interleave with it.
//
// Execute takes the registry lock shared, so actions of unrelated automata
// may run concurrently. Each automaton's record mutex is held only while its
// own code runs and two record mutexes are never held at once.
func (m *Model) Execute(ref ioa.ActionRef) (Outcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[ref.Aid]
	if !ok {
		return Outcome{}, fmt.Errorf("execute %s: %w", ref, ErrNoSuchAutomaton)
	}
	a, ok := r.actions[ref.Name]
	if !ok {
		return Outcome{}, fmt.Errorf("execute %s: %w", ref, ErrNoSuchAction)
	}
	if a.Kind == ioa.KindInput {
		return Outcome{}, fmt.Errorf("execute %s: %w", ref, ErrNotLocallyControlled)
	}
	if ref.Parameterized != a.TakesParam() {
		return Outcome{}, fmt.Errorf("execute %s: %s action takes %s: %w", ref, a.Kind, a.Params, ErrNoSuchAction)
	}

	r.mu.Lock()
	if !a.Precondition(ref.Param) {
		r.schedule(a)
		r.mu.Unlock()
		return Outcome{}, nil
	}
	v := a.Effect(ref.Param)
	r.mu.Unlock()

	var delivered []ioa.ActionRef
	if b, bound := m.outputs[ref]; bound && a.Kind == ioa.KindOutput {
		delivered = m.fire(b, v)
	}

	r.mu.Lock()
	r.schedule(a)
	r.mu.Unlock()

	return Outcome{Fired: true, Delivered: delivered}, nil
}

// fire hands v to every input of b in attachment order.
func (m *Model) fire(b *binding, v ioa.Value) []ioa.ActionRef {
	delivered := make([]ioa.ActionRef, 0, len(b.edges))
	for _, e := range b.edges {
		in := m.records[e.input.Aid]
		ia := in.actions[e.input.Name]

		in.mu.Lock()
		ia.Deliver(e.input.Param, v)
		in.schedule(ia)
		in.mu.Unlock()

		delivered = append(delivered, e.input)
	}
	return delivered
}

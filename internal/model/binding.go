package model

import (
	"fmt"

	"github.com/roach88/ioa/internal/ioa"
)

// edge is one attached (output, input) pair and the bind request that made it.
// output and input carry the parameters filled in at bind time.
type edge struct {
	binder ioa.Aid
	key    ioa.Key
	output ioa.ActionRef
	input  ioa.ActionRef
}

// binding is one output's realized composition: the inputs it delivers to,
// in attachment order. It exists while it has at least one edge.
type binding struct {
	output ioa.ActionRef
	edges  []*edge
}

// Edge describes one attached edge.
type Edge struct {
	Binder ioa.Aid
	Key    ioa.Key
	Output ioa.ActionRef
	Input  ioa.ActionRef
}

// Bind attaches input to output on behalf of binder under key.
//
// Failures are reported as result codes and are checked in this order:
// BindKeyExists, OutputAutomatonDNE, InputAutomatonDNE, ActionIncompatible,
// BindingExists, InputActionUnavailable, OutputActionUnavailable. It returns
// ErrNoSuchAutomaton if binder itself is gone.
func (m *Model) Bind(binder ioa.Aid, output, input ioa.ActionRef, key ioa.Key) (ioa.BindResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := ioa.BindResult{Key: key, Output: output, Input: input}

	b, ok := m.records[binder]
	if !ok {
		return res, fmt.Errorf("bind %q: binder %d: %w", key, binder, ErrNoSuchAutomaton)
	}
	if _, exists := b.bindKeys[key]; exists {
		res.Code = ioa.BindKeyExists
		return res, nil
	}
	out, ok := m.records[output.Aid]
	if !ok {
		res.Code = ioa.OutputAutomatonDNE
		return res, nil
	}
	in, ok := m.records[input.Aid]
	if !ok {
		res.Code = ioa.InputAutomatonDNE
		return res, nil
	}

	outAction, inAction, ok := compatible(out, output, in, input)
	if !ok {
		res.Code = ioa.ActionIncompatible
		return res, nil
	}
	output = fillParam(outAction, output, input.Aid)
	input = fillParam(inAction, input, output.Aid)
	res.Output, res.Input = output, input

	if m.edgeExists(output, input, binder) {
		res.Code = ioa.BindingExists
		return res, nil
	}
	if _, bound := m.inputs[input]; bound {
		res.Code = ioa.InputActionUnavailable
		return res, nil
	}
	if output.Aid == input.Aid || m.outputReaches(output, input.Aid) {
		res.Code = ioa.OutputActionUnavailable
		return res, nil
	}

	e := &edge{binder: binder, key: key, output: output, input: input}
	m.attach(e)
	b.bindKeys[key] = e

	ev := ioa.Event{Kind: ioa.EventBound, Key: key, Binder: binder, Output: output, Input: input}
	m.notify(out, ev)
	m.notify(in, ev)

	m.logger.Debug("bound", "binder", int(binder), "key", string(key), "output", output.String(), "input", input.String())

	res.Code = ioa.Bound
	return res, nil
}

// Unbind detaches the edge binder made under key. It returns
// ErrNoSuchAutomaton if binder itself is gone.
func (m *Model) Unbind(binder ioa.Aid, key ioa.Key) (ioa.UnbindResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := ioa.UnbindResult{Key: key}

	b, ok := m.records[binder]
	if !ok {
		return res, fmt.Errorf("unbind %q: binder %d: %w", key, binder, ErrNoSuchAutomaton)
	}
	e, ok := b.bindKeys[key]
	if !ok {
		res.Code = ioa.BindKeyDNE
		return res, nil
	}

	m.detach(e)

	ev := ioa.Event{Kind: ioa.EventUnbound, Key: key, Binder: binder, Output: e.output, Input: e.input}
	m.notify(m.records[e.output.Aid], ev)
	m.notify(m.records[e.input.Aid], ev)

	m.logger.Debug("unbound", "binder", int(binder), "key", string(key), "output", e.output.String(), "input", e.input.String())

	res.Code = ioa.Unbound
	return res, nil
}

// Edges returns every attached edge, grouped by output in the order the
// outputs were first bound, and in attachment order within an output.
func (m *Model) Edges() []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Edge
	for _, b := range m.bindings {
		for _, e := range b.edges {
			out = append(out, Edge{Binder: e.binder, Key: e.key, Output: e.output, Input: e.input})
		}
	}
	return out
}

// compatible resolves both actions and reports whether they form an
// (output, input) pair with matching value-ness and parameters.
func compatible(out *record, output ioa.ActionRef, in *record, input ioa.ActionRef) (*ioa.Action, *ioa.Action, bool) {
	oa, ok := out.actions[output.Name]
	if !ok || oa.Kind != ioa.KindOutput || !paramMatches(oa, output) {
		return nil, nil, false
	}
	ia, ok := in.actions[input.Name]
	if !ok || ia.Kind != ioa.KindInput || !paramMatches(ia, input) {
		return nil, nil, false
	}
	if oa.Valued != ia.Valued {
		return nil, nil, false
	}
	return oa, ia, true
}

// paramMatches reports whether ref carries a parameter exactly when the
// action expects one from the caller. Auto-parameterized actions are named
// without one.
func paramMatches(a *ioa.Action, ref ioa.ActionRef) bool {
	switch a.Params {
	case ioa.Parameterized:
		return ref.Parameterized
	default:
		return !ref.Parameterized
	}
}

// fillParam gives an auto-parameterized ref the peer's aid as parameter.
func fillParam(a *ioa.Action, ref ioa.ActionRef, peer ioa.Aid) ioa.ActionRef {
	if a.Params == ioa.AutoParameterized {
		return ref.WithParam(int64(peer))
	}
	return ref
}

func (m *Model) edgeExists(output, input ioa.ActionRef, binder ioa.Aid) bool {
	b, ok := m.outputs[output]
	if !ok {
		return false
	}
	for _, e := range b.edges {
		if e.input == input && e.binder == binder {
			return true
		}
	}
	return false
}

// outputReaches reports whether output already delivers to some action of
// automaton aid.
func (m *Model) outputReaches(output ioa.ActionRef, aid ioa.Aid) bool {
	b, ok := m.outputs[output]
	if !ok {
		return false
	}
	for _, e := range b.edges {
		if e.input.Aid == aid {
			return true
		}
	}
	return false
}

func (m *Model) attach(e *edge) {
	b, ok := m.outputs[e.output]
	if !ok {
		b = &binding{output: e.output}
		m.outputs[e.output] = b
		m.bindings = append(m.bindings, b)
	}
	b.edges = append(b.edges, e)
	m.inputs[e.input] = e

	m.records[e.output.Aid].addCount(e.output, 1)
	m.records[e.input.Aid].addCount(e.input, 1)
}

// detach removes e from its binding, drops the binding once it is empty and
// releases the binder's key. It sends no notifications.
func (m *Model) detach(e *edge) {
	b := m.outputs[e.output]
	if b == nil {
		panic(fmt.Sprintf("model: edge %s->%s has no binding", e.output, e.input))
	}
	for i, x := range b.edges {
		if x == e {
			b.edges = append(b.edges[:i], b.edges[i+1:]...)
			break
		}
	}
	if len(b.edges) == 0 {
		delete(m.outputs, e.output)
		for i, x := range m.bindings {
			if x == b {
				m.bindings = append(m.bindings[:i], m.bindings[i+1:]...)
				break
			}
		}
	}
	delete(m.inputs, e.input)

	if r, ok := m.records[e.output.Aid]; ok {
		r.addCount(e.output, -1)
	}
	if r, ok := m.records[e.input.Aid]; ok {
		r.addCount(e.input, -1)
	}
	if r, ok := m.records[e.binder]; ok && r.bindKeys[e.key] == e {
		delete(r.bindKeys, e.key)
	}
}

// unbindAutomaton removes every edge in which aid is the output, the input or
// the binder. Each surviving participant of a removed edge is notified once
// per edge.
func (m *Model) unbindAutomaton(aid ioa.Aid) {
	var doomed []*edge
	for _, b := range m.bindings {
		for _, e := range b.edges {
			if e.output.Aid == aid || e.input.Aid == aid || e.binder == aid {
				doomed = append(doomed, e)
			}
		}
	}

	for _, e := range doomed {
		m.detach(e)

		ev := ioa.Event{Kind: ioa.EventUnbound, Key: e.key, Binder: e.binder, Output: e.output, Input: e.input}
		notified := make(map[ioa.Aid]bool, 3)
		for _, to := range []ioa.Aid{e.output.Aid, e.input.Aid, e.binder} {
			if to == aid || notified[to] {
				continue
			}
			notified[to] = true
			if r, ok := m.records[to]; ok {
				m.notify(r, ev)
			}
		}
	}
}

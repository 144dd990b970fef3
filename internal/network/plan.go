package network

import (
	"fmt"

	"github.com/roach88/ioa/internal/automata"
	"github.com/roach88/ioa/internal/ioa"
)

// Plan validates t and translates it into an automata.Plan. Members keep
// declaration order; so do links.
func (t *Topology) Plan() (automata.Plan, error) {
	if err := t.Validate(); err != nil {
		return automata.Plan{}, fmt.Errorf("invalid topology: %w", err)
	}

	var plan automata.Plan
	for _, a := range t.Automata {
		spec, err := a.spec()
		if err != nil {
			return automata.Plan{}, fmt.Errorf("automaton %s: %w", a.Name, err)
		}
		gen, err := automata.New(spec)
		if err != nil {
			return automata.Plan{}, fmt.Errorf("automaton %s: %w", a.Name, err)
		}
		plan.Members = append(plan.Members, automata.Member{Name: a.Name, Gen: gen})
	}
	for _, b := range t.Bindings {
		out, _ := ParsePort(b.Output)
		in, _ := ParsePort(b.Input)
		plan.Links = append(plan.Links, automata.Link{Output: out, Input: in})
	}
	return plan, nil
}

// Composer returns the root generator that builds t.
func (t *Topology) Composer() (ioa.Generator, error) {
	plan, err := t.Plan()
	if err != nil {
		return nil, err
	}
	return automata.NewComposer(plan), nil
}

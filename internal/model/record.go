package model

import (
	"sort"
	"sync"

	"github.com/roach88/ioa/internal/ioa"
)

// record is one live automaton and its bookkeeping.
type record struct {
	// mu is held while the automaton's own code runs.
	mu sync.Mutex

	aid     ioa.Aid
	inst    ioa.Automaton
	ctx     *ioa.Context
	actions map[string]*ioa.Action

	parent   *record
	key      ioa.Key
	children map[ioa.Key]*record

	// bindKeys holds the edges this automaton made, by bind key.
	bindKeys map[ioa.Key]*edge

	// counts is the number of edges attached to each of this automaton's
	// actions. Written only under the registry's write lock.
	counts map[ioa.ActionRef]int
}

func newRecord(aid ioa.Aid, inst ioa.Automaton, ctx *ioa.Context, actions []ioa.Action) *record {
	r := &record{
		aid:      aid,
		inst:     inst,
		ctx:      ctx,
		actions:  make(map[string]*ioa.Action, len(actions)),
		children: make(map[ioa.Key]*record),
		bindKeys: make(map[ioa.Key]*edge),
		counts:   make(map[ioa.ActionRef]int),
	}
	for i := range actions {
		a := actions[i]
		r.actions[a.Name] = &a
	}
	return r
}

// schedule runs the action's schedule override, or the automaton's.
// r.mu must be held.
func (r *record) schedule(a *ioa.Action) {
	if a != nil && a.Schedule != nil {
		a.Schedule()
		return
	}
	r.inst.Schedule()
}

// sortedChildren returns the children in ascending aid order so that
// destruction order is deterministic.
func (r *record) sortedChildren() []*record {
	out := make([]*record, 0, len(r.children))
	for _, c := range r.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].aid < out[j].aid })
	return out
}

func (r *record) addCount(ref ioa.ActionRef, delta int) {
	n := r.counts[ref] + delta
	if n < 0 {
		panic("model: negative binding count for " + ref.String())
	}
	if n == 0 {
		delete(r.counts, ref)
		return
	}
	r.counts[ref] = n
}

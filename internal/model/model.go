package model

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/roach88/ioa/internal/idset"
	"github.com/roach88/ioa/internal/ioa"
)

// Model maps aids to records and applies structural operations.
type Model struct {
	mu sync.RWMutex

	sys    ioa.System
	logger *slog.Logger

	ids       *idset.Set
	records   map[ioa.Aid]*record
	instances map[ioa.Automaton]ioa.Aid

	// bindings is in creation order; outputs and inputs index it.
	bindings []*binding
	outputs  map[ioa.ActionRef]*binding
	inputs   map[ioa.ActionRef]*edge

	// onDestroy runs, under the registry lock, for every automaton
	// destroy removes.
	onDestroy func(ioa.Aid)
}

// New creates an empty model. sys is handed to every automaton's Context.
func New(sys ioa.System, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{
		sys:       sys,
		logger:    logger,
		ids:       idset.New(),
		records:   make(map[ioa.Aid]*record),
		instances: make(map[ioa.Automaton]ioa.Aid),
		outputs:   make(map[ioa.ActionRef]*binding),
		inputs:    make(map[ioa.ActionRef]*edge),
	}
}

// OnDestroy registers fn to run for each automaton the model destroys,
// subtrees included. fn runs with the registry lock held and must not call
// back into the model. Schedulers use it to drop timers and descriptor
// registrations that only the destroyed automaton could have consumed.
func (m *Model) OnDestroy(fn func(ioa.Aid)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDestroy = fn
}

// CreateRoot creates an automaton with no parent.
func (m *Model) CreateRoot(gen ioa.Generator) ioa.CreateResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.create(nil, "", gen)
}

// Create creates an automaton as the child of creator under key.
// It returns ErrNoSuchAutomaton if creator is gone.
func (m *Model) Create(creator ioa.Aid, key ioa.Key, gen ioa.Generator) (ioa.CreateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent, ok := m.records[creator]
	if !ok {
		return ioa.CreateResult{}, fmt.Errorf("create %q: creator %d: %w", key, creator, ErrNoSuchAutomaton)
	}
	if _, exists := parent.children[key]; exists {
		return ioa.CreateResult{Code: ioa.CreateKeyExists, Key: key, Aid: ioa.NoAid}, nil
	}
	return m.create(parent, key, gen), nil
}

func (m *Model) create(parent *record, key ioa.Key, gen ioa.Generator) ioa.CreateResult {
	aid := ioa.Aid(m.ids.Take())
	ctx := ioa.NewContext(aid, m.sys, m.logger)

	inst := gen(ctx)
	if inst == nil {
		panic(fmt.Sprintf("model: generator for automaton %d returned nil", aid))
	}
	if t := reflect.TypeOf(inst); !t.Comparable() {
		panic(fmt.Sprintf("model: automaton type %s is not comparable; use a pointer", t))
	}
	if _, dup := m.instances[inst]; dup {
		m.ids.Replace(int(aid))
		return ioa.CreateResult{Code: ioa.InstanceExists, Key: key, Aid: ioa.NoAid}
	}

	actions := inst.Actions()
	if err := ioa.Validate(actions); err != nil {
		panic(fmt.Sprintf("model: automaton %d (%T): %v", aid, inst, err))
	}

	r := newRecord(aid, inst, ctx, actions)
	m.records[aid] = r
	m.instances[inst] = aid
	if parent != nil {
		r.parent = parent
		r.key = key
		parent.children[key] = r
	}

	m.logger.Debug("automaton created", "aid", int(aid), "key", string(key), "type", fmt.Sprintf("%T", inst))

	r.mu.Lock()
	r.inst.Schedule()
	r.mu.Unlock()

	return ioa.CreateResult{Code: ioa.AutomatonCreated, Key: key, Aid: aid}
}

// Destroy destroys the child destroyer created under key, with its whole
// subtree. It returns ErrNoSuchAutomaton if destroyer is gone.
func (m *Model) Destroy(destroyer ioa.Aid, key ioa.Key) (ioa.DestroyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.records[destroyer]
	if !ok {
		return ioa.DestroyResult{}, fmt.Errorf("destroy %q: destroyer %d: %w", key, destroyer, ErrNoSuchAutomaton)
	}
	child, ok := d.children[key]
	if !ok {
		return ioa.DestroyResult{Code: ioa.CreateKeyDNE, Key: key, Aid: ioa.NoAid}, nil
	}
	aid := child.aid
	m.destroy(child)
	return ioa.DestroyResult{Code: ioa.AutomatonDestroyed, Key: key, Aid: aid}, nil
}

// DestroyAid destroys target, which destroyer must have created.
func (m *Model) DestroyAid(destroyer, target ioa.Aid) (ioa.DestroyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.records[destroyer]
	if !ok {
		return ioa.DestroyResult{}, fmt.Errorf("destroy %d: destroyer %d: %w", target, destroyer, ErrNoSuchAutomaton)
	}
	t, ok := m.records[target]
	if !ok {
		return ioa.DestroyResult{Code: ioa.TargetAutomatonDNE, Aid: target}, nil
	}
	if t.parent != d {
		return ioa.DestroyResult{Code: ioa.DestroyerNotCreator, Aid: target}, nil
	}
	key := t.key
	m.destroy(t)
	return ioa.DestroyResult{Code: ioa.AutomatonDestroyed, Key: key, Aid: target}, nil
}

// DestroyTarget destroys target regardless of who created it. Schedulers
// use it for self-destruction and for tearing down roots.
func (m *Model) DestroyTarget(target ioa.Aid) ioa.DestroyResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.records[target]
	if !ok {
		return ioa.DestroyResult{Code: ioa.TargetAutomatonDNE, Aid: target}
	}
	key := t.key
	m.destroy(t)
	return ioa.DestroyResult{Code: ioa.AutomatonDestroyed, Key: key, Aid: target}
}

// DestroyAll destroys every root automaton and rewinds the id allocator,
// returning the model to its freshly constructed state. It returns the
// number of automata destroyed.
func (m *Model) DestroyAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := len(m.records)
	for _, r := range m.rootsLocked() {
		m.destroy(r)
	}
	if len(m.records) != 0 || len(m.bindings) != 0 || len(m.inputs) != 0 || len(m.instances) != 0 {
		panic(fmt.Sprintf("model: %d records, %d bindings, %d edges, %d instances left after destroying all roots",
			len(m.records), len(m.bindings), len(m.inputs), len(m.instances)))
	}
	m.ids.Clear()
	return before
}

// destroy removes r and its subtree depth-first: children first, then r's
// edges, then r itself.
func (m *Model) destroy(r *record) {
	for _, c := range r.sortedChildren() {
		m.destroy(c)
	}
	if len(r.children) != 0 {
		panic(fmt.Sprintf("model: automaton %d still has %d children after destroying them", r.aid, len(r.children)))
	}

	m.unbindAutomaton(r.aid)

	if p := r.parent; p != nil {
		delete(p.children, r.key)
		m.notify(p, ioa.Event{Kind: ioa.EventChildDestroyed, Key: r.key, Aid: r.aid})
	}

	m.ids.Replace(int(r.aid))
	delete(m.records, r.aid)
	delete(m.instances, r.inst)
	if m.onDestroy != nil {
		m.onDestroy(r.aid)
	}

	m.logger.Debug("automaton destroyed", "aid", int(r.aid), "key", string(r.key))
}

// notify queues ev in r's mailbox and lets r re-arm.
// The registry lock must be held exclusively.
func (m *Model) notify(r *record, ev ioa.Event) {
	r.ctx.Events().Push(ev)
	r.mu.Lock()
	r.inst.Schedule()
	r.mu.Unlock()
}

// Deliver runs fn while holding to's record mutex, then runs to's Schedule.
// Schedulers use it to hand a structural result to its requester. It
// reports false, without calling fn, if to is gone.
func (m *Model) Deliver(to ioa.Aid, fn func()) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[to]
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
	r.inst.Schedule()
	return true
}

// BindingCount returns the number of edges attached to ref.
func (m *Model) BindingCount(ref ioa.ActionRef) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bindingCount(ref)
}

// CallbackBindingCount is BindingCount for automaton callbacks, which already
// run under the registry lock (shared or exclusive) and must not take it
// again.
func (m *Model) CallbackBindingCount(ref ioa.ActionRef) int {
	return m.bindingCount(ref)
}

func (m *Model) bindingCount(ref ioa.ActionRef) int {
	r, ok := m.records[ref.Aid]
	if !ok {
		return 0
	}
	return r.counts[ref]
}

// Exists reports whether aid names a live automaton.
func (m *Model) Exists(aid ioa.Aid) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[aid]
	return ok
}

// Len returns the number of live automata.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Instance returns the automaton registered under aid.
func (m *Model) Instance(aid ioa.Aid) (ioa.Automaton, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[aid]
	if !ok {
		return nil, false
	}
	return r.inst, true
}

// Parent returns the aid of aid's creator, or ioa.NoAid for roots.
func (m *Model) Parent(aid ioa.Aid) (ioa.Aid, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[aid]
	if !ok {
		return ioa.NoAid, false
	}
	if r.parent == nil {
		return ioa.NoAid, true
	}
	return r.parent.aid, true
}

// Children returns aid's children by create key.
func (m *Model) Children(aid ioa.Aid) map[ioa.Key]ioa.Aid {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[aid]
	if !ok {
		return nil
	}
	out := make(map[ioa.Key]ioa.Aid, len(r.children))
	for k, c := range r.children {
		out[k] = c.aid
	}
	return out
}

// Roots returns the aids of automata with no parent, ascending.
func (m *Model) Roots() []ioa.Aid {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roots := m.rootsLocked()
	out := make([]ioa.Aid, len(roots))
	for i, r := range roots {
		out[i] = r.aid
	}
	return out
}

func (m *Model) rootsLocked() []*record {
	var roots []*record
	for _, r := range m.records {
		if r.parent == nil {
			roots = append(roots, r)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].aid < roots[j].aid })
	return roots
}

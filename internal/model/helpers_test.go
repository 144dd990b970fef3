package model

import (
	"time"

	"github.com/roach88/ioa/internal/ioa"
)

// nopSystem satisfies ioa.System for tests that drive the model directly.
type nopSystem struct{}

func (nopSystem) Schedule(ioa.ActionRef) {}
func (nopSystem) ScheduleAfter(ioa.ActionRef, time.Duration) {}
func (nopSystem) ScheduleReadReady(ioa.ActionRef, int) {}
func (nopSystem) ScheduleWriteReady(ioa.ActionRef, int) {}
func (nopSystem) Close(int) {}
func (nopSystem) BindingCount(ioa.ActionRef) int { return 0 }
func (nopSystem) Create(ioa.Aid, ioa.Key, ioa.Generator) <-chan ioa.CreateResult {
	return nil
}
func (nopSystem) Bind(ioa.Aid, ioa.ActionRef, ioa.ActionRef, ioa.Key) <-chan ioa.BindResult {
	return nil
}
func (nopSystem) Unbind(ioa.Aid, ioa.Key) <-chan ioa.UnbindResult { return nil }
func (nopSystem) Destroy(ioa.Aid, ioa.Key) <-chan ioa.DestroyResult { return nil }
func (nopSystem) DestroyAid(ioa.Aid, ioa.Aid) <-chan ioa.DestroyResult { return nil }
func (nopSystem) SelfDestruct(ioa.Aid) {}

// stub is a configurable automaton that writes what happens to it into a
// shared log.
type stub struct {
	ctx       *ioa.Context
	name      string
	log       *[]string
	enabled   bool
	next      int
	received  []ioa.Value
	params    []int64
	schedules int
}

func (p *stub) Actions() []ioa.Action {
	return []ioa.Action{
		ioa.ValuedOutputAction("out", func() bool { return p.enabled }, func() ioa.Value {
			p.next++
			p.record("out")
			return p.next
		}),
		ioa.OutputAction("pulse", func() bool { return p.enabled }, func() { p.record("pulse") }),
		ioa.ValuedInputAction("in", func(v ioa.Value) {
			p.received = append(p.received, v)
			p.record("in")
		}),
		ioa.ValuedInputAction("in2", func(v ioa.Value) {
			p.received = append(p.received, v)
			p.record("in2")
		}),
		ioa.InputAction("tap", func() { p.record("tap") }),
		ioa.InternalAction("step", func() bool { return p.enabled }, func() { p.record("step") }),
		{
			Name:         "aout",
			Kind:         ioa.KindOutput,
			Params:       ioa.AutoParameterized,
			Precondition: func(int64) bool { return p.enabled },
			Effect: func(q int64) ioa.Value {
				p.params = append(p.params, q)
				p.record("aout")
				return nil
			},
		},
		{
			Name:   "ain",
			Kind:   ioa.KindInput,
			Params: ioa.AutoParameterized,
			Deliver: func(q int64, _ ioa.Value) {
				p.params = append(p.params, q)
				p.record("ain")
			},
		},
		{
			Name:         "pout",
			Kind:         ioa.KindOutput,
			Params:       ioa.Parameterized,
			Precondition: func(int64) bool { return p.enabled },
			Effect: func(q int64) ioa.Value {
				p.params = append(p.params, q)
				p.record("pout")
				return nil
			},
		},
	}
}

func (p *stub) Schedule() { p.schedules++ }

func (p *stub) record(action string) {
	if p.log != nil {
		*p.log = append(*p.log, p.name+"."+action)
	}
}

// stubs builds stub generators sharing one log and remembers every
// instance it makes.
type stubs struct {
	log []string
	all map[ioa.Aid]*stub
}

func newStubs() *stubs {
	return &stubs{all: make(map[ioa.Aid]*stub)}
}

func (ps *stubs) gen(name string) ioa.Generator {
	return func(c *ioa.Context) ioa.Automaton {
		p := &stub{ctx: c, name: name, log: &ps.log, enabled: true}
		ps.all[c.Aid()] = p
		return p
	}
}

func (ps *stubs) events(aid ioa.Aid) []ioa.Event {
	return ps.all[aid].ctx.Events().Drain()
}

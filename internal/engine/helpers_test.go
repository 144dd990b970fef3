package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ioa/internal/automata"
	"github.com/roach88/ioa/internal/ioa"
	"github.com/roach88/ioa/internal/trace"
)

// schedulers builds one of each scheduler with a shared recorder.
func schedulers(t *testing.T) map[string]func(...Option) Scheduler {
	t.Helper()
	return map[string]func(...Option) Scheduler{
		KindCooperative: func(opts ...Option) Scheduler { return NewCooperative(opts...) },
		KindPool: func(opts ...Option) Scheduler {
			return NewPool(append([]Option{WithWorkers(4)}, opts...)...)
		},
	}
}

func runWithin(t *testing.T, s Scheduler, gen ioa.Generator) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.Run(ctx, gen)
	require.False(t, IsCanceled(err), "run did not reach a fixed point: %v", err)
	return err
}

// counter fires its internal "step" action limit times.
type counter struct {
	ctx   *ioa.Context
	limit int
	n     int
}

func (c *counter) Actions() []ioa.Action {
	return []ioa.Action{
		ioa.InternalAction("step", func() bool { return c.n < c.limit }, func() { c.n++ }),
	}
}

func (c *counter) Schedule() {
	if c.n < c.limit {
		c.ctx.Schedule(c.ctx.Ref("step"))
	}
}

// burst schedules "step" three times from its first Schedule call and never
// again.
type burst struct {
	ctx   *ioa.Context
	armed bool
	fired int
}

func (b *burst) Actions() []ioa.Action {
	return []ioa.Action{
		ioa.InternalAction("step", func() bool { return true }, func() { b.fired++ }),
	}
}

func (b *burst) Schedule() {
	if b.armed {
		return
	}
	b.armed = true
	for i := 0; i < 3; i++ {
		b.ctx.Schedule(b.ctx.Ref("step"))
	}
}

// spinner reschedules itself forever; only cancellation stops it.
type spinner struct {
	ctx *ioa.Context
}

func (s *spinner) Actions() []ioa.Action {
	return []ioa.Action{ioa.InternalAction("spin", func() bool { return true }, func() {})}
}

func (s *spinner) Schedule() { s.ctx.Schedule(s.ctx.Ref("spin")) }

// pipeline returns a composer generator for src -> relay -> sink, plus
// accessors for the sink and the composer once they exist.
func pipeline(count int) (ioa.Generator, func() *automata.Sink, func() *automata.Composer) {
	var sink *automata.Sink
	var comp *automata.Composer

	srcGen, _ := automata.New(automata.Spec{Type: automata.TypeSource, Count: count})
	relayGen, _ := automata.New(automata.Spec{Type: automata.TypeRelay})
	plan := automata.Plan{
		Members: []automata.Member{
			{Name: "src", Gen: srcGen},
			{Name: "relay", Gen: relayGen},
			{Name: "sink", Gen: func(c *ioa.Context) ioa.Automaton {
				sink = automata.NewSink(c)
				return sink
			}},
		},
		Links: []automata.Link{
			{Output: automata.Port{Automaton: "src", Action: "out"}, Input: automata.Port{Automaton: "relay", Action: "in"}},
			{Output: automata.Port{Automaton: "relay", Action: "out"}, Input: automata.Port{Automaton: "sink", Action: "in"}},
		},
	}
	root := automata.NewComposer(plan)
	gen := func(c *ioa.Context) ioa.Automaton {
		a := root(c)
		comp = a.(*automata.Composer)
		return a
	}
	return gen, func() *automata.Sink { return sink }, func() *automata.Composer { return comp }
}

func fired(entries []trace.Entry, aid int, action string) int {
	n := 0
	for _, e := range entries {
		if e.Op == trace.OpExecute && e.Aid == aid && e.Action == action && e.Result == trace.ResultFired {
			n++
		}
	}
	return n
}

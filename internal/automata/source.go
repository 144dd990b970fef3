package automata

import "github.com/roach88/ioa/internal/ioa"

// Source emits the values 1 through count on its valued output "out", one
// per step, while out is bound.
type Source struct {
	ctx   *ioa.Context
	count int
	sent  int
}

// NewSource returns a source that emits count values.
func NewSource(c *ioa.Context, count int) *Source {
	return &Source{ctx: c, count: count}
}

// Actions declares the valued output "out".
func (s *Source) Actions() []ioa.Action {
	return []ioa.Action{
		ioa.ValuedOutputAction("out", s.ready, func() ioa.Value {
			s.sent++
			return s.sent
		}),
	}
}

func (s *Source) ready() bool {
	return s.sent < s.count && s.ctx.BindingCount(s.ctx.Ref("out")) > 0
}

// Schedule queues "out" while values remain and out is bound.
func (s *Source) Schedule() {
	if s.ready() {
		s.ctx.Schedule(s.ctx.Ref("out"))
	}
}

// Sent returns how many values have been emitted.
func (s *Source) Sent() int { return s.sent }

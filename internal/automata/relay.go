package automata

import "github.com/roach88/ioa/internal/ioa"

// Relay forwards values from its input "in" to its output "out" in arrival
// order. Values wait while out is unbound.
type Relay struct {
	ctx     *ioa.Context
	pending []ioa.Value
}

// NewRelay returns a relay with nothing pending.
func NewRelay(c *ioa.Context) *Relay {
	return &Relay{ctx: c}
}

// Actions declares "in" and "out", both valued.
func (r *Relay) Actions() []ioa.Action {
	return []ioa.Action{
		ioa.ValuedInputAction("in", func(v ioa.Value) {
			r.pending = append(r.pending, v)
		}),
		ioa.ValuedOutputAction("out", r.ready, func() ioa.Value {
			v := r.pending[0]
			r.pending[0] = nil
			r.pending = r.pending[1:]
			return v
		}),
	}
}

func (r *Relay) ready() bool {
	return len(r.pending) > 0 && r.ctx.BindingCount(r.ctx.Ref("out")) > 0
}

// Schedule queues "out" when a value is waiting and out is bound.
func (r *Relay) Schedule() {
	if r.ready() {
		r.ctx.Schedule(r.ctx.Ref("out"))
	}
}

// Pending returns how many values are waiting to be forwarded.
func (r *Relay) Pending() int { return len(r.pending) }

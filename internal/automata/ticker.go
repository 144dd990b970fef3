package automata

import (
	"time"

	"github.com/roach88/ioa/internal/ioa"
)

// Ticker fires its internal "tick" action count times, period apart, and
// emits one unvalued pulse on "out" per tick while out is bound.
type Ticker struct {
	ctx    *ioa.Context
	period time.Duration
	count  int

	ticks   int
	pending int
	armed   bool
}

// NewTicker returns a ticker that fires count times, period apart.
func NewTicker(c *ioa.Context, period time.Duration, count int) *Ticker {
	return &Ticker{ctx: c, period: period, count: count}
}

// Actions declares the internal "tick" and the unvalued output "out".
func (t *Ticker) Actions() []ioa.Action {
	return []ioa.Action{
		ioa.InternalAction("tick", func() bool { return t.ticks < t.count }, func() {
			t.ticks++
			t.pending++
			t.armed = false
		}),
		ioa.OutputAction("out", t.canPulse, func() { t.pending-- }),
	}
}

func (t *Ticker) canPulse() bool {
	return t.pending > 0 && t.ctx.BindingCount(t.ctx.Ref("out")) > 0
}

// Schedule arms the next tick timer and queues a pulse when one is owed.
func (t *Ticker) Schedule() {
	if t.ticks < t.count && !t.armed {
		t.armed = true
		t.ctx.ScheduleAfter(t.ctx.Ref("tick"), t.period)
	}
	if t.canPulse() {
		t.ctx.Schedule(t.ctx.Ref("out"))
	}
}

// Ticks returns how many ticks have fired.
func (t *Ticker) Ticks() int { return t.ticks }

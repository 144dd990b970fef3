package automata

import (
	"sync"

	"github.com/roach88/ioa/internal/ioa"
)

// Sink records every value delivered to its valued input "in".
type Sink struct {
	ctx *ioa.Context

	mu       sync.Mutex
	received []ioa.Value
}

// NewSink returns an empty sink.
func NewSink(c *ioa.Context) *Sink {
	return &Sink{ctx: c}
}

// Actions declares the single valued input "in".
func (s *Sink) Actions() []ioa.Action {
	return []ioa.Action{
		ioa.ValuedInputAction("in", func(v ioa.Value) {
			s.mu.Lock()
			s.received = append(s.received, v)
			s.mu.Unlock()
			s.ctx.Logger().Debug("sink received", "value", v)
		}),
	}
}

// Schedule does nothing; a sink never acts on its own.
func (s *Sink) Schedule() {}

// Received returns a copy of the values received so far.
func (s *Sink) Received() []ioa.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ioa.Value, len(s.received))
	copy(out, s.received)
	return out
}

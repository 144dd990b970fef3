package automata

import (
	"fmt"
	"sort"
	"time"

	"github.com/roach88/ioa/internal/ioa"
)

// Automaton types known to New.
const (
	TypeSource = "source"
	TypeSink   = "sink"
	TypeRelay  = "relay"
	TypeTicker = "ticker"
)

// Spec selects and parameterizes one catalog automaton.
type Spec struct {
	Type   string
	Count  int
	Period time.Duration
}

// Ports lists the output and input action names of each type.
var Ports = map[string]struct{ Outputs, Inputs []string }{
	TypeSource: {Outputs: []string{"out"}},
	TypeSink:   {Inputs: []string{"in"}},
	TypeRelay:  {Outputs: []string{"out"}, Inputs: []string{"in"}},
	TypeTicker: {Outputs: []string{"out"}},
}

// Types returns the known type names, sorted.
func Types() []string {
	out := make([]string, 0, len(Ports))
	for t := range Ports {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// New returns a generator for spec.
func New(spec Spec) (ioa.Generator, error) {
	switch spec.Type {
	case TypeSource:
		if spec.Count < 0 {
			return nil, fmt.Errorf("source: count must not be negative, got %d", spec.Count)
		}
		return func(c *ioa.Context) ioa.Automaton { return NewSource(c, spec.Count) }, nil
	case TypeSink:
		return func(c *ioa.Context) ioa.Automaton { return NewSink(c) }, nil
	case TypeRelay:
		return func(c *ioa.Context) ioa.Automaton { return NewRelay(c) }, nil
	case TypeTicker:
		if spec.Period <= 0 {
			return nil, fmt.Errorf("ticker: period must be positive, got %s", spec.Period)
		}
		if spec.Count < 0 {
			return nil, fmt.Errorf("ticker: count must not be negative, got %d", spec.Count)
		}
		return func(c *ioa.Context) ioa.Automaton { return NewTicker(c, spec.Period, spec.Count) }, nil
	default:
		return nil, fmt.Errorf("unknown automaton type %q", spec.Type)
	}
}

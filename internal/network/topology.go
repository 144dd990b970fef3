package network

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/roach88/ioa/internal/automata"
)

// Topology is a network of catalog automata.
type Topology struct {
	Name     string      `yaml:"name" json:"name"`
	Automata []Automaton `yaml:"automata" json:"automata"`
	Bindings []Binding   `yaml:"bindings" json:"bindings"`
}

// Automaton declares one catalog automaton. Period is a Go duration string
// and only applies to tickers.
type Automaton struct {
	Name   string `yaml:"name" json:"name"`
	Type   string `yaml:"type" json:"type"`
	Count  int    `yaml:"count,omitempty" json:"count,omitempty"`
	Period string `yaml:"period,omitempty" json:"period,omitempty"`
}

// Binding connects an output endpoint to an input endpoint, each written
// "automaton.action".
type Binding struct {
	Output string `yaml:"output" json:"output"`
	Input  string `yaml:"input" json:"input"`
}

// ValidationError reports one problem with a topology.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParsePort splits an "automaton.action" endpoint.
func ParsePort(s string) (automata.Port, error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return automata.Port{}, fmt.Errorf("endpoint %q is not of the form automaton.action", s)
	}
	return automata.Port{Automaton: s[:i], Action: s[i+1:]}, nil
}

// Validate checks t and returns every problem found, joined.
func (t *Topology) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(t.Automata) == 0 {
		fail("automata", "at least one automaton is required")
	}

	types := make(map[string]string, len(t.Automata))
	for i, a := range t.Automata {
		field := fmt.Sprintf("automata[%d]", i)
		switch {
		case a.Name == "":
			fail(field, "name is required")
			continue
		case strings.Contains(a.Name, "."):
			fail(field, "name %q must not contain '.'", a.Name)
			continue
		}
		if _, dup := types[a.Name]; dup {
			fail(field, "duplicate automaton name %q", a.Name)
			continue
		}
		types[a.Name] = a.Type

		if _, err := a.spec(); err != nil {
			fail(field, "%v", err)
		}
	}

	seen := make(map[Binding]bool, len(t.Bindings))
	inputs := make(map[string]string)
	for i, b := range t.Bindings {
		field := fmt.Sprintf("bindings[%d]", i)
		out, errOut := t.checkPort(types, b.Output, true)
		if errOut != nil {
			fail(field+".output", "%v", errOut)
		}
		in, errIn := t.checkPort(types, b.Input, false)
		if errIn != nil {
			fail(field+".input", "%v", errIn)
		}
		if errOut != nil || errIn != nil {
			continue
		}
		if out.Automaton == in.Automaton {
			fail(field, "%s cannot be bound to its own automaton", b.Output)
			continue
		}
		if seen[b] {
			fail(field, "duplicate binding %s -> %s", b.Output, b.Input)
			continue
		}
		seen[b] = true
		if prev, taken := inputs[b.Input]; taken {
			fail(field, "input %s is already bound to %s", b.Input, prev)
			continue
		}
		inputs[b.Input] = b.Output
	}

	return errors.Join(errs...)
}

func (t *Topology) checkPort(types map[string]string, endpoint string, output bool) (automata.Port, error) {
	p, err := ParsePort(endpoint)
	if err != nil {
		return p, err
	}
	typ, ok := types[p.Automaton]
	if !ok {
		return p, fmt.Errorf("automaton %q is not declared", p.Automaton)
	}
	ports, ok := automata.Ports[typ]
	if !ok {
		// unknown type, already reported
		return p, nil
	}
	names, kind := ports.Inputs, "input"
	if output {
		names, kind = ports.Outputs, "output"
	}
	for _, n := range names {
		if n == p.Action {
			return p, nil
		}
	}
	return p, fmt.Errorf("%s has no %s action %q", typ, kind, p.Action)
}

func (a Automaton) spec() (automata.Spec, error) {
	s := automata.Spec{Type: a.Type, Count: a.Count}
	if _, ok := automata.Ports[a.Type]; !ok {
		return s, fmt.Errorf("unknown type %q (known: %s)", a.Type, strings.Join(automata.Types(), ", "))
	}
	if a.Period != "" {
		if a.Type != automata.TypeTicker {
			return s, fmt.Errorf("period only applies to %s", automata.TypeTicker)
		}
		d, err := time.ParseDuration(a.Period)
		if err != nil {
			return s, fmt.Errorf("period: %w", err)
		}
		s.Period = d
	}
	if _, err := automata.New(s); err != nil {
		return s, err
	}
	return s, nil
}

// Describe renders t in a normalized form: automata sorted by name,
// bindings sorted by output then input.
func (t *Topology) Describe() string {
	var b strings.Builder

	name := t.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(&b, "topology: %s\n", name)

	as := append([]Automaton(nil), t.Automata...)
	sort.Slice(as, func(i, j int) bool { return as[i].Name < as[j].Name })
	fmt.Fprintf(&b, "automata (%d):\n", len(as))
	for _, a := range as {
		fmt.Fprintf(&b, "  %s: %s", a.Name, a.Type)
		switch a.Type {
		case automata.TypeSource:
			fmt.Fprintf(&b, " count=%d", a.Count)
		case automata.TypeTicker:
			fmt.Fprintf(&b, " count=%d period=%s", a.Count, a.Period)
		}
		b.WriteByte('\n')
	}

	bs := append([]Binding(nil), t.Bindings...)
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].Output != bs[j].Output {
			return bs[i].Output < bs[j].Output
		}
		return bs[i].Input < bs[j].Input
	})
	fmt.Fprintf(&b, "bindings (%d):\n", len(bs))
	for _, x := range bs {
		fmt.Fprintf(&b, "  %s -> %s\n", x.Output, x.Input)
	}
	return b.String()
}

package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/ioa/internal/trace"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []trace.Entry
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		trace.WriteText(&buf, e.Trace, false)
	}
	return buf.String()
}

// view resolves the aids in a journal to the names their creators gave them.
type view struct {
	entries []trace.Entry
	names   map[int]string
}

func newView(entries []trace.Entry) *view {
	return &view{entries: entries, names: trace.Names(entries)}
}

func (v *view) action(aid int, name string) string {
	return v.names[aid] + "." + name
}

// fired returns the named actions that fired, in journal order.
func (v *view) fired() []string {
	var out []string
	for _, e := range v.entries {
		if e.Op == trace.OpExecute && e.Result == trace.ResultFired {
			out = append(out, v.action(e.Aid, e.Action))
		}
	}
	return out
}

func assertTraceCount(v *view, a Assertion) error {
	count := 0
	for _, name := range v.fired() {
		if name == a.Action {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s fired %d times", a.Action, a.Count),
			Actual:   fmt.Sprintf("%d times", count),
			Trace:    v.entries,
		}
	}
	return nil
}

// assertTraceOrder checks that actions first fired in the listed order.
// Other actions may fire in between.
func assertTraceOrder(v *view, a Assertion) error {
	positions := make(map[string]int)
	for i, name := range v.fired() {
		if _, seen := positions[name]; !seen {
			positions[name] = i + 1
		}
	}

	for _, action := range a.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions fired: %v", a.Actions),
				Actual:   fmt.Sprintf("%s never fired", action),
				Trace:    v.entries,
			}
		}
	}

	for i := 1; i < len(a.Actions); i++ {
		prev, curr := a.Actions[i-1], a.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (firing %d) should be before %s (firing %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: v.entries,
			}
		}
	}
	return nil
}

func assertDeliveries(v *view, a Assertion) error {
	count := 0
	for _, e := range v.entries {
		if e.Op != trace.OpExecute {
			continue
		}
		for _, d := range e.Delivered {
			if v.action(d.Aid, d.Action) == a.Action {
				count++
			}
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertDeliveries,
			Expected: fmt.Sprintf("%d deliveries to %s", a.Count, a.Action),
			Actual:   fmt.Sprintf("%d deliveries", count),
			Trace:    v.entries,
		}
	}
	return nil
}

func assertBindResult(v *view, a Assertion) error {
	for _, e := range v.entries {
		if e.Op != trace.OpBind || e.Key != a.Key {
			continue
		}
		if e.Result != a.Result {
			return &AssertionError{
				Type:     AssertBindResult,
				Expected: fmt.Sprintf("bind %q answered %s", a.Key, a.Result),
				Actual:   e.Result,
				Trace:    v.entries,
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertBindResult,
		Expected: fmt.Sprintf("bind %q answered %s", a.Key, a.Result),
		Actual:   "no bind under that key",
		Trace:    v.entries,
	}
}

// EvaluateAssertions checks every assertion against entries and returns the
// failure messages, in assertion order.
func EvaluateAssertions(entries []trace.Entry, assertions []Assertion) []string {
	v := newView(entries)
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceCount:
			err = assertTraceCount(v, a)
		case AssertTraceOrder:
			err = assertTraceOrder(v, a)
		case AssertDeliveries:
			err = assertDeliveries(v, a)
		case AssertBindResult:
			err = assertBindResult(v, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

package ioa

import (
	"errors"
	"fmt"
	"strconv"
)

// Aid names an automaton. It is issued when the automaton is created and
// retired when it is destroyed.
type Aid int

// NoAid is the Aid of nobody; it is the parent of root automata.
const NoAid Aid = -1

func (a Aid) String() string {
	return strconv.Itoa(int(a))
}

// Key is a caller-chosen token scoping one create or bind request, so that
// duplicates can be detected and the relationship undone later.
type Key string

// Value is what a valued output produces and a valued input receives.
type Value = any

// Kind classifies an action.
type Kind int

const (
	KindOutput Kind = iota + 1
	KindInput
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindOutput:
		return "output"
	case KindInput:
		return "input"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParamMode says whether an action takes a parameter and who supplies it.
type ParamMode int

const (
	// Unparameterized actions ignore the parameter.
	Unparameterized ParamMode = iota
	// Parameterized actions are named together with a caller-supplied
	// parameter; each parameter value is a distinct action.
	Parameterized
	// AutoParameterized actions receive the peer automaton's Aid as the
	// parameter. The model fills it in when the binding is made.
	AutoParameterized
)

func (m ParamMode) String() string {
	switch m {
	case Unparameterized:
		return "unparameterized"
	case Parameterized:
		return "parameterized"
	case AutoParameterized:
		return "auto-parameterized"
	default:
		return fmt.Sprintf("parammode(%d)", int(m))
	}
}

// Action describes one action of an automaton: its precondition, effect and
// schedule, plus the tags the model needs to compose it.
type Action struct {
	Name   string
	Kind   Kind
	Params ParamMode
	Valued bool

	// Precondition reports whether an output or internal action is enabled.
	// It must not change state.
	Precondition func(p int64) bool

	// Effect performs an output or internal transition. The returned value
	// is delivered to bound inputs when the action is a valued output and
	// is ignored otherwise.
	Effect func(p int64) Value

	// Deliver performs an input transition. v is nil for unvalued inputs.
	Deliver func(p int64, v Value)

	// Schedule overrides the automaton's Schedule for this action.
	Schedule func()
}

// IsLocal reports whether the action is locally controlled, i.e. may be
// scheduled by its own automaton.
func (a *Action) IsLocal() bool {
	return a.Kind == KindOutput || a.Kind == KindInternal
}

// TakesParam reports whether references to the action carry a parameter.
func (a *Action) TakesParam() bool {
	return a.Params != Unparameterized
}

// OutputAction builds an unvalued, unparameterized output.
func OutputAction(name string, pre func() bool, eff func()) Action {
	return Action{
		Name:         name,
		Kind:         KindOutput,
		Precondition: func(int64) bool { return pre() },
		Effect:       func(int64) Value { eff(); return nil },
	}
}

// ValuedOutputAction builds a valued, unparameterized output.
func ValuedOutputAction(name string, pre func() bool, eff func() Value) Action {
	return Action{
		Name:         name,
		Kind:         KindOutput,
		Valued:       true,
		Precondition: func(int64) bool { return pre() },
		Effect:       func(int64) Value { return eff() },
	}
}

// InputAction builds an unvalued, unparameterized input.
func InputAction(name string, eff func()) Action {
	return Action{
		Name:    name,
		Kind:    KindInput,
		Deliver: func(int64, Value) { eff() },
	}
}

// ValuedInputAction builds a valued, unparameterized input.
func ValuedInputAction(name string, eff func(Value)) Action {
	return Action{
		Name:    name,
		Kind:    KindInput,
		Valued:  true,
		Deliver: func(_ int64, v Value) { eff(v) },
	}
}

// InternalAction builds an unparameterized internal action.
func InternalAction(name string, pre func() bool, eff func()) Action {
	return Action{
		Name:         name,
		Kind:         KindInternal,
		Precondition: func(int64) bool { return pre() },
		Effect:       func(int64) Value { eff(); return nil },
	}
}

// ErrInvalidAction is wrapped by every error Validate returns.
var ErrInvalidAction = errors.New("invalid action")

// Validate checks an action table for duplicate names and missing or
// misplaced functions.
func Validate(actions []Action) error {
	seen := make(map[string]bool, len(actions))
	for i := range actions {
		a := &actions[i]
		if a.Name == "" {
			return fmt.Errorf("%w: action %d has no name", ErrInvalidAction, i)
		}
		if seen[a.Name] {
			return fmt.Errorf("%w: duplicate action %q", ErrInvalidAction, a.Name)
		}
		seen[a.Name] = true

		switch a.Kind {
		case KindOutput, KindInternal:
			if a.Precondition == nil || a.Effect == nil {
				return fmt.Errorf("%w: %s %q needs a precondition and an effect", ErrInvalidAction, a.Kind, a.Name)
			}
		case KindInput:
			if a.Deliver == nil {
				return fmt.Errorf("%w: input %q needs a Deliver function", ErrInvalidAction, a.Name)
			}
		default:
			return fmt.Errorf("%w: %q has unknown kind %d", ErrInvalidAction, a.Name, int(a.Kind))
		}

		if a.Kind == KindInternal && a.Valued {
			return fmt.Errorf("%w: internal %q cannot be valued", ErrInvalidAction, a.Name)
		}
		if a.Kind == KindInternal && a.Params == AutoParameterized {
			return fmt.Errorf("%w: internal %q cannot be auto-parameterized", ErrInvalidAction, a.Name)
		}
	}
	return nil
}

// ActionRef names one schedulable action: whose it is, which one, and for
// parameterized actions, which parameter.
type ActionRef struct {
	Aid           Aid
	Name          string
	Param         int64
	Parameterized bool
}

// Ref names an unparameterized action of automaton aid.
func Ref(aid Aid, name string) ActionRef {
	return ActionRef{Aid: aid, Name: name}
}

// RefParam names a parameterized action of automaton aid.
func RefParam(aid Aid, name string, p int64) ActionRef {
	return ActionRef{Aid: aid, Name: name, Param: p, Parameterized: true}
}

// WithParam returns r carrying parameter p.
func (r ActionRef) WithParam(p int64) ActionRef {
	r.Param = p
	r.Parameterized = true
	return r
}

func (r ActionRef) String() string {
	if r.Parameterized {
		return fmt.Sprintf("%d.%s[%d]", r.Aid, r.Name, r.Param)
	}
	return fmt.Sprintf("%d.%s", r.Aid, r.Name)
}

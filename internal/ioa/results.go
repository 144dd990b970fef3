package ioa

import "fmt"

// CreateCode is the outcome of a create request.
type CreateCode int

const (
	AutomatonCreated CreateCode = iota + 1
	InstanceExists
	CreateKeyExists
)

func (c CreateCode) String() string {
	switch c {
	case AutomatonCreated:
		return "AUTOMATON_CREATED"
	case InstanceExists:
		return "INSTANCE_EXISTS"
	case CreateKeyExists:
		return "CREATE_KEY_EXISTS"
	default:
		return fmt.Sprintf("CreateCode(%d)", int(c))
	}
}

// CreateResult reports a create request. Aid is valid only when Code is
// AutomatonCreated.
type CreateResult struct {
	Code CreateCode
	Key  Key
	Aid  Aid
}

// BindCode is the outcome of a bind request. The failure codes are listed in
// the order the model checks them.
type BindCode int

const (
	Bound BindCode = iota + 1
	BindKeyExists
	OutputAutomatonDNE
	InputAutomatonDNE
	ActionIncompatible
	BindingExists
	InputActionUnavailable
	OutputActionUnavailable
)

func (c BindCode) String() string {
	switch c {
	case Bound:
		return "BOUND"
	case BindKeyExists:
		return "BIND_KEY_EXISTS"
	case OutputAutomatonDNE:
		return "OUTPUT_AUTOMATON_DNE"
	case InputAutomatonDNE:
		return "INPUT_AUTOMATON_DNE"
	case ActionIncompatible:
		return "ACTION_INCOMPATIBLE"
	case BindingExists:
		return "BINDING_EXISTS"
	case InputActionUnavailable:
		return "INPUT_ACTION_UNAVAILABLE"
	case OutputActionUnavailable:
		return "OUTPUT_ACTION_UNAVAILABLE"
	default:
		return fmt.Sprintf("BindCode(%d)", int(c))
	}
}

// BindResult reports a bind request. Output and Input are the refs as
// attached, with auto-parameters filled in.
type BindResult struct {
	Code   BindCode
	Key    Key
	Output ActionRef
	Input  ActionRef
}

// UnbindCode is the outcome of an unbind request.
type UnbindCode int

const (
	Unbound UnbindCode = iota + 1
	BindKeyDNE
)

func (c UnbindCode) String() string {
	switch c {
	case Unbound:
		return "UNBOUND"
	case BindKeyDNE:
		return "BIND_KEY_DNE"
	default:
		return fmt.Sprintf("UnbindCode(%d)", int(c))
	}
}

// UnbindResult reports an unbind request.
type UnbindResult struct {
	Code UnbindCode
	Key  Key
}

// DestroyCode is the outcome of a destroy request.
type DestroyCode int

const (
	AutomatonDestroyed DestroyCode = iota + 1
	CreateKeyDNE
	DestroyerNotCreator
	TargetAutomatonDNE
)

func (c DestroyCode) String() string {
	switch c {
	case AutomatonDestroyed:
		return "AUTOMATON_DESTROYED"
	case CreateKeyDNE:
		return "CREATE_KEY_DNE"
	case DestroyerNotCreator:
		return "DESTROYER_NOT_CREATOR"
	case TargetAutomatonDNE:
		return "TARGET_AUTOMATON_DNE"
	default:
		return fmt.Sprintf("DestroyCode(%d)", int(c))
	}
}

// DestroyResult reports a destroy request. Aid is the destroyed subtree's
// root when Code is AutomatonDestroyed.
type DestroyResult struct {
	Code DestroyCode
	Key  Key
	Aid  Aid
}

package trace

import (
	"context"
	"fmt"

	"github.com/roach88/ioa/internal/ioa"
)

// Op is the kind of event an Entry records.
type Op string

const (
	OpRunStart Op = "run_start"
	OpRunStop  Op = "run_stop"
	OpCreate   Op = "create"
	OpBind     Op = "bind"
	OpUnbind   Op = "unbind"
	OpDestroy  Op = "destroy"
	OpExecute  Op = "execute"
)

// Execute results.
const (
	ResultFired   = "fired"
	ResultSkipped = "skipped"
)

// Endpoint names one action of one automaton.
type Endpoint struct {
	Aid    int    `json:"aid"`
	Action string `json:"action"`
}

// Entry is one journal record.
//
// Aid is the automaton that asked for the operation, or that owns the
// executed action; it is -1 for run_start, run_stop and root creation.
// Target is the automaton created or destroyed, -1 when there is none.
type Entry struct {
	RunID     string     `json:"run_id"`
	Seq       int64      `json:"seq"`
	Op        Op         `json:"op"`
	Aid       int        `json:"aid"`
	Target    int        `json:"target"`
	Action    string     `json:"action,omitempty"`
	Param     *int64     `json:"param,omitempty"`
	Key       string     `json:"key,omitempty"`
	Output    string     `json:"output,omitempty"`
	Input     string     `json:"input,omitempty"`
	Result    string     `json:"result,omitempty"`
	Delivered []Endpoint `json:"delivered,omitempty"`
	Detail    string     `json:"detail,omitempty"`
}

// Journal receives entries in sequence order.
type Journal interface {
	Append(ctx context.Context, e Entry) error
}

// Run summarizes one journaled run.
type Run struct {
	ID      string `json:"id"`
	Detail  string `json:"detail,omitempty"`
	Entries int    `json:"entries"`
}

// Reader reads journaled runs back.
type Reader interface {
	Runs(ctx context.Context) ([]Run, error)
	Entries(ctx context.Context, runID string) ([]Entry, error)
}

// RunStart records the start of a run. detail describes the scheduler.
func RunStart(detail string) Entry {
	return Entry{Op: OpRunStart, Aid: -1, Target: -1, Detail: detail}
}

// RunStop records the end of a run. A nil err is recorded as "ok".
func RunStop(destroyed int, err error) Entry {
	e := Entry{Op: OpRunStop, Aid: -1, Target: -1, Result: "ok", Detail: fmt.Sprintf("destroyed=%d", destroyed)}
	if err != nil {
		e.Result = "error"
		e.Detail = err.Error()
	}
	return e
}

// Create records a create result. requester is ioa.NoAid for the root.
func Create(requester ioa.Aid, res ioa.CreateResult) Entry {
	return Entry{
		Op:     OpCreate,
		Aid:    int(requester),
		Target: int(res.Aid),
		Key:    string(res.Key),
		Result: res.Code.String(),
	}
}

// Bind records a bind result.
func Bind(binder ioa.Aid, res ioa.BindResult) Entry {
	return Entry{
		Op:     OpBind,
		Aid:    int(binder),
		Target: -1,
		Key:    string(res.Key),
		Output: res.Output.String(),
		Input:  res.Input.String(),
		Result: res.Code.String(),
	}
}

// Unbind records an unbind result.
func Unbind(binder ioa.Aid, res ioa.UnbindResult) Entry {
	return Entry{
		Op:     OpUnbind,
		Aid:    int(binder),
		Target: -1,
		Key:    string(res.Key),
		Result: res.Code.String(),
	}
}

// Destroy records a destroy result.
func Destroy(destroyer ioa.Aid, res ioa.DestroyResult) Entry {
	return Entry{
		Op:     OpDestroy,
		Aid:    int(destroyer),
		Target: int(res.Aid),
		Key:    string(res.Key),
		Result: res.Code.String(),
	}
}

// Execute records one executed action and the inputs it reached.
func Execute(ref ioa.ActionRef, fired bool, delivered []ioa.ActionRef) Entry {
	e := Entry{
		Op:     OpExecute,
		Aid:    int(ref.Aid),
		Target: -1,
		Action: ref.Name,
		Result: ResultSkipped,
	}
	if ref.Parameterized {
		p := ref.Param
		e.Param = &p
	}
	if fired {
		e.Result = ResultFired
	}
	for _, in := range delivered {
		e.Delivered = append(e.Delivered, Endpoint{Aid: int(in.Aid), Action: in.Name})
	}
	return e
}

// Names maps each automaton created during a run to its create key. The
// root has the empty key.
func Names(entries []Entry) map[int]string {
	names := make(map[int]string)
	for _, e := range entries {
		if e.Op == OpCreate && e.Result == ioa.AutomatonCreated.String() {
			names[e.Target] = e.Key
		}
	}
	return names
}

package harness

import "github.com/roach88/ioa/internal/trace"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// RunID identifies the run in Trace.
	RunID string `json:"run_id"`

	// Trace is the run's journal in seq order.
	Trace []trace.Entry `json:"trace"`

	// Stats summarizes Trace.
	Stats trace.Stats `json:"stats"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []trace.Entry{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

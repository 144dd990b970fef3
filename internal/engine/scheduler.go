package engine

import (
	"context"
	"fmt"

	"github.com/roach88/ioa/internal/ioa"
	"github.com/roach88/ioa/internal/model"
)

// Scheduler kinds accepted by New.
const (
	KindCooperative = "cooperative"
	KindPool        = "pool"
)

// Scheduler drives a network of automata to its fixed point.
type Scheduler interface {
	ioa.System

	// Run creates the root automaton from gen and returns once no work
	// remains, ctx is done, or waiting for timers and descriptors fails.
	// The network is torn down before Run returns.
	Run(ctx context.Context, gen ioa.Generator) error

	// RunID returns the id of the current or most recent run.
	RunID() string

	// Model exposes the registry, for inspection.
	Model() *model.Model
}

// New builds the scheduler named by kind.
func New(kind string, opts ...Option) (Scheduler, error) {
	switch kind {
	case KindCooperative, "":
		return NewCooperative(opts...), nil
	case KindPool:
		return NewPool(opts...), nil
	default:
		return nil, fmt.Errorf("unknown scheduler %q (want %q or %q)", kind, KindCooperative, KindPool)
	}
}

var (
	_ Scheduler = (*Cooperative)(nil)
	_ Scheduler = (*Pool)(nil)
)

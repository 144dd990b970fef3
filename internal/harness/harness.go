package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/ioa/internal/engine"
	"github.com/roach88/ioa/internal/network"
	"github.com/roach88/ioa/internal/testutil"
	"github.com/roach88/ioa/internal/trace"
)

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger  *slog.Logger
	journal trace.Journal
}

// WithLogger sets the scheduler's logger. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// WithJournal also writes the run's journal to j, in addition to the
// in-memory copy returned in Result.Trace.
func WithJournal(j trace.Journal) Option {
	return func(c *runConfig) { c.journal = j }
}

// Run executes a scenario and checks its assertions.
//
// The returned error covers failures to run at all: an unreadable topology,
// a canceled or timed-out run. Failed assertions only mark the Result.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	topo, err := network.Load(s.Topology)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	root, err := topo.Composer()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	rec := trace.NewRecorder()
	var journal trace.Journal = rec
	if cfg.journal != nil {
		journal = trace.Tee(rec, cfg.journal)
	}

	schedOpts := []engine.Option{
		engine.WithLogger(cfg.logger),
		engine.WithJournal(journal),
		engine.WithRunIDs(testutil.ConstantRunID(s.RunID)),
	}
	if s.Workers > 0 {
		schedOpts = append(schedOpts, engine.WithWorkers(s.Workers))
	}
	sched, err := engine.New(s.Scheduler, schedOpts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	if err := sched.Run(ctx, root); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result := NewResult()
	result.RunID = sched.RunID()
	result.Trace = rec.All()
	result.Stats = trace.Summarize(result.Trace)
	for _, msg := range EvaluateAssertions(result.Trace, s.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// RunFile loads the scenario at path and runs it.
func RunFile(ctx context.Context, path string, opts ...Option) (*Scenario, *Result, error) {
	s, err := LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	res, err := Run(ctx, s, opts...)
	return s, res, err
}

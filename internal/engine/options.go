package engine

import (
	"log/slog"
	"runtime"

	"github.com/roach88/ioa/internal/trace"
)

type options struct {
	logger  *slog.Logger
	journal trace.Journal
	runIDs  trace.RunIDGenerator
	clock   *trace.Clock
	workers int
}

// Option configures a scheduler.
type Option func(*options)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithJournal records every structural result and executed action of each
// run to j. Default: no journal.
func WithJournal(j trace.Journal) Option {
	return func(o *options) { o.journal = j }
}

// WithRunIDs sets the run id generator. Default: trace.UUIDv7Generator.
func WithRunIDs(g trace.RunIDGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.runIDs = g
		}
	}
}

// WithClock sets the clock that stamps journal entries. It is reset at the
// start of every run.
func WithClock(c *trace.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithWorkers sets the worker count of a Pool. Values below 1 are ignored.
// Default: runtime.NumCPU(). The cooperative scheduler ignores it.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:  slog.Default(),
		runIDs:  trace.UUIDv7Generator{},
		clock:   trace.NewClock(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ioa/internal/config"
	"github.com/roach88/ioa/internal/store"
	"github.com/roach88/ioa/internal/store/boltstore"
	"github.com/roach88/ioa/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Backend  string
	RunID    string // "" lists runs; "latest" picks the newest
	Op       string // optional - filter to one operation
}

// RunList is the answer when no run is selected.
type RunList struct {
	Runs []trace.Run `json:"runs"`
}

func (l RunList) String() string {
	if len(l.Runs) == 0 {
		return "No runs journaled."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d run(s):", len(l.Runs))
	for _, r := range l.Runs {
		fmt.Fprintf(&b, "\n  %s  %-20s %d entries", r.ID, r.Detail, r.Entries)
	}
	return b.String()
}

// TraceResult is the journal of one run.
type TraceResult struct {
	RunID   string        `json:"run_id"`
	Entries []trace.Entry `json:"entries"`
	Stats   trace.Stats   `json:"stats"`

	verbose bool
}

func (r TraceResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", r.RunID)
	trace.WriteText(&b, r.Entries, r.verbose)
	s := r.Stats
	fmt.Fprintf(&b, "created=%d destroyed=%d bound=%d unbound=%d executed=%d fired=%d deliveries=%d",
		s.Created, s.Destroyed, s.Bound, s.Unbound, s.Executed, s.Fired, s.Deliveries)
	return b.String()
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Read journaled runs",
		Long: `Read run journals written by "ioa run --db".

Without --run, lists the journaled runs in the order they started.
With --run, prints that run's entries; --run latest picks the newest.
Actions whose precondition was false are only shown with --verbose.

Examples:
  ioa trace --db ./runs.db
  ioa trace --db ./runs.db --run latest
  ioa trace --db ./runs.bolt --backend bolt --run 0192f... --op bind
  ioa trace --db ./runs.db --run latest --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path of the journal file (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Backend, "backend", config.BackendSQLite, "journal backend (sqlite|bolt)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", `run id to print, or "latest"`)
	cmd.Flags().StringVar(&opts.Op, "op", "", "only show entries of this operation")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := openJournal(opts.Backend, opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.Runs(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return formatter.Success(RunList{Runs: runs})
	}

	runID := opts.RunID
	if runID == "latest" {
		runID, err = st.LatestRun(ctx)
		if err != nil {
			return runLookupError(formatter, err)
		}
	}

	entries, err := st.Entries(ctx, runID)
	if err != nil {
		return runLookupError(formatter, err)
	}
	stats := trace.Summarize(entries)
	if opts.Op != "" {
		entries = filterOp(entries, trace.Op(opts.Op))
	}

	formatter.VerboseLog("read %d entries of run %s", len(entries), runID)
	return formatter.Success(TraceResult{RunID: runID, Entries: entries, Stats: stats, verbose: opts.Verbose})
}

func runLookupError(f *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrRunNotFound) || errors.Is(err, boltstore.ErrRunNotFound) {
		_ = f.Error("E_RUN_NOT_FOUND", err.Error(), nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	return WrapExitError(ExitCommandError, "failed to read journal", err)
}

func filterOp(entries []trace.Entry, op trace.Op) []trace.Entry {
	out := make([]trace.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

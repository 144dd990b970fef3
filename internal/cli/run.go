package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ioa/internal/config"
	"github.com/roach88/ioa/internal/engine"
	"github.com/roach88/ioa/internal/network"
	"github.com/roach88/ioa/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config    string
	Scheduler string
	Workers   int
	Database  string
	Journal   string
	Timeout   time.Duration

	// RunIDs overrides run id generation (for testing).
	// If nil, the engine's UUIDv7 generator is used.
	RunIDs trace.RunIDGenerator
}

// RunSummary is what the run command reports.
type RunSummary struct {
	RunID     string      `json:"run_id"`
	Topology  string      `json:"topology"`
	Scheduler string      `json:"scheduler"`
	Journal   string      `json:"journal,omitempty"`
	Stats     trace.Stats `json:"stats"`
}

func (s RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %s on %s\n", s.RunID, s.Topology, s.Scheduler)
	fmt.Fprintf(&b, "  created=%d bound=%d executed=%d fired=%d deliveries=%d",
		s.Stats.Created, s.Stats.Bound, s.Stats.Executed, s.Stats.Fired, s.Stats.Deliveries)
	if s.Journal != "" {
		fmt.Fprintf(&b, "\n  journal: %s", s.Journal)
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <topology>",
		Short: "Run a topology to its fixed point",
		Long: `Build the network a topology file describes and run it until no
action is left to execute.

Settings come from defaults, then --config, then flags. Giving --db
without --journal journals to SQLite.

Examples:
  ioa run ./pipeline.yaml
  ioa run ./pipeline.cue --scheduler pool --workers 4
  ioa run ./pipeline.hcl --db ./runs.db
  ioa run ./pipeline.yaml --journal bolt --db ./runs.bolt --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopology(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to a TOML config file")
	cmd.Flags().StringVar(&opts.Scheduler, "scheduler", config.KindCooperative, "scheduler (cooperative|pool)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "worker count for the pool scheduler")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path of the journal file")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal backend (sqlite|bolt|none)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "stop the run after this long (0 = no limit)")

	return cmd
}

// resolveConfig layers the config file and changed flags over defaults.
func resolveConfig(opts *RunOptions, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("scheduler") {
		cfg.Scheduler.Kind = opts.Scheduler
	}
	if flags.Changed("workers") {
		cfg.Scheduler.Workers = opts.Workers
	}
	if flags.Changed("db") {
		cfg.Journal.Path = opts.Database
		if cfg.Journal.Backend == config.BackendNone {
			cfg.Journal.Backend = config.BackendSQLite
		}
	}
	if flags.Changed("journal") {
		cfg.Journal.Backend = opts.Journal
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runTopology(opts *RunOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	logger := cfg.Log.NewLogger(cmd.ErrOrStderr())

	topo, err := network.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load topology", err)
	}
	root, err := topo.Composer()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build topology", err)
	}

	rec := trace.NewRecorder()
	var journal trace.Journal = rec
	summary := RunSummary{Topology: topo.Name, Scheduler: cfg.Scheduler.Kind}
	if summary.Topology == "" {
		summary.Topology = path
	}

	if cfg.Journal.Backend != config.BackendNone {
		st, err := openJournal(cfg.Journal.Backend, cfg.Journal.Path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		journal = trace.Tee(rec, st)
		summary.Journal = cfg.Journal.Backend + ":" + cfg.Journal.Path
	}

	schedOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithJournal(journal),
		engine.WithWorkers(cfg.Scheduler.Workers),
	}
	if opts.RunIDs != nil {
		schedOpts = append(schedOpts, engine.WithRunIDs(opts.RunIDs))
	}
	sched, err := engine.New(cfg.Scheduler.Kind, schedOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create scheduler", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	logger.Debug("running topology", slog.String("path", path), slog.String("scheduler", cfg.Scheduler.Kind))
	runErr := sched.Run(ctx, root)

	summary.RunID = sched.RunID()
	summary.Stats = trace.Summarize(rec.All())

	if runErr != nil {
		if engine.IsCanceled(runErr) {
			return WrapExitError(ExitFailure, "run stopped before its fixed point", runErr)
		}
		return WrapExitError(ExitFailure, "run failed", runErr)
	}

	if opts.Verbose && !out.JSON() {
		fmt.Fprintln(out.GetErrWriter(), "Trace:")
		trace.WriteText(out.GetErrWriter(), rec.All(), true)
	}
	return out.Success(summary)
}

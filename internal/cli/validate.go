package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ioa/internal/network"
)

// TopologyReport is the validate answer for one file.
type TopologyReport struct {
	Path     string   `json:"path"`
	Valid    bool     `json:"valid"`
	Name     string   `json:"name,omitempty"`
	Automata int      `json:"automata"`
	Bindings int      `json:"bindings"`
	Summary  string   `json:"summary,omitempty"`
	Code     string   `json:"code,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// ValidationResult holds the reports of every checked file.
type ValidationResult struct {
	Valid   bool             `json:"valid"`
	Reports []TopologyReport `json:"reports"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	for i, rep := range r.Reports {
		if i > 0 {
			b.WriteByte('\n')
		}
		if rep.Valid {
			fmt.Fprintf(&b, "✓ %s\n%s", rep.Path, rep.Summary)
			continue
		}
		fmt.Fprintf(&b, "✗ %s [%s]\n", rep.Path, rep.Code)
		for _, e := range rep.Errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <topology>...",
		Short: "Check topology files without running them",
		Long: `Load and validate topology files and print each one in normalized form:
automata sorted by name, bindings sorted by endpoint.

Exit codes:
  0 - All files are valid
  1 - A file parsed but is invalid
  2 - A file could not be read or has an unknown extension`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{Valid: true}
	exit := ExitSuccess
	for _, path := range paths {
		rep, code := validateFile(path)
		formatter.VerboseLog("validated %s: valid=%t", path, rep.Valid)
		result.Reports = append(result.Reports, rep)
		if !rep.Valid {
			result.Valid = false
		}
		if code > exit {
			exit = code
		}
	}

	if exit == ExitSuccess {
		return formatter.Success(result)
	}
	if formatter.JSON() {
		if err := formatter.Failure("E_INVALID_TOPOLOGY", "topology validation failed", result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, result)
	}
	return NewExitError(exit, "topology validation failed")
}

func validateFile(path string) (TopologyReport, int) {
	rep := TopologyReport{Path: path}

	topo, err := network.Load(path)
	if err != nil {
		var le *network.LoadError
		if !errors.As(err, &le) {
			rep.Code = "E_LOAD"
			rep.Errors = []string{err.Error()}
			return rep, ExitCommandError
		}
		rep.Code = le.Code
		rep.Errors = splitErrors(le)
		switch le.Code {
		case network.ErrCodeNotFound, network.ErrCodeUnknownFormat:
			return rep, ExitCommandError
		}
		return rep, ExitFailure
	}

	rep.Valid = true
	rep.Name = topo.Name
	rep.Automata = len(topo.Automata)
	rep.Bindings = len(topo.Bindings)
	rep.Summary = topo.Describe()
	return rep, ExitSuccess
}

// splitErrors lists each joined validation problem on its own line.
func splitErrors(le *network.LoadError) []string {
	if joined, ok := le.Err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{le.Message}
}

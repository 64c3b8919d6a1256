package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/manp/internal/ir"
	"github.com/roach88/manp/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	List     bool   // list runs instead of showing one
}

// ShowFunction is a stored function summary with its annotations.
type ShowFunction struct {
	ir.FunctionRecord
	Annotations []ir.AnnotationRecord `json:"annotations"`

	// SeenIn lists other runs that analyzed an identical graph.
	SeenIn []string `json:"seen_in,omitempty"`
}

// ShowResult holds the output of the show command.
type ShowResult struct {
	Run       *ir.RunRecord  `json:"run,omitempty"`
	Functions []ShowFunction `json:"functions,omitempty"`
	Runs      []ir.RunRecord `json:"runs,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show recorded analysis runs",
		Long: `Show an analysis run recorded with "manp analyze --db".

Without --run the latest run is shown. Functions whose graph was
already analyzed in another run are marked with the IDs of those runs.

Examples:
  manp show --db ./manp.db
  manp show --db ./manp.db --list
  manp show --db ./manp.db --run 0192f1c4-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (default: latest)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list all runs")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		runs, err := st.ReadRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read runs", err)
		}
		return outputRunList(formatter, runs)
	}

	var run ir.RunRecord
	if opts.RunID != "" {
		run, err = st.ReadRun(ctx, opts.RunID)
	} else {
		run, err = st.LatestRun(ctx)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		if opts.RunID != "" {
			return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		if formatter.Format == "json" {
			return formatter.Success(ShowResult{})
		}
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result, err := buildShowResult(ctx, st, run)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputShowText(formatter, result)
}

func buildShowResult(ctx context.Context, st *store.Store, run ir.RunRecord) (ShowResult, error) {
	fns, err := st.ReadFunctions(ctx, run.ID)
	if err != nil {
		return ShowResult{}, err
	}

	result := ShowResult{Run: &run, Functions: make([]ShowFunction, 0, len(fns))}
	for _, fn := range fns {
		anns, err := st.ReadAnnotations(ctx, fn.ID)
		if err != nil {
			return ShowResult{}, err
		}

		same, err := st.FindByGraphHash(ctx, fn.GraphHash)
		if err != nil {
			return ShowResult{}, err
		}
		var seenIn []string
		for _, other := range same {
			if other.RunID != run.ID {
				seenIn = append(seenIn, other.RunID)
			}
		}

		result.Functions = append(result.Functions, ShowFunction{
			FunctionRecord: fn,
			Annotations:    anns,
			SeenIn:         seenIn,
		})
	}
	return result, nil
}

func outputShowText(formatter *OutputFormatter, result ShowResult) error {
	w := formatter.Writer
	run := result.Run

	fmt.Fprintf(w, "Run %s (seq %d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "  source: %s\n", run.Source)
	fmt.Fprintf(w, "  analysis version: %s\n\n", run.AnalysisVersion)

	for _, fn := range result.Functions {
		fmt.Fprintf(w, "%s: max MANP %s\n", fn.Name, fn.MaxMANP)
		for _, a := range fn.Annotations {
			fmt.Fprintf(w, "  %-12s %-24s sq_norm=%s MANP=%s\n", a.Value, a.Op, a.SqNorm, a.MANP)
		}
		if len(fn.SeenIn) > 0 {
			fmt.Fprintf(w, "  same graph in %d other run(s)\n", len(fn.SeenIn))
			formatter.VerboseLog("%s also analyzed in: %v", fn.Name, fn.SeenIn)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func outputRunList(formatter *OutputFormatter, runs []ir.RunRecord) error {
	if formatter.Format == "json" {
		return formatter.Success(ShowResult{Runs: runs})
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%4d  %s  %s\n", r.Seq, r.ID, r.Source)
	}
	return nil
}

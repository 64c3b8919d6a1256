package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/manp/internal/compiler"
	"github.com/roach88/manp/internal/ir"
	"github.com/roach88/manp/internal/manp"
	"github.com/roach88/manp/internal/store"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	Output   string // output file path
	Trace    bool   // print remark lines
	Database string // record the run in this SQLite database
	Function string // analyze only this function
	MaxBits  uint   // squared norm width limit

	// IDs generates run IDs when recording. Nil means UUIDv7.
	IDs store.IDGenerator
}

// AnalysisResult is the output of the analyze command.
type AnalysisResult struct {
	RunID     string              `json:"run_id,omitempty"`
	Functions []*manp.Annotations `json:"functions"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <program-dir>",
		Short: "Compute the MANP of every encrypted value",
		Long: `Compile the CUE programs of a directory and compute, for every
result of an fhe operation, the squared noise bound and its MANP.

Exit codes:
  0 - Every function analyzed
  1 - Validation or analysis failure (unsupported operator, malformed graph)
  2 - Command error (missing directory, compile error, database error)

Examples:
  manp analyze ./programs
  manp analyze ./programs --trace
  manp analyze ./programs --function main --format json
  manp analyze ./programs --db ./manp.db -o annotations.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write annotations as JSON to this file")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print a remark per analyzed operation")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.Function, "function", "", "analyze only this function")
	cmd.Flags().UintVar(&opts.MaxBits, "max-bits", 0, "fail when a squared norm needs more bits (0 = no limit)")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadPrograms(dir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return outputLoadError(formatter, loadErrors[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	mod := loadResult.Module
	if verrs := compiler.Validate(mod); len(verrs) > 0 {
		return outputValidationErrors(formatter, verrs)
	}

	if opts.Function != "" {
		fn := mod.Function(opts.Function)
		if fn == nil {
			return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("function %q not found", opts.Function))
		}
		mod = &ir.Module{Functions: []ir.Function{*fn}}
	}

	for _, fn := range mod.Functions {
		formatter.VerboseLog("Analyzing function: %s (%d operations)", fn.Name, len(fn.Body))
	}

	results, err := manp.AnalyzeModule(mod, manp.Config{
		EmitTrace: opts.Trace,
		MaxBits:   opts.MaxBits,
		Logger:    formatter.Logger(),
	})
	if err != nil {
		return outputDiagnostic(formatter, err)
	}

	out := AnalysisResult{Functions: results}

	if opts.Database != "" {
		runID, err := recordRun(cmd.Context(), opts, dir, mod, results)
		if err != nil {
			return outputCommandError(formatter, ErrCodeDatabase, err.Error())
		}
		out.RunID = runID
		formatter.VerboseLog("Recorded run %s in %s", runID, opts.Database)
	}

	if opts.Output != "" {
		if err := writeAnnotationsToFile(out, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputAnalyzeSuccess(formatter, opts, out)
}

// recordRun persists the annotations of every analyzed function.
func recordRun(ctx context.Context, opts *AnalyzeOptions, source string, mod *ir.Module, results []*manp.Annotations) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return "", fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	ids := opts.IDs
	if ids == nil {
		ids = store.UUIDv7Generator{}
	}
	rec, err := store.NewRecorder(ctx, st, ids)
	if err != nil {
		return "", err
	}

	moduleHash, err := ir.ModuleHash(mod)
	if err != nil {
		return "", err
	}

	fns := make([]store.FunctionResult, len(results))
	for i, ann := range results {
		graphHash, err := ir.FunctionHash(&mod.Functions[i])
		if err != nil {
			return "", err
		}
		fns[i] = store.FunctionResult{
			Name:        ann.Function(),
			GraphHash:   graphHash,
			MaxMANP:     ann.Max().String(),
			Annotations: ann.Records(),
		}
	}

	run, err := rec.Record(ctx, source, moduleHash, fns)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// outputAnalyzeSuccess prints the annotation maps.
func outputAnalyzeSuccess(formatter *OutputFormatter, opts *AnalyzeOptions, result AnalysisResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, ann := range result.Functions {
		fmt.Fprintf(w, "%s: max MANP %s\n", ann.Function(), ann.Max())
		for _, e := range ann.Entries() {
			fmt.Fprintf(w, "  %-12s %-24s sq_norm=%s MANP=%s\n", e.Value, e.Op, e.SqNorm, e.MANP)
		}
		if opts.Trace {
			if err := ann.WriteTrace(w); err != nil {
				return err
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "✓ Analyzed %d function(s)\n", len(result.Functions))
	if result.RunID != "" {
		fmt.Fprintf(w, "Recorded run %s\n", result.RunID)
	}
	if opts.Output != "" {
		fmt.Fprintf(w, "Wrote annotations to %s\n", opts.Output)
	}
	return nil
}

// outputDiagnostic reports an aborted analysis (exit code 1).
func outputDiagnostic(formatter *OutputFormatter, err error) error {
	var d *manp.Diagnostic
	if !errors.As(err, &d) {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	details := map[string]string{"function": d.Function}
	if d.Value != "" {
		details["value"] = string(d.Value)
	}
	if d.Op != "" {
		details["op"] = d.Op
	}
	if d.Loc.IsKnown() {
		details["loc"] = d.Loc.String()
	}

	if formatter.Format == "json" {
		_ = formatter.Error(string(d.Code), d.Message, details)
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Analysis failed")
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintf(formatter.Writer, "  %s\n", d.Error())
	}
	return WrapExitError(ExitFailure, "analysis failed", err)
}

// outputLoadError outputs a single load error (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return outputCommandError(formatter, loadErr.Code, loadErr.Message)
	}
	return outputCommandError(formatter, ErrCodeGeneric, err.Error())
}

// outputCommandError outputs a command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCompileErrors outputs multiple compilation errors (exit code 2).
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeAnnotationsToFile writes the analysis result as indented JSON.
func writeAnnotationsToFile(result AnalysisResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling annotations: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/manp/internal/compiler"
	"github.com/roach88/manp/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Functions []string                   `json:"functions,omitempty"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program-dir>",
		Short: "Validate programs without analyzing them",
		Long: `Compile the CUE programs of a directory and check that every function
is a well-formed single-assignment graph: each value defined once and
before use, no cycles, constants that fit their types.

All errors are reported, not just the first one.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadPrograms(dir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return outputLoadError(formatter, loadErrors[0])
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)
	formatter.VerboseLog("Functions: %s", describeFunctions(loadResult.Module))

	// Compile errors are reported alongside graph errors
	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		code, message := parseCompileError(err)
		ve := compiler.ValidationError{
			Field:   "load",
			Message: message,
			Code:    code,
		}
		if le, ok := err.(*LoadError); ok && le.Pos.IsValid() {
			ve.Line = le.Pos.Line()
		}
		validationErrors = append(validationErrors, ve)
	}
	validationErrors = append(validationErrors, compiler.Validate(loadResult.Module)...)

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, loadResult.Module)
}

// describeFunctions lists function names for verbose output.
func describeFunctions(mod *ir.Module) string {
	names := make([]string, len(mod.Functions))
	for i, fn := range mod.Functions {
		names[i] = fn.Name
	}
	return strings.Join(names, ", ")
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, mod *ir.Module) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: true}
		for _, fn := range mod.Functions {
			result.Functions = append(result.Functions, fn.Name)
		}
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All programs valid (%d function(s))\n", len(mod.Functions))
	return nil
}

// outputValidationErrors outputs multiple validation errors (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lps/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                        `json:"valid"`
	Errors   []compiler.ValidationError  `json:"errors,omitempty"`
	Warnings []compiler.RecursionWarning `json:"warnings,omitempty"`
	Stats    *ProgramStats               `json:"stats,omitempty"`
}

// ProgramStats counts what a valid program contains.
type ProgramStats struct {
	Facts       int `json:"facts"`
	Clauses     int `json:"clauses"`
	Rules       int `json:"rules"`
	Constraints int `json:"constraints"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program>",
		Short: "Check a program without running it",
		Long: `Check a CUE program (a .cue file or a directory of them) without
running it.

Reports every declaration, setting, term and observation problem with its
code and line, and warns about recursive definitions.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loaded, err := LoadValue(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loaded.FileCount, path)

	res, errs := validateValue(loaded)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}
	return outputValidateSuccess(formatter, res)
}

// validateValue compiles a loaded program and turns every failure into
// validation errors.
func validateValue(loaded *LoadResult) (*compiler.Result, []compiler.ValidationError) {
	res, err := compiler.Compile(loaded.Value)
	if err == nil {
		return res, nil
	}

	var verrs compiler.ValidationErrors
	if errors.As(err, &verrs) {
		return nil, verrs
	}
	var cErr *compiler.CompileError
	if errors.As(err, &cErr) {
		line := 0
		if cErr.Pos.IsValid() {
			line = cErr.Pos.Line()
		}
		return nil, []compiler.ValidationError{{
			Field:   cErr.Field,
			Message: cErr.Message,
			Code:    MapFieldToErrorCode(cErr.Field),
			Line:    line,
		}}
	}
	return nil, []compiler.ValidationError{{Field: compiler.ProgramField, Message: err.Error(), Code: ErrCodeGeneric}}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, res *compiler.Result) error {
	p := res.Program
	stats := &ProgramStats{
		Facts:       p.Facts().Len(),
		Clauses:     len(p.Clauses()),
		Rules:       len(p.Rules()),
		Constraints: len(p.Constraints()),
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Warnings: res.Warnings, Stats: stats})
	}

	fmt.Fprintln(formatter.Writer, "✓ Program valid")
	formatter.VerboseLog("%d facts, %d clauses, %d rules, %d constraints",
		stats.Facts, stats.Clauses, stats.Rules, stats.Constraints)
	for _, w := range res.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning: %s\n", w.Message)
	}
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := writeIndentedJSON(formatter.Writer, response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return failure
}

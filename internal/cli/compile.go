package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/lps/internal/compiler"
	"github.com/roach88/lps/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the compiled form of a program, with every clause
// rendered in term syntax.
type CompilationResult struct {
	ProgramHash string                      `json:"program_hash"`
	Settings    compiler.Settings           `json:"settings"`
	Fluents     []string                    `json:"fluents"`
	Actions     []string                    `json:"actions"`
	Events      []string                    `json:"events"`
	Facts       []string                    `json:"facts"`
	Clauses     []string                    `json:"clauses"`
	Rules       []string                    `json:"rules"`
	Constraints []string                    `json:"constraints"`
	Warnings    []compiler.RecursionWarning `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <program>",
		Short: "Show the compiled form of a program",
		Long: `Compile a CUE program and print what the engine will load: the
declarations, facts, definitions, rules and constraints in term syntax,
together with the program hash recorded in the journal.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled program as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	res, err := LoadProgram(path)
	if err != nil {
		return outputCompileError(formatter, err)
	}

	result := buildCompilationResult(res)

	if opts.Output != "" {
		if err := writeCompiledToFile(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: writing output file", ErrCodeWriteFailed))
		}
		formatter.VerboseLog("Wrote compiled program to %s", opts.Output)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	outputCompileText(formatter, result)
	return nil
}

func buildCompilationResult(res *compiler.Result) *CompilationResult {
	p := res.Program
	decls := p.Declarations()
	clauses := p.Clauses()
	rules := p.Rules()
	constraints := p.Constraints()

	return &CompilationResult{
		ProgramHash: ir.ProgramHash(slices.Concat(clauses, rules, constraints)),
		Settings:    res.Settings,
		Fluents:     slices.Sorted(maps.Keys(decls.Fluents)),
		Actions:     slices.Sorted(maps.Keys(decls.Actions)),
		Events:      slices.Sorted(maps.Keys(decls.Events)),
		Facts:       p.Facts().Strings(),
		Clauses:     clauseStrings(clauses),
		Rules:       clauseStrings(rules),
		Constraints: clauseStrings(constraints),
		Warnings:    res.Warnings,
	}
}

func clauseStrings(clauses []ir.Clause) []string {
	out := make([]string, len(clauses))
	for i, c := range clauses {
		out[i] = c.String()
	}
	return out
}

func outputCompileText(formatter *OutputFormatter, r *CompilationResult) {
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled program %s\n\n", truncateID(r.ProgramHash))

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(w, "%s:\n", title)
		for _, it := range items {
			fmt.Fprintf(w, "  %s\n", it)
		}
		fmt.Fprintln(w)
	}
	section("Fluents", r.Fluents)
	section("Actions", r.Actions)
	section("Events", r.Events)
	section("Facts", r.Facts)
	section("Clauses", r.Clauses)
	section("Rules", r.Rules)
	section("Constraints", r.Constraints)

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn.Message)
	}
}

// outputCompileError reports a load or compile failure. Validation errors
// are listed one per line.
func outputCompileError(formatter *OutputFormatter, err error) error {
	var verrs compiler.ValidationErrors
	if errors.As(err, &verrs) {
		if formatter.Format == "json" {
			_ = writeIndentedJSON(formatter.Writer, CLIResponse{
				Status: "error",
				Data:   ValidationResult{Valid: false, Errors: verrs},
				Error:  &CLIError{Code: verrs[0].Code, Message: verrs[0].Message},
			})
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
			fmt.Fprintln(formatter.Writer)
			for _, v := range verrs {
				fmt.Fprintf(formatter.Writer, "  %s\n", v.Error())
			}
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(verrs)))
	}

	code, message := ErrCodeGeneric, err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, message = loadErr.Code, loadErr.Message
		if loadErr.Pos.IsValid() {
			message = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), message)
		}
	}
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// writeCompiledToFile writes the compilation result as indented JSON.
func writeCompiledToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling program: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

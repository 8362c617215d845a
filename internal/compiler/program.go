package compiler

import (
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/lps/internal/program"
)

// ProgramField is the top-level CUE field holding the program. Files
// without it are read as the program itself.
const ProgramField = "program"

// Source is the decoded CUE form of a program:
//
//	program: {
//		settings: {maxTime: 10, cycleInterval: 50}
//		fluents: ["fire/0"]
//		actions: ["eliminate/0", "escape/0"]
//		facts: ["neighbour(kitchen, hall)"]
//		initially: ["fire"]
//		definitions: [{head: "deal_with_fire(T1, T2)", body: "eliminate(T1, T2)"}]
//		rules: [{when: "fire(T1)", then: "deal_with_fire(T1, T2)"}]
//		constraints: ["eliminate(T1, T2), escape(T1, T2)"]
//		observations: [{term: "smoke", start: 1, end: 3}]
//	}
type Source struct {
	Settings     Settings            `json:"settings"`
	Fluents      []string            `json:"fluents" validate:"dive,predid"`
	Actions      []string            `json:"actions" validate:"dive,predid"`
	Events       []string            `json:"events" validate:"dive,predid"`
	Facts        []string            `json:"facts"`
	Initially    []string            `json:"initially"`
	Definitions  []DefinitionSource  `json:"definitions"`
	Rules        []RuleSource        `json:"rules"`
	Constraints  []string            `json:"constraints"`
	Observations []ObservationSource `json:"observations" validate:"dive"`
}

// DefinitionSource is a clause "body -> head".
type DefinitionSource struct {
	Head string `json:"head"`
	Body string `json:"body"`
}

// RuleSource is a reactive rule "when -> then". An empty when fires at the
// first cycle.
type RuleSource struct {
	When string `json:"when"`
	Then string `json:"then"`
}

// ObservationSource schedules term over [start, end). End defaults to
// start+1.
type ObservationSource struct {
	Term  string `json:"term"`
	Start int64  `json:"start" validate:"gte=0"`
	End   *int64 `json:"end,omitempty"`
}

var sourceFields = []string{
	"settings", "fluents", "actions", "events", "facts", "initially",
	"definitions", "rules", "constraints", "observations",
}

// Result is a compiled program ready for engine.New.
type Result struct {
	Program  *program.Program
	Settings Settings
	Warnings []RecursionWarning
}

// CompileFile reads and compiles a .cue program file.
func CompileFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(ProgramValue(v))
}

// ProgramValue returns the program field of v, or v itself when there is
// none.
func ProgramValue(v cue.Value) cue.Value {
	if p := v.LookupPath(cue.ParsePath(ProgramField)); p.Exists() {
		return p
	}
	return v
}

// Compile decodes, validates and builds a program from a CUE value.
// Validation problems are returned together as ValidationErrors.
func Compile(v cue.Value) (*Result, error) {
	src, err := Decode(v)
	if err != nil {
		return nil, err
	}
	if errs := Validate(src); len(errs) > 0 {
		for i := range errs {
			errs[i].Line = lineOf(v, errs[i].Field)
		}
		return nil, ValidationErrors(errs)
	}
	return Build(v, src)
}

// Decode reads the program fields of v. Unknown fields are rejected.
func Decode(v cue.Value) (*Source, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: ProgramField, Message: "program must be a struct", Pos: v.Pos()}
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().String()
		if !slices.Contains(sourceFields, name) {
			return nil, &CompileError{
				Field:   name,
				Message: fmt.Sprintf("unknown field (want one of %v)", sourceFields),
				Pos:     iter.Value().Pos(),
			}
		}
	}

	src := &Source{}
	if err := v.Decode(src); err != nil {
		return nil, formatCUEError(err)
	}
	return src, nil
}

// Build turns a validated Source into a program. v supplies positions for
// compile errors.
func Build(v cue.Value, src *Source) (*Result, error) {
	p := program.New()
	for _, id := range src.Fluents {
		p.DeclareFluent(id)
	}
	for _, id := range src.Actions {
		p.DeclareAction(id)
	}
	for _, id := range src.Events {
		p.DeclareEvent(id)
	}

	for _, f := range src.Settings.Facts() {
		p.AddFact(f)
	}

	b := &builder{root: v, prog: p}
	steps := []func(*Source) error{
		b.facts,
		b.initially,
		b.definitions,
		b.rules,
		b.constraints,
		b.observations,
	}
	for _, step := range steps {
		if err := step(src); err != nil {
			return nil, err
		}
	}

	return &Result{
		Program:  p,
		Settings: src.Settings,
		Warnings: AnalyzeRecursion(p.Clauses()),
	}, nil
}

// lineOf returns the source line of a validation field path such as
// "rules[2].then", or 0 when it cannot be located.
func lineOf(v cue.Value, field string) int {
	path := cue.ParsePath(field)
	if path.Err() != nil {
		return 0
	}
	return v.LookupPath(path).Pos().Line()
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors. The first error
// that carries a position wins.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	for _, e := range errors.Errors(err) {
		if positions := errors.Positions(e); len(positions) > 0 {
			return &CompileError{
				Field:   "cue",
				Message: e.Error(),
				Pos:     positions[0],
			}
		}
	}
	return err
}

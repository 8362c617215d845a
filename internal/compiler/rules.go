package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/lps/internal/engine"
	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/parse"
	"github.com/roach88/lps/internal/program"
)

// builder adds parsed source entries to a program. Parse failures become
// CompileErrors positioned at the offending CUE field.
type builder struct {
	root cue.Value
	prog *program.Program
}

func (b *builder) errorAt(field string, err error) error {
	path := cue.ParsePath(field)
	pos := b.root.Pos()
	if path.Err() == nil {
		if v := b.root.LookupPath(path); v.Exists() {
			pos = v.Pos()
		}
	}
	return &CompileError{Field: field, Message: err.Error(), Pos: pos}
}

func (b *builder) term(field, src string) (ir.Term, error) {
	t, err := parse.Term(src)
	if err != nil {
		return nil, b.errorAt(field, err)
	}
	return t, nil
}

func (b *builder) conjunction(field, src string) ([]ir.Term, error) {
	lits, err := parse.Conjunction(src)
	if err != nil {
		return nil, b.errorAt(field, err)
	}
	return lits, nil
}

func (b *builder) facts(src *Source) error {
	for i, f := range src.Facts {
		t, err := b.term(fmt.Sprintf("facts[%d]", i), f)
		if err != nil {
			return err
		}
		b.prog.AddFact(t)
	}
	return nil
}

func (b *builder) initially(src *Source) error {
	for i, f := range src.Initially {
		t, err := b.term(fmt.Sprintf("initially[%d]", i), f)
		if err != nil {
			return err
		}
		b.prog.AddFact(ir.NewFunctor(program.InitiallyPredicate, t))
	}
	return nil
}

// definitions compiles "body -> head" clauses. A definition without a body
// is a fact.
func (b *builder) definitions(src *Source) error {
	for i, d := range src.Definitions {
		head, err := b.term(fmt.Sprintf("definitions[%d].head", i), d.Head)
		if err != nil {
			return err
		}
		body, err := b.conjunction(fmt.Sprintf("definitions[%d].body", i), d.Body)
		if err != nil {
			return err
		}
		b.prog.AddClause(ir.NewClause([]ir.Term{head}, body))
	}
	return nil
}

func (b *builder) rules(src *Source) error {
	for i, r := range src.Rules {
		when, err := b.conjunction(fmt.Sprintf("rules[%d].when", i), r.When)
		if err != nil {
			return err
		}
		then, err := b.conjunction(fmt.Sprintf("rules[%d].then", i), r.Then)
		if err != nil {
			return err
		}
		if len(then) == 0 {
			return &CompileError{
				Field:   fmt.Sprintf("rules[%d].then", i),
				Message: "rule must have a consequent",
				Pos:     b.root.Pos(),
			}
		}
		b.prog.AddRule(ir.NewClause(then, when))
	}
	return nil
}

func (b *builder) constraints(src *Source) error {
	for i, c := range src.Constraints {
		field := fmt.Sprintf("constraints[%d]", i)
		body, err := b.conjunction(field, c)
		if err != nil {
			return err
		}
		if len(body) == 0 {
			return &CompileError{Field: field, Message: "constraint must have a body", Pos: b.root.Pos()}
		}
		b.prog.AddConstraint(ir.NewClause(nil, body))
	}
	return nil
}

// observations compiles each entry into an observe(O, Start, End) fact,
// scheduled by the engine on Load.
func (b *builder) observations(src *Source) error {
	for i, o := range src.Observations {
		t, err := b.term(fmt.Sprintf("observations[%d].term", i), o.Term)
		if err != nil {
			return err
		}
		end := o.Start + 1
		if o.End != nil {
			end = *o.End
		}
		b.prog.AddFact(ir.NewFunctor(engine.ObservePredicate, t, ir.Int(o.Start), ir.Int(end)))
	}
	return nil
}

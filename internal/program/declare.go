package program

import (
	"github.com/roach88/lps/internal/ir"
)

// InitiallyPredicate names facts that seed the starting state.
const InitiallyPredicate = "initially"

var freshTimeName = []string{"T"}

func freshTime() ir.Term {
	return ir.RenameTheta(freshTimeName, "$tv_")["T"]
}

// ApplyTimables rewrites fluent, action and event literals of rules,
// definitions and constraints into Timables using the declarations.
//
// A fluent declared as name/n written with n+1 arguments takes its last
// argument as the time. An action or event declared as name/n written with
// n+2 arguments takes its last two arguments as start and end. Literals
// written with exactly the declared arity get fresh time variables.
// Fluent actor definitions are left untouched: their conditions are
// evaluated against the current state without time.
func ApplyTimables(p *Program) {
	for i, r := range p.rules {
		p.rules[i] = wrapClause(p, r)
	}
	for i, c := range p.constraints {
		p.constraints[i] = wrapClause(p, c)
	}
	for i, c := range p.clauses {
		if isActorClause(c) {
			continue
		}
		p.clauses[i] = wrapClause(p, c)
	}
}

func isActorClause(c ir.Clause) bool {
	if len(c.Head) != 1 {
		return false
	}
	f, ok := c.Head[0].(ir.Functor)
	return ok && (f.Name == Initiates || f.Name == Terminates) && len(f.Args) == 2
}

func wrapClause(p *Program, c ir.Clause) ir.Clause {
	out := ir.Clause{Head: make([]ir.Term, len(c.Head)), Body: make([]ir.Term, len(c.Body))}
	for i, h := range c.Head {
		out.Head[i] = WrapTimable(p, h)
	}
	for i, b := range c.Body {
		out.Body[i] = WrapTimable(p, b)
	}
	return out
}

// WrapTimable converts a single literal, looking through negation.
func WrapTimable(p *Program, lit ir.Term) ir.Term {
	f, ok := lit.(ir.Functor)
	if !ok {
		return lit
	}
	if ir.IsNegation(f) {
		return ir.NewFunctor(ir.OpNot, WrapTimable(p, f.Args[0]))
	}

	n := len(f.Args)
	d := p.decls
	switch {
	case n >= 1 && d.Fluents[ir.PredicateID(f.Name, n-1)]:
		return ir.NewTimable(ir.NewFunctor(f.Name, f.Args[:n-1]...), f.Args[n-1], f.Args[n-1])
	case n >= 2 && (d.Actions[ir.PredicateID(f.Name, n-2)] || d.Events[ir.PredicateID(f.Name, n-2)]):
		return ir.NewTimable(ir.NewFunctor(f.Name, f.Args[:n-2]...), f.Args[n-2], f.Args[n-1])
	case d.Fluents[f.ID()]:
		t := freshTime()
		return ir.NewTimable(f, t, t)
	case d.Actions[f.ID()] || d.Events[f.ID()]:
		return ir.NewTimable(f, freshTime(), freshTime())
	}
	return lit
}

// ApplyInitially adds every ground initially(F) fact's F to the state.
func ApplyInitially(p *Program) error {
	answers, err := p.Query(ir.NewFunctor(InitiallyPredicate, ir.NewVar("F")))
	if err != nil {
		return err
	}
	for _, theta := range answers {
		if f, ok := theta["F"]; ok && f.IsGround() {
			p.state.Add(f)
		}
	}
	return nil
}

// ExpandRules replaces each rule and constraint by one clause per leaf of
// its expanded antecedent. Heads are substituted with the leaf's theta.
func ExpandRules(p *Program) {
	p.rules = expandClauses(p, p.rules)
	p.constraints = expandClauses(p, p.constraints)
}

func expandClauses(p *Program, clauses []ir.Clause) []ir.Clause {
	out := make([]ir.Clause, 0, len(clauses))
	for _, c := range clauses {
		leaves := ExpandRuleAntecedent(p, c.Body, nil)
		if len(leaves) == 0 {
			out = append(out, c)
			continue
		}
		for _, leaf := range leaves {
			out = append(out, ir.Clause{
				Head: ir.SubstituteAll(c.Head, leaf.Theta),
				Body: leaf.Literals,
			})
		}
	}
	return out
}

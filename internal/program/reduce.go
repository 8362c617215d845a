package program

import (
	"errors"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/resolve"
)

// Reduction is one way a clause body was partially or fully resolved
// against a view. Head is the clause head under Theta.
type Reduction struct {
	Head       []ir.Term
	Unresolved []ir.Term
	Theta      ir.Theta
}

// ReduceRuleAntecedent resolves the body of rule against every literal the
// view knows, depth first, until no further literal resolves.
//
// Each leaf of the search is one reduction. When no known literal resolves
// any body literal, the result is a single reduction with the body
// untouched. After every successful resolution, literals that can be
// decided without the view's known set are discharged: ground comparisons,
// X = Expr bindings, ground negations and timeless literals answered by
// definitions or builtins (one branch per answer).
func ReduceRuleAntecedent(v *View, rule ir.Clause) ([]Reduction, error) {
	return reduce(v, rule, false)
}

// ReduceConjunction is ReduceRuleAntecedent for a bare conjunction that also
// discharges decidable literals before the first resolution. Constraints and
// goal leaves use it: their literals may be decidable without any fact.
func ReduceConjunction(v *View, literals []ir.Term) ([]Reduction, error) {
	return reduce(v, ir.Clause{Body: literals}, true)
}

type branch struct {
	clause ir.Clause
	theta  ir.Theta
}

type reducer struct {
	view    *View
	known   []ir.Term
	visited map[string]bool
	out     []Reduction
}

func reduce(v *View, c ir.Clause, eager bool) ([]Reduction, error) {
	r := &reducer{view: v, known: v.Known(), visited: make(map[string]bool)}

	start := []branch{{clause: c, theta: ir.Theta{}}}
	if eager {
		var err error
		start, err = r.discharge(start[0])
		if err != nil {
			return nil, err
		}
	}
	for _, b := range start {
		if err := r.walk(b); err != nil {
			return nil, err
		}
	}
	return r.out, nil
}

func (r *reducer) walk(b branch) error {
	advanced := false
	for _, fact := range r.known {
		res, ok := resolve.Resolve(b.clause, fact)
		if !ok {
			continue
		}
		advanced = true

		nexts, err := r.discharge(branch{clause: res.Clause, theta: b.theta.Compose(res.Theta)})
		if err != nil {
			return err
		}
		for _, nb := range nexts {
			k := nb.clause.Key()
			if r.visited[k] {
				continue
			}
			r.visited[k] = true
			if err := r.walk(nb); err != nil {
				return err
			}
		}
	}
	if !advanced {
		r.out = append(r.out, Reduction{Head: b.clause.Head, Unresolved: b.clause.Body, Theta: b.theta})
	}
	return nil
}

// discharge removes every decidable literal of b's body. A nil result
// means the branch is dead.
func (r *reducer) discharge(b branch) ([]branch, error) {
	for i, lit := range b.clause.Body {
		rest := make([]ir.Term, 0, len(b.clause.Body)-1)
		rest = append(rest, b.clause.Body[:i]...)
		rest = append(rest, b.clause.Body[i+1:]...)

		answers, decided, err := r.decide(lit)
		if err != nil {
			return nil, err
		}
		if !decided {
			continue
		}

		var out []branch
		for _, a := range answers {
			next := branch{
				clause: ir.Clause{Head: b.clause.Head, Body: rest}.Substitute(a),
				theta:  b.theta.Compose(a),
			}
			more, err := r.discharge(next)
			if err != nil {
				return nil, err
			}
			out = append(out, more...)
		}
		return out, nil
	}
	return []branch{b}, nil
}

// decide answers a literal that does not depend on the known set. It
// returns decided=false when the literal must wait for resolution.
func (r *reducer) decide(lit ir.Term) ([]ir.Theta, bool, error) {
	switch t := lit.(type) {
	case ir.BinaryOp:
		if !t.IsBoolean() {
			return nil, false, nil
		}
		if t.Op == ir.OpUnify && !t.IsGround() {
			return r.decideUnify(t)
		}
		if !t.IsGround() {
			return nil, false, nil
		}
		ok, err := ir.EvaluateBool(t)
		if err != nil || !ok {
			return nil, true, nil
		}
		return []ir.Theta{{}}, true, nil

	case ir.UnaryOp:
		if !t.IsBoolean() || !t.IsGround() {
			return nil, false, nil
		}
		ok, err := ir.EvaluateBool(t)
		if err != nil || !ok {
			return nil, true, nil
		}
		return []ir.Theta{{}}, true, nil

	case ir.Functor:
		if ir.IsNegation(t) {
			if !t.IsGround() {
				return nil, false, nil
			}
			holds, err := r.view.Holds(t.Args[0])
			if err != nil {
				return nil, false, err
			}
			if holds {
				return nil, true, nil
			}
			return []ir.Theta{{}}, true, nil
		}
		if r.view.prog.IsTimable(t) {
			return nil, false, nil
		}
		answers, err := r.view.Query(t)
		if errors.Is(err, ErrInstantiation) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return answers, true, nil
	}
	return nil, false, nil
}

// decideUnify binds X = Expr once one side simplifies to a value.
func (r *reducer) decideUnify(t ir.BinaryOp) ([]ir.Theta, bool, error) {
	l, err := ir.Simplify(t.Left)
	if err != nil {
		return nil, true, nil
	}
	rt, err := ir.Simplify(t.Right)
	if err != nil {
		return nil, true, nil
	}
	if isPendingArith(l) || isPendingArith(rt) {
		return nil, false, nil
	}
	theta, ok := resolve.UnifyTerms(l, rt, ir.Theta{})
	if !ok {
		return nil, true, nil
	}
	return []ir.Theta{theta}, true, nil
}

// isPendingArith reports whether t is arithmetic that cannot be evaluated
// yet.
func isPendingArith(t ir.Term) bool {
	switch v := t.(type) {
	case ir.BinaryOp:
		return !v.IsBoolean() && !v.IsGround()
	case ir.UnaryOp:
		return !v.IsBoolean() && !v.IsGround()
	}
	return false
}

// HasExpiredTimable reports whether any literal, looking through negation,
// is a timable that has expired at now.
func HasExpiredTimable(literals []ir.Term, now int64) bool {
	for _, lit := range literals {
		if t, ok := ir.StripNegation(lit).(ir.Timable); ok && t.HasExpired(now) {
			return true
		}
	}
	return false
}

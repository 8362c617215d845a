package resolve

import "github.com/roach88/lps/internal/ir"

// Resolution is the result of one resolution step: the residual clause and
// the substitution that produced it.
type Resolution struct {
	Clause ir.Clause
	Theta  ir.Theta
}

// Resolve resolves a fact against the body of clause.
//
// The fact's variables are renamed to fresh names first, so resolving the same
// clause against several facts never leaks bindings between the results. The
// fact is unified against each body literal in order, accumulating theta;
// literals that do not unify stay unresolved.
//
// Returns false when no body literal unified, or when an unresolved literal
// becomes a ground boolean expression that evaluates false.
func Resolve(clause ir.Clause, fact ir.Term) (Resolution, bool) {
	renamed := renameFresh(fact)
	theta, unresolved := resolveAgainst(renamed, clause.Body)
	if len(unresolved) == len(clause.Body) {
		return Resolution{}, false
	}

	remaining := ir.SubstituteAll(unresolved, theta)
	if hasFalseExpression(remaining) {
		return Resolution{}, false
	}

	return Resolution{
		Clause: ir.Clause{Head: ir.SubstituteAll(clause.Head, theta), Body: remaining},
		Theta:  theta,
	}, true
}

// ResolveAction resolves an action against the head literals of clause. It
// answers which part of a rule head an executed action accounts for.
func ResolveAction(clause ir.Clause, action ir.Term) (Resolution, bool) {
	renamed := renameFresh(action)
	theta, unresolved := resolveAgainst(renamed, clause.Head)
	if len(unresolved) == len(clause.Head) {
		return Resolution{}, false
	}

	remaining := ir.SubstituteAll(unresolved, theta)
	if hasFalseExpression(remaining) {
		return Resolution{}, false
	}

	return Resolution{
		Clause: ir.Clause{Head: remaining, Body: ir.SubstituteAll(clause.Body, theta)},
		Theta:  theta,
	}, true
}

// RenameFresh renames every variable of t to a fresh name.
func RenameFresh(t ir.Term) ir.Term { return renameFresh(t) }

func renameFresh(t ir.Term) ir.Term {
	vars := ir.Vars(t)
	if len(vars) == 0 {
		return t
	}
	return t.Substitute(ir.RenameTheta(vars, ir.FreshFactPrefix))
}

func resolveAgainst(term ir.Term, literals []ir.Term) (ir.Theta, []ir.Term) {
	theta := ir.Theta{}
	var unresolved []ir.Term
	for _, lit := range literals {
		next, ok := UnifyTerms(term, lit, theta)
		if !ok {
			unresolved = append(unresolved, lit)
			continue
		}
		theta = next
	}
	return theta, unresolved
}

// hasFalseExpression reports whether any literal is a ground boolean
// expression that does not evaluate true.
func hasFalseExpression(literals []ir.Term) bool {
	for _, lit := range literals {
		if !ir.IsBooleanExpr(lit) || !lit.IsGround() {
			continue
		}
		ok, err := ir.EvaluateBool(lit)
		if err != nil || !ok {
			return true
		}
	}
	return false
}

// Package resolve implements unification and single-step clause resolution.
//
// Unify computes a most general unifier for a sequence of term pairs. It never
// backtracks internally and never mutates the substitution passed in; callers
// try alternative pairings by calling again.
//
// Occurs check: binding a variable to a term that contains the same variable
// (after dereferencing) fails. Terms are therefore always finite and
// Substitute always terminates.
package resolve

import "github.com/roach88/lps/internal/ir"

// Pair is one equation to unify.
type Pair struct {
	Left, Right ir.Term
}

// Unify unifies every pair left to right, threading theta.
// Returns the extended substitution and true, or nil and false on failure.
// The input theta is not modified.
func Unify(pairs []Pair, theta ir.Theta) (ir.Theta, bool) {
	out := make(ir.Theta, len(theta)+len(pairs))
	for k, v := range theta {
		out[k] = v
	}
	for _, p := range pairs {
		if !unify(p.Left, p.Right, out) {
			return nil, false
		}
	}
	return out, true
}

// UnifyTerms unifies a single pair.
func UnifyTerms(a, b ir.Term, theta ir.Theta) (ir.Theta, bool) {
	return Unify([]Pair{{Left: a, Right: b}}, theta)
}

// walk dereferences a variable through theta until it reaches a non-variable
// or an unbound variable.
func walk(t ir.Term, theta ir.Theta) ir.Term {
	for {
		v, ok := t.(ir.Var)
		if !ok {
			return t
		}
		bound, found := theta[v.Name]
		if !found {
			return t
		}
		if bv, isVar := bound.(ir.Var); isVar && bv.Name == v.Name {
			return t
		}
		t = bound
	}
}

func unify(a, b ir.Term, theta ir.Theta) bool {
	a = walk(a, theta)
	b = walk(b, theta)

	av, aIsVar := a.(ir.Var)
	bv, bIsVar := b.(ir.Var)
	switch {
	case aIsVar && bIsVar && av.Name == bv.Name:
		return true
	case aIsVar:
		return bind(av, b, theta)
	case bIsVar:
		return bind(bv, a, theta)
	}

	switch x := a.(type) {
	case ir.Const:
		y, ok := b.(ir.Const)
		return ok && x.Equal(y)
	case ir.Functor:
		y, ok := b.(ir.Functor)
		if !ok || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !unify(x.Args[i], y.Args[i], theta) {
				return false
			}
		}
		return true
	case ir.List:
		y, ok := b.(ir.List)
		return ok && unifyLists(x, y, theta)
	case ir.Timable:
		y, ok := b.(ir.Timable)
		return ok &&
			unify(x.Goal, y.Goal, theta) &&
			unify(x.Start, y.Start, theta) &&
			unify(x.End, y.End, theta)
	case ir.BinaryOp:
		y, ok := b.(ir.BinaryOp)
		return ok && x.Op == y.Op &&
			unify(x.Left, y.Left, theta) &&
			unify(x.Right, y.Right, theta)
	case ir.UnaryOp:
		y, ok := b.(ir.UnaryOp)
		return ok && x.Op == y.Op && unify(x.Operand, y.Operand, theta)
	}
	return false
}

// unifyLists unifies heads positionally, then the remainder of the shorter
// list against the other list's tail.
func unifyLists(a, b ir.List, theta ir.Theta) bool {
	for len(a.Elems) > 0 && len(b.Elems) > 0 {
		if !unify(a.Elems[0], b.Elems[0], theta) {
			return false
		}
		a = ir.List{Elems: a.Elems[1:], Tail: a.Tail}
		b = ir.List{Elems: b.Elems[1:], Tail: b.Tail}
	}
	ra, rb := listRest(a), listRest(b)
	la, aIsList := ra.(ir.List)
	lb, bIsList := rb.(ir.List)
	if aIsList && bIsList {
		// At least one side is the closed empty list here.
		return la.IsEmpty() && lb.IsEmpty()
	}
	return unify(ra, rb, theta)
}

func listRest(l ir.List) ir.Term {
	if len(l.Elems) > 0 {
		return l
	}
	if l.Tail == nil {
		return ir.EmptyList()
	}
	return l.Tail
}

func bind(v ir.Var, t ir.Term, theta ir.Theta) bool {
	if occurs(v.Name, t, theta) {
		return false
	}
	theta[v.Name] = t
	return true
}

// occurs reports whether the variable appears in t under theta.
func occurs(name string, t ir.Term, theta ir.Theta) bool {
	t = walk(t, theta)
	switch x := t.(type) {
	case ir.Var:
		return x.Name == name
	case ir.Functor:
		for _, a := range x.Args {
			if occurs(name, a, theta) {
				return true
			}
		}
	case ir.List:
		for _, e := range x.Elems {
			if occurs(name, e, theta) {
				return true
			}
		}
		return x.Tail != nil && occurs(name, x.Tail, theta)
	case ir.Timable:
		return occurs(name, x.Goal, theta) || occurs(name, x.Start, theta) || occurs(name, x.End, theta)
	case ir.BinaryOp:
		return occurs(name, x.Left, theta) || occurs(name, x.Right, theta)
	case ir.UnaryOp:
		return occurs(name, x.Operand, theta)
	}
	return false
}

package program

import (
	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/resolve"
)

// MaxExpansionDepth bounds how many definitions expansion unfolds along one
// branch. Deeper literals are left for reduction to answer.
const MaxExpansionDepth = 32

// Fragment is one way to expand a literal: the body of a matching
// definition and the unifier of the literal with its head.
type Fragment struct {
	Body  []ir.Term
	Theta ir.Theta
}

// Leaf is a fully expanded conjunction with the substitutions applied on
// the way down.
type Leaf struct {
	Literals []ir.Term
	Theta    ir.Theta
}

// ExpandLiteral unfolds lit through the program's definitions. Each
// definition is renamed fresh before its head is unified with lit. Ground
// facts of a predicate that also has definitions are returned as
// empty-bodied fragments so that expansion never loses their answers.
// Negations, expressions and fluent actors do not expand.
func ExpandLiteral(p *Program, lit ir.Term) []Fragment {
	if !expandable(lit) {
		return nil
	}

	var out []Fragment
	for _, c := range p.clauses {
		if len(c.Head) != 1 || !sameShape(lit, c.Head[0]) {
			continue
		}
		renamed := c.Substitute(ir.RenameTheta(c.Vars(), ir.FreshClausePrefix))
		theta, ok := resolve.UnifyTerms(lit, renamed.Head[0], ir.Theta{})
		if !ok {
			continue
		}
		out = append(out, Fragment{Body: ir.SubstituteAll(renamed.Body, theta), Theta: theta})
	}
	if len(out) == 0 {
		return nil
	}

	for _, m := range p.facts.Unifies(lit) {
		out = append(out, Fragment{Theta: m.Theta})
	}
	return out
}

func expandable(lit ir.Term) bool {
	switch t := lit.(type) {
	case ir.Timable:
		return true
	case ir.Functor:
		if ir.IsNegation(t) {
			return false
		}
		return t.Name != Initiates && t.Name != Terminates
	}
	return false
}

// ExpandRuleAntecedent unfolds a conjunction through the definitions. The
// first literal that expands decides the branching: each of its fragments
// is spliced in its place, the fragment's theta is applied to the other
// literals, and expansion recurses. A conjunction with no expandable literal
// is a leaf.
func ExpandRuleAntecedent(p *Program, literals []ir.Term, theta ir.Theta) []Leaf {
	if theta == nil {
		theta = ir.Theta{}
	}
	var out []Leaf
	expandInto(p, literals, theta, 0, &out)
	return out
}

func expandInto(p *Program, literals []ir.Term, theta ir.Theta, depth int, out *[]Leaf) {
	if depth < MaxExpansionDepth {
		for i, lit := range literals {
			frags := ExpandLiteral(p, lit)
			if len(frags) == 0 {
				continue
			}
			for _, f := range frags {
				next := make([]ir.Term, 0, len(literals)-1+len(f.Body))
				next = append(next, ir.SubstituteAll(literals[:i], f.Theta)...)
				next = append(next, f.Body...)
				next = append(next, ir.SubstituteAll(literals[i+1:], f.Theta)...)
				expandInto(p, next, theta.Compose(f.Theta), depth+1, out)
			}
			return
		}
	}
	*out = append(*out, Leaf{Literals: literals, Theta: theta})
}

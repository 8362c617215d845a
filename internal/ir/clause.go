package ir

import "strings"

// Clause is a rule: ordered head literals (consequent) and body literals
// (antecedent conjunction). A fact is a clause with an empty body.
//
// Clauses are value-like. Substitute returns a new clause and leaves the
// receiver untouched, so clauses can be shared between program clones.
type Clause struct {
	Head []Term
	Body []Term
}

// NewClause creates a clause, copying both slices.
func NewClause(head, body []Term) Clause {
	return Clause{Head: copyTerms(head), Body: copyTerms(body)}
}

// IsFact reports whether the clause has no body.
func (c Clause) IsFact() bool { return len(c.Body) == 0 }

// Substitute applies theta to head and body.
func (c Clause) Substitute(theta Theta) Clause {
	return Clause{Head: substituteAll(c.Head, theta), Body: substituteAll(c.Body, theta)}
}

// Vars returns the variable names used anywhere in the clause.
func (c Clause) Vars() []string {
	all := make([]Term, 0, len(c.Head)+len(c.Body))
	all = append(all, c.Head...)
	all = append(all, c.Body...)
	return Vars(all...)
}

// Key returns the canonical encoding of the clause.
func (c Clause) Key() string { return KeyAll(c.Head) + "<-" + KeyAll(c.Body) }

// String renders facts as "h." and rules as "b1, b2 -> h1, h2.".
func (c Clause) String() string {
	var b strings.Builder
	if len(c.Body) > 0 {
		writeJoined(&b, c.Body)
		b.WriteString(" -> ")
	}
	writeJoined(&b, c.Head)
	b.WriteByte('.')
	return b.String()
}

func copyTerms(terms []Term) []Term {
	if terms == nil {
		return nil
	}
	out := make([]Term, len(terms))
	copy(out, terms)
	return out
}

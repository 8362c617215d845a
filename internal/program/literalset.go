package program

import (
	"slices"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/resolve"
)

// Match is one stored literal that unified with a query, with the bindings
// that made it unify.
type Match struct {
	Literal ir.Term
	Theta   ir.Theta
}

// LiteralSet is a set of literals keyed by canonical encoding.
//
// INVARIANTS:
//   - No two stored literals share a canonical key
//   - Iteration follows insertion order (action selection depends on it)
type LiteralSet struct {
	order []string
	items map[string]ir.Term
}

// NewLiteralSet creates a set holding the given literals.
func NewLiteralSet(literals ...ir.Term) *LiteralSet {
	s := &LiteralSet{items: make(map[string]ir.Term, len(literals))}
	for _, l := range literals {
		s.Add(l)
	}
	return s
}

// Add inserts lit. Returns false if an equal literal is already stored.
func (s *LiteralSet) Add(lit ir.Term) bool {
	k := ir.Key(lit)
	if _, ok := s.items[k]; ok {
		return false
	}
	s.items[k] = lit
	s.order = append(s.order, k)
	return true
}

// AddAll inserts every literal of other.
func (s *LiteralSet) AddAll(other *LiteralSet) {
	if other == nil {
		return
	}
	for _, k := range other.order {
		s.Add(other.items[k])
	}
}

// Remove deletes lit. Returns false if it was not stored.
func (s *LiteralSet) Remove(lit ir.Term) bool {
	k := ir.Key(lit)
	if _, ok := s.items[k]; !ok {
		return false
	}
	delete(s.items, k)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == k })
	return true
}

// Contains reports whether an equal literal is stored.
func (s *LiteralSet) Contains(lit ir.Term) bool {
	_, ok := s.items[ir.Key(lit)]
	return ok
}

// Len returns the number of stored literals.
func (s *LiteralSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Literals returns the stored literals in insertion order.
// The returned slice is a copy.
func (s *LiteralSet) Literals() []ir.Term {
	if s == nil {
		return nil
	}
	out := make([]ir.Term, len(s.order))
	for i, k := range s.order {
		out[i] = s.items[k]
	}
	return out
}

// Strings renders the stored literals in insertion order.
func (s *LiteralSet) Strings() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s.order))
	for i, k := range s.order {
		out[i] = s.items[k].String()
	}
	return out
}

// Unifies returns every stored literal that unifies with lit.
func (s *LiteralSet) Unifies(lit ir.Term) []Match {
	if s == nil {
		return nil
	}
	var out []Match
	for _, k := range s.order {
		stored := s.items[k]
		if theta, ok := resolve.UnifyTerms(lit, stored, ir.Theta{}); ok {
			out = append(out, Match{Literal: stored, Theta: theta})
		}
	}
	return out
}

// Clone returns an independent copy.
func (s *LiteralSet) Clone() *LiteralSet {
	out := &LiteralSet{
		order: make([]string, len(s.order)),
		items: make(map[string]ir.Term, len(s.items)),
	}
	copy(out.order, s.order)
	for k, v := range s.items {
		out.items[k] = v
	}
	return out
}

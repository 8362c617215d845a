package program

import (
	"errors"
	"regexp"
	"sort"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/resolve"
)

// BuiltinFunc answers a call to a builtin predicate. args are already
// substituted under theta. It returns one extended substitution per solution;
// an empty result means the call failed.
type BuiltinFunc func(args []ir.Term, theta ir.Theta) ([]ir.Theta, error)

// Predicate ids are name/arity. Names are lowercase identifiers or operator
// symbols; names starting with an uppercase letter or '_' would read as
// variables and are rejected.
var predicateIDPattern = regexp.MustCompile(`^([a-z][a-zA-Z0-9_]*|[+\-*/<>=!]+)/(0|[1-9][0-9]*)$`)

// ValidPredicateID reports whether id has the name/arity form.
func ValidPredicateID(id string) bool { return predicateIDPattern.MatchString(id) }

// Builtins is the table of predicates answered by Go code instead of
// clauses.
type Builtins struct {
	funcs map[string]BuiltinFunc
}

// NewBuiltins returns the standard builtin table: comparisons, unification
// and the list predicates member/2, append/3 and length/2.
func NewBuiltins() *Builtins {
	b := &Builtins{funcs: make(map[string]BuiltinFunc)}
	b.funcs[ir.PredicateID(ir.OpUnify, 2)] = builtinUnify
	for _, op := range []string{ir.OpEq, ir.OpNeq, ir.OpLt, ir.OpLte, ir.OpGt, ir.OpGte} {
		b.funcs[ir.PredicateID(op, 2)] = compareBuiltin(op)
	}
	b.funcs["member/2"] = builtinMember
	b.funcs["append/3"] = builtinAppend
	b.funcs["length/2"] = builtinLength
	return b
}

// Has reports whether id is answered by a builtin.
func (b *Builtins) Has(id string) bool {
	if b == nil {
		return false
	}
	_, ok := b.funcs[id]
	return ok
}

// Define registers or replaces a builtin.
func (b *Builtins) Define(id string, fn BuiltinFunc) error {
	if !ValidPredicateID(id) {
		return &InvalidPredicateError{ID: id}
	}
	if fn == nil {
		return errors.New("builtin function must not be nil")
	}
	b.funcs[id] = fn
	return nil
}

// Call invokes the builtin registered under id.
func (b *Builtins) Call(id string, args []ir.Term, theta ir.Theta) ([]ir.Theta, error) {
	fn, ok := b.funcs[id]
	if !ok {
		return nil, &QueryError{Code: ErrCodeBuiltin, Literal: id, Message: "unknown builtin"}
	}
	return fn(args, theta)
}

// IDs returns the registered ids in lexical order.
func (b *Builtins) IDs() []string {
	ids := make([]string, 0, len(b.funcs))
	for id := range b.funcs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns an independent copy of the table.
func (b *Builtins) Clone() *Builtins {
	out := &Builtins{funcs: make(map[string]BuiltinFunc, len(b.funcs))}
	for k, v := range b.funcs {
		out.funcs[k] = v
	}
	return out
}

// ============================================================================
// Standard builtins
// ============================================================================

func one(theta ir.Theta) []ir.Theta { return []ir.Theta{theta} }

// builtinUnify evaluates ground arithmetic on both sides, then unifies.
func builtinUnify(args []ir.Term, theta ir.Theta) ([]ir.Theta, error) {
	l, err := ir.Simplify(args[0])
	if err != nil {
		return nil, err
	}
	r, err := ir.Simplify(args[1])
	if err != nil {
		return nil, err
	}
	next, ok := resolve.UnifyTerms(l, r, theta)
	if !ok {
		return nil, nil
	}
	return one(next), nil
}

func compareBuiltin(op string) BuiltinFunc {
	return func(args []ir.Term, theta ir.Theta) ([]ir.Theta, error) {
		expr := ir.NewBinary(op, args[0], args[1])
		if !expr.IsGround() {
			return nil, ErrInstantiation
		}
		ok, err := ir.EvaluateBool(expr)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return one(theta), nil
	}
}

func builtinMember(args []ir.Term, theta ir.Theta) ([]ir.Theta, error) {
	list, ok := args[1].(ir.List)
	if !ok {
		if args[1].Kind() == ir.KindVar {
			return nil, ErrInstantiation
		}
		return nil, nil
	}
	var out []ir.Theta
	for _, e := range list.Elems {
		if next, ok := resolve.UnifyTerms(args[0], e, theta); ok {
			out = append(out, next)
		}
	}
	return out, nil
}

func builtinAppend(args []ir.Term, theta ir.Theta) ([]ir.Theta, error) {
	if front, ok := args[0].(ir.List); ok && front.IsClosed() {
		joined := ir.NewList(front.Elems, tailOrEmpty(args[1]))
		next, ok := resolve.UnifyTerms(joined, args[2], theta)
		if !ok {
			return nil, nil
		}
		return one(next), nil
	}

	whole, ok := args[2].(ir.List)
	if !ok || !whole.IsClosed() {
		return nil, ErrInstantiation
	}
	var out []ir.Theta
	for i := 0; i <= len(whole.Elems); i++ {
		front := ir.NewList(whole.Elems[:i], nil)
		back := ir.NewList(whole.Elems[i:], nil)
		next, ok := resolve.Unify([]resolve.Pair{
			{Left: args[0], Right: front},
			{Left: args[1], Right: back},
		}, theta)
		if ok {
			out = append(out, next)
		}
	}
	return out, nil
}

// tailOrEmpty maps the closed empty list to the nil tail sentinel.
func tailOrEmpty(t ir.Term) ir.Term {
	if l, ok := t.(ir.List); ok && l.IsEmpty() {
		return nil
	}
	return t
}

func builtinLength(args []ir.Term, theta ir.Theta) ([]ir.Theta, error) {
	list, ok := args[0].(ir.List)
	if !ok || !list.IsClosed() {
		return nil, ErrInstantiation
	}
	next, ok := resolve.UnifyTerms(args[1], ir.Int(int64(len(list.Elems))), theta)
	if !ok {
		return nil, nil
	}
	return one(next), nil
}

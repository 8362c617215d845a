package program

import (
	"fmt"
	"strings"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/resolve"
)

// DefaultMaxQueryDepth bounds how many definitions a single query may chain.
const DefaultMaxQueryDepth = 64

// Query returns every substitution of lit's variables under which lit holds
// in the view. Answers are deduplicated and restricted to lit's variables.
//
// Solving is depth-first SLD resolution: facts first, then state or
// executed actions for timed literals, then definitions (renamed fresh),
// then builtins. Negation !L holds when L has no answer.
func (v *View) Query(lit ir.Term) ([]ir.Theta, error) {
	vars := ir.Vars(lit)
	seen := make(map[string]bool)
	var out []ir.Theta

	s := &solver{view: v, maxDepth: v.prog.maxDepth}
	_, err := s.solve([]ir.Term{lit}, ir.Theta{}, 0, func(theta ir.Theta) (bool, error) {
		answer := theta.Restrict(vars)
		k := answerKey(answer, vars)
		if !seen[k] {
			seen[k] = true
			out = append(out, answer)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Holds reports whether lit has at least one answer.
func (v *View) Holds(lit ir.Term) (bool, error) {
	found := false
	s := &solver{view: v, maxDepth: v.prog.maxDepth}
	_, err := s.solve([]ir.Term{lit}, ir.Theta{}, 0, func(ir.Theta) (bool, error) {
		found = true
		return true, nil
	})
	return found, err
}

func answerKey(theta ir.Theta, vars []string) string {
	var b strings.Builder
	for _, name := range vars {
		if t, ok := theta[name]; ok {
			b.WriteString(ir.Key(t))
		}
		b.WriteByte(';')
	}
	return b.String()
}

type solver struct {
	view     *View
	maxDepth int
}

// solve proves goals left to right under theta. emit receives each
// solution and returns true to stop the search; solve returns true once
// stopped. Errors from emit abort the search.
func (s *solver) solve(goals []ir.Term, theta ir.Theta, depth int, emit func(ir.Theta) (bool, error)) (bool, error) {
	if len(goals) == 0 {
		return emit(theta)
	}
	if depth > s.maxDepth {
		return false, &QueryError{
			Code:    ErrCodeDepthExceeded,
			Literal: goals[0].Substitute(theta).String(),
			Message: fmt.Sprintf("exceeded maximum depth %d", s.maxDepth),
		}
	}

	lit := goals[0].Substitute(theta)
	rest := goals[1:]
	next := func(th ir.Theta) (bool, error) { return s.solve(rest, th, depth, emit) }

	switch t := lit.(type) {
	case ir.BinaryOp:
		if !t.IsBoolean() {
			return false, badLiteral(lit, "arithmetic expression used as a literal")
		}
		return s.callBuiltin(ir.PredicateID(t.Op, 2), []ir.Term{t.Left, t.Right}, lit, theta, next)

	case ir.UnaryOp:
		if !t.IsBoolean() {
			return false, badLiteral(lit, "arithmetic expression used as a literal")
		}
		if !t.IsGround() {
			return false, fmt.Errorf("%s: %w", lit, ErrInstantiation)
		}
		ok, err := ir.EvaluateBool(t)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		return next(theta)

	case ir.Timable:
		return s.solveTimable(t, theta, depth, next)

	case ir.Functor:
		if ir.IsNegation(t) {
			found := false
			_, err := s.solve([]ir.Term{t.Args[0]}, theta, depth+1, func(ir.Theta) (bool, error) {
				found = true
				return true, nil
			})
			if err != nil {
				return false, err
			}
			if found {
				return false, nil
			}
			return next(theta)
		}
		return s.solveFunctor(t, theta, depth, next)

	default:
		return false, badLiteral(lit, "not a callable literal")
	}
}

func (s *solver) solveFunctor(lit ir.Functor, theta ir.Theta, depth int, next func(ir.Theta) (bool, error)) (bool, error) {
	p := s.view.prog

	candidates := p.facts.Literals()
	switch {
	case p.IsFluent(lit):
		candidates = append(candidates, s.view.state.Literals()...)
	case p.IsAction(lit), p.IsEvent(lit):
		candidates = append(candidates, p.executed.Literals()...)
	}
	for _, c := range candidates {
		th, ok := resolve.UnifyTerms(lit, c, theta)
		if !ok {
			continue
		}
		if stop, err := next(th); stop || err != nil {
			return stop, err
		}
	}

	if stop, err := s.solveClauses(lit, theta, depth, next); stop || err != nil {
		return stop, err
	}

	if p.builtins.Has(lit.ID()) {
		return s.callBuiltin(lit.ID(), lit.Args, lit, theta, next)
	}
	return false, nil
}

func (s *solver) solveTimable(lit ir.Timable, theta ir.Theta, depth int, next func(ir.Theta) (bool, error)) (bool, error) {
	p := s.view.prog
	isFluent := p.IsFluent(lit) || (!p.IsAction(lit) && !p.IsEvent(lit) && lit.IsInstant())

	var start, end int64
	var pool []ir.Term
	if isFluent {
		start, end = s.view.now, s.view.now
		pool = s.view.state.Literals()
	} else {
		start, end = s.view.actionStart, s.view.actionStart+1
		pool = p.executed.Literals()
	}

	if timed, ok := resolve.Unify([]resolve.Pair{
		{Left: lit.Start, Right: ir.Int(start)},
		{Left: lit.End, Right: ir.Int(end)},
	}, theta); ok {
		for _, g := range pool {
			th, ok := resolve.UnifyTerms(lit.Goal, g, timed)
			if !ok {
				continue
			}
			if stop, err := next(th); stop || err != nil {
				return stop, err
			}
		}
	}

	return s.solveClauses(lit, theta, depth, next)
}

// solveClauses resolves lit against every single-headed definition.
func (s *solver) solveClauses(lit ir.Term, theta ir.Theta, depth int, next func(ir.Theta) (bool, error)) (bool, error) {
	for _, c := range s.view.prog.clauses {
		if len(c.Head) != 1 || !sameShape(lit, c.Head[0]) {
			continue
		}
		renamed := c.Substitute(ir.RenameTheta(c.Vars(), ir.FreshClausePrefix))
		th, ok := resolve.UnifyTerms(lit, renamed.Head[0], theta)
		if !ok {
			continue
		}
		stop, err := s.solve(renamed.Body, th, depth+1, next)
		if stop || err != nil {
			return stop, err
		}
	}
	return false, nil
}

func (s *solver) callBuiltin(id string, args []ir.Term, lit ir.Term, theta ir.Theta, next func(ir.Theta) (bool, error)) (bool, error) {
	answers, err := s.view.prog.builtins.Call(id, args, theta)
	if err != nil {
		return false, fmt.Errorf("%s: %w", lit, err)
	}
	for _, th := range answers {
		if stop, err := next(th); stop || err != nil {
			return stop, err
		}
	}
	return false, nil
}

// sameShape is a cheap pre-filter before renaming a clause.
func sameShape(lit, head ir.Term) bool {
	if lit.Kind() != head.Kind() {
		return false
	}
	switch l := lit.(type) {
	case ir.Functor:
		h := head.(ir.Functor)
		return l.Name == h.Name && len(l.Args) == len(h.Args)
	case ir.Timable:
		return sameShape(l.Goal, head.(ir.Timable).Goal)
	}
	return true
}

func badLiteral(lit ir.Term, msg string) error {
	return &QueryError{Code: ErrCodeBadLiteral, Literal: lit.String(), Message: msg}
}

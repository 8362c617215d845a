// Package goal implements goal trees: the expansion of a fired rule's
// consequent into candidate actions for the current cycle.
package goal

import (
	"math"
	"sort"
	"strings"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/program"
	"github.com/roach88/lps/internal/resolve"
)

// Status is the outcome of evaluating a tree.
type Status int

const (
	Pending Status = iota
	Solved
	Failed
)

func (s Status) String() string {
	switch s {
	case Solved:
		return "solved"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Tree is the disjunction of ways a fired consequent can still be made
// true. Each leaf is a conjunction with no expandable literal.
type Tree struct {
	root    []ir.Term
	rootKey string
	firedAt int64
	leaves  []program.Leaf
}

// New expands root through p's definitions.
func New(p *program.Program, root []ir.Term, firedAt int64) *Tree {
	cp := make([]ir.Term, len(root))
	copy(cp, root)
	return &Tree{
		root:    cp,
		rootKey: rootKey(cp),
		firedAt: firedAt,
		leaves:  program.ExpandRuleAntecedent(p, cp, nil),
	}
}

// Root returns the fired conjunction.
func (t *Tree) Root() []ir.Term { return t.root }

// FiredAt returns the cycle time the tree was created.
func (t *Tree) FiredAt() int64 { return t.firedAt }

// ID returns a stable identifier of the root and firing time.
func (t *Tree) ID() string { return ir.GoalID(t.root, t.firedAt) }

// Leaves returns the live leaves.
func (t *Tree) Leaves() []program.Leaf { return t.leaves }

// IsSameRootConjunction reports whether literals is the same set of
// literals as the tree's root, ignoring order.
func (t *Tree) IsSameRootConjunction(literals []ir.Term) bool {
	return t.rootKey == rootKey(literals)
}

func rootKey(literals []ir.Term) string {
	keys := make([]string, 0, len(literals))
	seen := make(map[string]bool, len(literals))
	for _, l := range literals {
		k := ir.Key(l)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return strings.Join(keys, ";")
}

func (t *Tree) String() string {
	parts := make([]string, len(t.root))
	for i, l := range t.root {
		parts[i] = l.String()
	}
	return strings.Join(parts, ", ")
}

// Evaluate reduces every leaf against the view and re-expands what is
// left. A leaf reduced to nothing solves the tree. Leaves holding an
// expired timable die; a tree with no live leaf has failed.
func (t *Tree) Evaluate(v *program.View) (Status, error) {
	now := v.Now()
	seen := make(map[string]bool)
	var next []program.Leaf

	for _, leaf := range t.leaves {
		reductions, err := program.ReduceConjunction(v, leaf.Literals)
		if err != nil {
			return Pending, err
		}
		for _, r := range reductions {
			if len(r.Unresolved) == 0 {
				t.leaves = nil
				return Solved, nil
			}
			if program.HasExpiredTimable(r.Unresolved, now) {
				continue
			}
			for _, nl := range program.ExpandRuleAntecedent(v.Program(), r.Unresolved, leaf.Theta.Compose(r.Theta)) {
				if program.HasExpiredTimable(nl.Literals, now) {
					continue
				}
				k := ir.KeyAll(nl.Literals)
				if seen[k] {
					continue
				}
				seen[k] = true
				next = append(next, nl)
			}
		}
	}

	t.leaves = next
	if len(next) == 0 {
		return Failed, nil
	}
	return Pending, nil
}

// ForEachCandidateActions calls visit, leaf by leaf, with the actions that
// leaf asks to execute over [now, now+1]: its leading run of action
// literals once their windows are unified with the next transition. Leaves
// whose actions are not ground, or whose remaining comparisons become
// false, yield nothing. visit returns true to stop.
func (t *Tree) ForEachCandidateActions(now int64, p *program.Program, visit func(*program.LiteralSet) bool) {
	seen := make(map[string]bool)
	for _, leaf := range t.leaves {
		set, ok := candidateActions(leaf.Literals, now, p)
		if !ok {
			continue
		}
		k := ir.KeyAll(set.Literals())
		if seen[k] {
			continue
		}
		seen[k] = true
		if visit(set) {
			return
		}
	}
}

func candidateActions(literals []ir.Term, now int64, p *program.Program) (*program.LiteralSet, bool) {
	theta := ir.Theta{}
	var actions []ir.Timable
	for _, lit := range literals {
		tl, ok := lit.(ir.Timable)
		if !ok || !p.IsAction(tl) {
			break
		}
		next, ok := resolve.Unify([]resolve.Pair{
			{Left: tl.Start, Right: ir.Int(now)},
			{Left: tl.End, Right: ir.Int(now + 1)},
		}, theta)
		if !ok {
			break
		}
		theta = next
		actions = append(actions, tl)
	}
	if len(actions) == 0 {
		return nil, false
	}

	set := program.NewLiteralSet()
	for _, a := range actions {
		g := a.Goal.Substitute(theta)
		if !g.IsGround() {
			return nil, false
		}
		set.Add(g)
	}
	for _, lit := range literals[len(actions):] {
		lit = lit.Substitute(theta)
		if !ir.IsBooleanExpr(lit) || !lit.IsGround() {
			continue
		}
		if ok, err := ir.EvaluateBool(lit); err != nil || !ok {
			return nil, false
		}
	}
	return set, true
}

// deadline returns the earliest ground end time at or after now among the
// leaves' timables.
func (t *Tree) deadline(now int64) int64 {
	best := int64(math.MaxInt64)
	for _, leaf := range t.leaves {
		for _, lit := range leaf.Literals {
			tl, ok := ir.StripNegation(lit).(ir.Timable)
			if !ok {
				continue
			}
			if end, ok := ir.TimeValue(tl.End); ok && end >= now && end < best {
				best = end
			}
		}
	}
	return best
}

// Sort orders trees for action selection at now: earliest deadline first,
// then earliest fired, then by root. The order is total, so selection is
// deterministic.
func Sort(trees []*Tree, now int64) {
	sort.SliceStable(trees, Sorter(trees, now))
}

// Sorter returns the less function used by Sort.
func Sorter(trees []*Tree, now int64) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := trees[i], trees[j]
		if da, db := a.deadline(now), b.deadline(now); da != db {
			return da < db
		}
		if a.firedAt != b.firedAt {
			return a.firedAt < b.firedAt
		}
		return a.rootKey < b.rootKey
	}
}

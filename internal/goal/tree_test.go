package goal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/program"
)

func fireProgram() *program.Program {
	p := program.New()
	p.DeclareAction("eliminate/0")
	p.DeclareAction("escape/0")
	p.DeclareAction("notify/1")
	T1, T2 := ir.NewVar("T1"), ir.NewVar("T2")
	deal := ir.NewTimable(ir.Atom("deal_with_fire"), T1, T2)
	p.AddClause(ir.NewClause([]ir.Term{deal}, []ir.Term{ir.NewTimable(ir.Atom("eliminate"), T1, T2)}))
	p.AddClause(ir.NewClause([]ir.Term{deal}, []ir.Term{ir.NewTimable(ir.Atom("escape"), T1, T2)}))
	return p
}

func dealRoot() []ir.Term {
	return []ir.Term{ir.NewTimable(ir.Atom("deal_with_fire"), ir.NewVar("A"), ir.NewVar("B"))}
}

func collectCandidates(tree *Tree, now int64, p *program.Program) [][]string {
	var out [][]string
	tree.ForEachCandidateActions(now, p, func(set *program.LiteralSet) bool {
		out = append(out, set.Strings())
		return false
	})
	return out
}

// ============================================================================
// Expansion and candidates
// ============================================================================

func TestNewExpandsRoot(t *testing.T) {
	p := fireProgram()
	tree := New(p, dealRoot(), 1)

	assert.Len(t, tree.Leaves(), 2)
	assert.Equal(t, int64(1), tree.FiredAt())
	assert.NotEmpty(t, tree.ID())
}

func TestForEachCandidateActionsPerLeaf(t *testing.T) {
	p := fireProgram()
	tree := New(p, dealRoot(), 1)

	assert.Equal(t, [][]string{{"eliminate"}, {"escape"}}, collectCandidates(tree, 1, p))
}

func TestForEachCandidateActionsStopsOnTrue(t *testing.T) {
	p := fireProgram()
	tree := New(p, dealRoot(), 1)

	calls := 0
	tree.ForEachCandidateActions(1, p, func(*program.LiteralSet) bool {
		calls++
		return true
	})
	assert.Equal(t, 1, calls)
}

func TestForEachCandidateActionsLeadingRun(t *testing.T) {
	p := fireProgram()
	T1, T2 := ir.NewVar("T1"), ir.NewVar("T2")
	root := []ir.Term{
		ir.NewTimable(ir.Atom("eliminate"), T1, T2),
		ir.NewTimable(ir.NewFunctor("notify", ir.Atom("owner")), T1, T2),
		ir.NewTimable(ir.Atom("escape"), T2, ir.NewVar("T3")),
	}
	tree := New(p, root, 1)

	assert.Equal(t, [][]string{{"eliminate", "notify(owner)"}}, collectCandidates(tree, 4, p))
}

func TestForEachCandidateActionsChecksComparisons(t *testing.T) {
	p := fireProgram()
	T1, T2 := ir.NewVar("T1"), ir.NewVar("T2")
	root := []ir.Term{
		ir.NewTimable(ir.Atom("eliminate"), T1, T2),
		ir.NewBinary(ir.OpGt, T1, ir.Int(5)),
	}
	tree := New(p, root, 1)

	assert.Empty(t, collectCandidates(tree, 1, p))
	assert.Len(t, collectCandidates(tree, 6, p), 1)
}

func TestForEachCandidateActionsRequiresGroundActions(t *testing.T) {
	p := fireProgram()
	root := []ir.Term{ir.NewTimable(ir.NewFunctor("notify", ir.NewVar("Who")), ir.NewVar("T1"), ir.NewVar("T2"))}
	tree := New(p, root, 1)

	assert.Empty(t, collectCandidates(tree, 1, p))
}

// ============================================================================
// Evaluation
// ============================================================================

func TestEvaluatePendingThenSolved(t *testing.T) {
	p := fireProgram()
	tree := New(p, dealRoot(), 1)

	status, err := tree.Evaluate(program.NewView(p, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, Pending, status)
	assert.Len(t, tree.Leaves(), 2)

	p.ExecutedActions().Add(ir.Atom("escape"))
	status, err = tree.Evaluate(program.NewView(p, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, Solved, status)
}

func TestEvaluateFailsWhenEveryLeafExpires(t *testing.T) {
	p := fireProgram()
	tree := New(p, []ir.Term{ir.EventAt(ir.Atom("eliminate"), 1, 2)}, 1)

	status, err := tree.Evaluate(program.NewView(p, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, Pending, status)

	status, err = tree.Evaluate(program.NewView(p, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, Failed, status)
}

func TestEvaluateDischargesComparisons(t *testing.T) {
	p := fireProgram()
	tree := New(p, []ir.Term{ir.NewBinary(ir.OpLt, ir.Int(1), ir.Int(2))}, 1)

	status, err := tree.Evaluate(program.NewView(p, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, Solved, status)
}

// ============================================================================
// Root conjunction and ordering
// ============================================================================

func TestIsSameRootConjunctionIgnoresOrder(t *testing.T) {
	p := fireProgram()
	a, b := ir.Atom("a"), ir.Atom("b")
	tree := New(p, []ir.Term{a, b}, 1)

	assert.True(t, tree.IsSameRootConjunction([]ir.Term{b, a}))
	assert.True(t, tree.IsSameRootConjunction([]ir.Term{a, b, a}))
	assert.False(t, tree.IsSameRootConjunction([]ir.Term{a}))
}

func TestSortByDeadlineThenFiredAt(t *testing.T) {
	p := fireProgram()
	late := New(p, []ir.Term{ir.EventAt(ir.Atom("escape"), 5, 6)}, 1)
	soon := New(p, []ir.Term{ir.EventAt(ir.Atom("eliminate"), 3, 4)}, 2)
	open1 := New(p, []ir.Term{ir.NewTimable(ir.Atom("eliminate"), ir.NewVar("X"), ir.NewVar("Y"))}, 2)
	open2 := New(p, []ir.Term{ir.NewTimable(ir.Atom("escape"), ir.NewVar("X"), ir.NewVar("Y"))}, 1)

	trees := []*Tree{open1, late, open2, soon}
	Sort(trees, 3)

	assert.Same(t, soon, trees[0])
	assert.Same(t, late, trees[1])
	assert.Same(t, open2, trees[2])
	assert.Same(t, open1, trees[3])
}

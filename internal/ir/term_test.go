package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Groundness and variables
// ============================================================================

func TestIsGround(t *testing.T) {
	x := NewVar("X")

	assert.True(t, Int(1).IsGround())
	assert.True(t, Atom("fire").IsGround())
	assert.False(t, x.IsGround())
	assert.False(t, NewFunctor("p", Atom("a"), x).IsGround())
	assert.False(t, NewList([]Term{Int(1)}, x).IsGround())
	assert.True(t, NewList([]Term{Int(1)}, nil).IsGround())
	assert.False(t, NewTimable(Atom("fire"), x, x).IsGround())
	assert.True(t, NewBinary(OpAdd, Int(1), Int(2)).IsGround())
}

func TestVarsFirstAppearanceOrder(t *testing.T) {
	term := NewFunctor("p", NewVar("Y"), NewList([]Term{NewVar("X")}, NewVar("Y")), NewVar("Z"))
	assert.Equal(t, []string{"Y", "X", "Z"}, Vars(term))
}

func TestIsTemporalOnlyForTimable(t *testing.T) {
	assert.True(t, FluentAt(Atom("fire"), 1).IsTemporal())
	assert.False(t, Atom("fire").IsTemporal())
	assert.False(t, NewBinary(OpLt, Int(1), Int(2)).IsTemporal())
}

// ============================================================================
// Substitution
// ============================================================================

func TestSubstituteFollowsChains(t *testing.T) {
	theta := Theta{"X": NewVar("Y"), "Y": Atom("a")}
	got := NewFunctor("p", NewVar("X")).Substitute(theta)
	assert.Equal(t, "p(a)", got.String())
}

func TestSubstituteLeavesUnboundVariables(t *testing.T) {
	theta := Theta{"X": Int(1)}
	got := NewFunctor("p", NewVar("X"), NewVar("Y")).Substitute(theta)
	assert.Equal(t, "p(1, Y)", got.String())
}

func TestSubstituteGroundTermIsIdentity(t *testing.T) {
	grounds := []Term{
		Int(3),
		Str("s"),
		NewFunctor("p", Atom("a"), NewList([]Term{Int(1), Int(2)}, nil)),
		FluentAt(NewFunctor("on", Atom("light")), 4),
		NewBinary(OpGt, Int(2), Int(1)),
	}
	theta := Theta{"X": Atom("a"), "Y": Int(9)}

	for _, g := range grounds {
		assert.Equal(t, Key(g), Key(g.Substitute(theta)), g.String())
	}
}

func TestSubstituteDoesNotMutateReceiver(t *testing.T) {
	orig := NewFunctor("p", NewVar("X"))
	_ = orig.Substitute(Theta{"X": Atom("a")})
	assert.Equal(t, "p(X)", orig.String())
}

func TestSubstituteOpenListTail(t *testing.T) {
	l := NewList([]Term{Int(1)}, NewVar("T"))
	got := l.Substitute(Theta{"T": NewList([]Term{Int(2), Int(3)}, nil)})

	list, ok := got.(List)
	require.True(t, ok)
	assert.True(t, list.IsClosed())
	assert.Len(t, list.Flatten(), 3)
	assert.Equal(t, "[1, 2, 3]", list.String())
}

// ============================================================================
// Timables and negation
// ============================================================================

func TestTimableHasExpired(t *testing.T) {
	assert.True(t, FluentAt(Atom("fire"), 2).HasExpired(3))
	assert.False(t, FluentAt(Atom("fire"), 3).HasExpired(3))
	assert.False(t, NewTimable(Atom("fire"), NewVar("T"), NewVar("T")).HasExpired(100))
	assert.False(t, EventAt(Atom("go"), 2, 3).HasExpired(3))
	assert.True(t, EventAt(Atom("go"), 2, 3).HasExpired(4))
	assert.True(t, NewTimable(Atom("go"), Int(1), NewVar("T")).HasExpired(3))
	assert.False(t, NewTimable(Atom("go"), Int(2), NewVar("T")).HasExpired(3))
}

func TestStripNegation(t *testing.T) {
	inner := FluentAt(Atom("fire"), 1)
	neg := NewFunctor(OpNot, NewFunctor(OpNot, inner))

	assert.True(t, IsNegation(neg))
	assert.Equal(t, Key(inner), Key(StripNegation(neg)))
	assert.Equal(t, Key(inner), Key(StripNegation(inner)))
}

// ============================================================================
// Theta
// ============================================================================

func TestThetaCompose(t *testing.T) {
	a := Theta{"X": NewVar("Y")}
	b := Theta{"Y": Int(2), "Z": Int(3)}

	c := a.Compose(b)
	assert.Equal(t, "2", c["X"].String())
	assert.Equal(t, "2", c["Y"].String())
	assert.Equal(t, "3", c["Z"].String())
	// inputs untouched
	assert.Equal(t, "Y", a["X"].String())
	assert.Len(t, a, 1)
}

func TestThetaRestrict(t *testing.T) {
	theta := Theta{"X": NewVar("Y"), "Y": Atom("a"), "Z": Int(1)}
	got := theta.Restrict([]string{"X", "W"})
	assert.Equal(t, "{X: a}", got.String())
}

func TestClauseString(t *testing.T) {
	rule := NewClause(
		[]Term{NewFunctor("q", NewVar("X"))},
		[]Term{NewFunctor("p", NewVar("X"))},
	)
	assert.Equal(t, "p(X) -> q(X).", rule.String())
	assert.Equal(t, "p(a).", NewClause([]Term{NewFunctor("p", Atom("a"))}, nil).String())
	assert.Equal(t, []string{"X"}, rule.Vars())
}

func TestRenameThetaFresh(t *testing.T) {
	a := RenameTheta([]string{"X", "Y"}, FreshFactPrefix)
	b := RenameTheta([]string{"X"}, FreshFactPrefix)

	require.Len(t, a, 2)
	assert.NotEqual(t, Key(a["X"]), Key(a["Y"]))
	assert.NotEqual(t, Key(a["X"]), Key(b["X"]))
	assert.True(t, IsFresh(a["X"].(Var).Name))
}

package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/parse"
)

func unifyStrings(t *testing.T, a, b string) (ir.Theta, bool) {
	t.Helper()
	return UnifyTerms(parse.MustTerm(a), parse.MustTerm(b), ir.Theta{})
}

// ============================================================================
// Soundness
// ============================================================================

func TestUnifyGroundTermWithItselfIsIdentity(t *testing.T) {
	grounds := []string{
		"a",
		"42",
		"\"text\"",
		"p(a, 1, [x, y])",
		"[]",
		"q(f(g(h)), -2.5)",
	}

	for _, g := range grounds {
		t.Run(g, func(t *testing.T) {
			theta, ok := unifyStrings(t, g, g)
			require.True(t, ok)
			assert.Empty(t, theta)
		})
	}
}

func TestUnifyFailsOnShapeMismatch(t *testing.T) {
	tests := []struct{ a, b string }{
		{"p(a)", "q(a)"},
		{"p(a)", "p(a, b)"},
		{"a", "b"},
		{"1", "2"},
		{"\"a\"", "a"},
		{"p(a)", "1"},
		{"[a]", "p(a)"},
		{"[a, b]", "[a]"},
		{"[]", "[a]"},
		{"X + 1", "X - 1"},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			_, ok := unifyStrings(t, tt.a, tt.b)
			assert.False(t, ok)
		})
	}
}

func TestUnifyBindsVariables(t *testing.T) {
	theta, ok := unifyStrings(t, "p(X, b, Z)", "p(a, Y, f(Y))")
	require.True(t, ok)

	got := parse.MustTerm("p(X, Y, Z)").Substitute(theta)
	assert.Equal(t, "p(a, b, f(b))", got.String())
}

func TestUnifyNumericConstants(t *testing.T) {
	_, ok := unifyStrings(t, "1", "1.0")
	assert.True(t, ok)
}

func TestUnifyThreadsThetaLeftToRight(t *testing.T) {
	pairs := []Pair{
		{Left: parse.MustTerm("X"), Right: parse.MustTerm("a")},
		{Left: parse.MustTerm("p(X)"), Right: parse.MustTerm("p(b)")},
	}
	_, ok := Unify(pairs, ir.Theta{})
	assert.False(t, ok)
}

func TestUnifyDoesNotMutateInput(t *testing.T) {
	in := ir.Theta{"X": ir.Atom("a")}
	out, ok := UnifyTerms(parse.MustTerm("Y"), parse.MustTerm("b"), in)
	require.True(t, ok)

	assert.Len(t, in, 1)
	assert.Len(t, out, 2)
}

func TestUnifyRespectsExistingBindings(t *testing.T) {
	in := ir.Theta{"X": ir.Atom("a")}
	_, ok := UnifyTerms(parse.MustTerm("X"), parse.MustTerm("b"), in)
	assert.False(t, ok)

	_, ok = UnifyTerms(parse.MustTerm("X"), parse.MustTerm("a"), in)
	assert.True(t, ok)
}

// ============================================================================
// Lists
// ============================================================================

func TestUnifyOpenListTail(t *testing.T) {
	theta, ok := unifyStrings(t, "[a | T]", "[a, b, c]")
	require.True(t, ok)
	assert.Equal(t, "[b, c]", parse.MustTerm("T").Substitute(theta).String())
}

func TestUnifyOpenListWithEmptyRemainder(t *testing.T) {
	theta, ok := unifyStrings(t, "[a, b | T]", "[a, b]")
	require.True(t, ok)
	assert.Equal(t, "[]", parse.MustTerm("T").Substitute(theta).String())
}

func TestUnifyTwoOpenLists(t *testing.T) {
	theta, ok := unifyStrings(t, "[a | T1]", "[X, b | T2]")
	require.True(t, ok)
	assert.Equal(t, "[b|T2]", parse.MustTerm("T1").Substitute(theta).String())
	assert.Equal(t, "a", parse.MustTerm("X").Substitute(theta).String())
}

// ============================================================================
// Occurs check
// ============================================================================

func TestUnifyOccursCheckRejects(t *testing.T) {
	tests := []struct{ a, b string }{
		{"X", "f(X)"},
		{"X", "[a | X]"},
		{"p(X, X)", "p(Y, f(Y))"},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			_, ok := unifyStrings(t, tt.a, tt.b)
			assert.False(t, ok)
		})
	}
}

func TestUnifyVariableWithItself(t *testing.T) {
	theta, ok := unifyStrings(t, "X", "X")
	require.True(t, ok)
	assert.Empty(t, theta)
}

// ============================================================================
// Timables and expressions
// ============================================================================

func TestUnifyTimables(t *testing.T) {
	a := ir.NewTimable(ir.Atom("fire"), ir.NewVar("T"), ir.NewVar("T"))
	b := ir.FluentAt(ir.Atom("fire"), 3)

	theta, ok := UnifyTerms(a, b, ir.Theta{})
	require.True(t, ok)
	assert.Equal(t, "3", theta["T"].String())

	// A fluent at an instant never unifies with a proper interval.
	_, ok = UnifyTerms(a, ir.EventAt(ir.Atom("fire"), 3, 4), ir.Theta{})
	assert.False(t, ok)

	// A timable never unifies with its bare goal.
	_, ok = UnifyTerms(b, ir.Atom("fire"), ir.Theta{})
	assert.False(t, ok)
}

func TestUnifyExpressions(t *testing.T) {
	theta, ok := unifyStrings(t, "X > 3", "5 > Y")
	require.True(t, ok)
	assert.Equal(t, "5", theta["X"].String())
	assert.Equal(t, "3", theta["Y"].String())
}

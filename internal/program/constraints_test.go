package program

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/parse"
)

func TestCheckConstraintsFluents(t *testing.T) {
	p := fireProgram()
	T := ir.NewVar("T")
	p.AddConstraint(ir.NewClause(nil, []ir.Term{fluent("fire", T), fluent("water", T)}))

	p.State().Add(ir.Atom("fire"))
	ok, err := CheckConstraints(NewView(p, 1, 1))
	require.NoError(t, err)
	assert.True(t, ok)

	p.State().Add(ir.Atom("water"))
	ok, err = CheckConstraints(NewView(p, 1, 1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckConstraintsCandidateActions(t *testing.T) {
	p := fireProgram()
	T1, T2 := ir.NewVar("T1"), ir.NewVar("T2")
	p.AddConstraint(ir.NewClause(nil, []ir.Term{
		ir.NewTimable(ir.Atom("ignite"), T1, T2),
		ir.NewTimable(ir.Atom("refill"), T1, T2),
	}))

	clone := p.Clone()
	clone.ExecutedActions().Add(ir.Atom("ignite"))
	ok, err := CheckConstraints(NewView(clone, 2, 2))
	require.NoError(t, err)
	assert.True(t, ok)

	clone.ExecutedActions().Add(ir.Atom("refill"))
	ok, err = CheckConstraints(NewView(clone, 2, 2))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 0, p.ExecutedActions().Len(), "checks run on the clone only")
}

func TestCheckConstraintsTimelessCondition(t *testing.T) {
	p := New()
	p.DeclareFluent("at/1")
	p.AddFact(parse.MustTerm("forbidden(lab)"))
	X, T := ir.NewVar("X"), ir.NewVar("T")
	p.AddConstraint(ir.NewClause(nil, []ir.Term{
		ir.NewTimable(ir.NewFunctor("at", X), T, T),
		ir.NewFunctor("forbidden", X),
	}))

	p.State().Add(parse.MustTerm("at(home)"))
	ok, err := CheckConstraints(NewView(p, 1, 1))
	require.NoError(t, err)
	assert.True(t, ok)

	p.State().Add(parse.MustTerm("at(lab)"))
	ok, err = CheckConstraints(NewView(p, 1, 1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckConstraintsNoConstraints(t *testing.T) {
	ok, err := CheckConstraints(NewView(New(), 1, 1))
	require.NoError(t, err)
	assert.True(t, ok)
}

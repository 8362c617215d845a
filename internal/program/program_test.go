package program

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/parse"
)

func TestProgramCloneIsIndependent(t *testing.T) {
	p := fireProgram()
	p.State().Add(ir.Atom("fire"))
	p.AddRule(clause("p(X)", "q(X)"))

	c := p.Clone()
	c.State().Add(ir.Atom("water"))
	c.ExecutedActions().Add(ir.Atom("ignite"))
	c.Facts().Add(parse.MustTerm("extra(fact)"))
	c.SetRules(nil)
	c.DeclareFluent("smoke/0")
	c.AddConstraint(clause("fire", "false"))

	assert.Equal(t, []string{"fire"}, p.State().Strings())
	assert.Equal(t, 0, p.ExecutedActions().Len())
	assert.False(t, p.Facts().Contains(parse.MustTerm("extra(fact)")))
	assert.Len(t, p.Rules(), 1)
	assert.False(t, p.IsFluent(ir.Atom("smoke")))
	assert.Empty(t, p.Constraints())
}

func TestProgramClassification(t *testing.T) {
	p := fireProgram()

	assert.True(t, p.IsFluent(ir.Atom("fire")))
	assert.True(t, p.IsFluent(ir.FluentAt(ir.Atom("fire"), 1)))
	assert.True(t, p.IsAction(ir.Atom("eliminate")))
	assert.False(t, p.IsAction(ir.Atom("fire")))
	assert.True(t, p.IsTimable(ir.Atom("refill")))
	assert.True(t, p.IsTimable(ir.EventAt(ir.Atom("unknown"), 1, 2)))
	assert.False(t, p.IsTimable(parse.MustTerm("adjacent(a, b)")))
}

func TestProgramAddFactRoutesNonGround(t *testing.T) {
	p := New()
	p.AddFact(parse.MustTerm("p(a)"))
	p.AddFact(parse.MustTerm("p(X)"))
	p.AddClause(ir.NewClause([]ir.Term{parse.MustTerm("q(b)")}, nil))

	assert.Equal(t, []string{"p(a)", "q(b)"}, p.Facts().Strings())
	assert.Len(t, p.Clauses(), 1)
}

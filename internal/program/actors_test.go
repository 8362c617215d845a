package program

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/parse"
)

func fireProgram() *Program {
	p := New()
	p.DeclareFluent("fire/0")
	p.DeclareFluent("water/0")
	p.DeclareAction("ignite/0")
	p.DeclareAction("eliminate/0")
	p.DeclareAction("refill/0")
	p.AddFact(parse.MustTerm("initiates(ignite, fire)"))
	p.AddFact(parse.MustTerm("terminates(eliminate, fire)"))
	p.AddClause(clause("fire", "initiates(refill, water)"))
	return p
}

func TestFluentActorsInitiateAndTerminate(t *testing.T) {
	p := fireProgram()
	state := NewLiteralSet()

	require.NoError(t, UpdateStateWithFluentActors(p, NewLiteralSet(ir.Atom("ignite")), state))
	assert.Equal(t, []string{"fire"}, state.Strings())

	require.NoError(t, UpdateStateWithFluentActors(p, NewLiteralSet(ir.Atom("eliminate")), state))
	assert.Empty(t, state.Strings())
}

func TestFluentActorsConditionsUsePreUpdateState(t *testing.T) {
	p := fireProgram()
	state := NewLiteralSet(ir.Atom("fire"))

	// eliminate ends fire, but refill's condition sees fire still holding.
	actions := NewLiteralSet(ir.Atom("eliminate"), ir.Atom("refill"))
	require.NoError(t, UpdateStateWithFluentActors(p, actions, state))
	assert.Equal(t, []string{"water"}, state.Strings())
}

func TestFluentActorsTerminationsBeforeInitiations(t *testing.T) {
	p := New()
	p.DeclareFluent("lamp/0")
	p.AddFact(parse.MustTerm("initiates(toggle, lamp)"))
	p.AddFact(parse.MustTerm("terminates(toggle, lamp)"))
	state := NewLiteralSet(ir.Atom("lamp"))

	require.NoError(t, UpdateStateWithFluentActors(p, NewLiteralSet(ir.Atom("toggle")), state))
	assert.Equal(t, []string{"lamp"}, state.Strings())
}

func TestFluentActorsNonGroundTermination(t *testing.T) {
	p := New()
	p.DeclareFluent("at/1")
	p.AddClause(ir.NewClause(
		[]ir.Term{parse.MustTerm("terminates(leave, at(X))")}, nil,
	))
	state := NewLiteralSet(parse.MustTerm("at(home)"), parse.MustTerm("at(work)"), ir.Atom("tired"))

	require.NoError(t, UpdateStateWithFluentActors(p, NewLiteralSet(ir.Atom("leave")), state))
	assert.Equal(t, []string{"tired"}, state.Strings())
}

func TestFluentActorsAcceptTimedActions(t *testing.T) {
	p := fireProgram()
	state := NewLiteralSet()

	require.NoError(t, UpdateStateWithFluentActors(p, NewLiteralSet(ir.EventAt(ir.Atom("ignite"), 1, 2)), state))
	assert.Equal(t, []string{"fire"}, state.Strings())
}

func TestFluentActorsDoNotTouchProgramState(t *testing.T) {
	p := fireProgram()
	state := p.State().Clone()

	require.NoError(t, UpdateStateWithFluentActors(p, NewLiteralSet(ir.Atom("ignite")), state))
	assert.Equal(t, 0, p.State().Len())
	assert.Equal(t, 1, state.Len())
}

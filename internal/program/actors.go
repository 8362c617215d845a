package program

import (
	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/resolve"
)

// Fluent actor predicates. A definition initiates(A, F) <- Body makes
// action A start fluent F when Body holds; terminates(A, F) ends it.
const (
	Initiates  = "initiates"
	Terminates = "terminates"
)

var actorFluent = ir.NewVar("$F")

// UpdateStateWithFluentActors applies the effects of actions to state in
// place. Conditions are evaluated against the state before the update; all
// terminations are applied before any initiation, so an action that both
// ends and starts the same fluent leaves it holding.
func UpdateStateWithFluentActors(p *Program, actions, state *LiteralSet) error {
	if actions.Len() == 0 {
		return nil
	}
	v := NewView(p, 0, 0).WithState(state.Clone())

	terminated, err := actorEffects(v, Terminates, actions)
	if err != nil {
		return err
	}
	initiated, err := actorEffects(v, Initiates, actions)
	if err != nil {
		return err
	}

	for _, f := range terminated {
		for _, held := range state.Literals() {
			if _, ok := resolve.UnifyTerms(f, held, ir.Theta{}); ok {
				state.Remove(held)
			}
		}
	}
	for _, f := range initiated {
		if f.IsGround() {
			state.Add(f)
		}
	}
	return nil
}

func actorEffects(v *View, actor string, actions *LiteralSet) ([]ir.Term, error) {
	var out []ir.Term
	for _, a := range actions.Literals() {
		if t, ok := a.(ir.Timable); ok {
			a = t.Goal
		}
		answers, err := v.Query(ir.NewFunctor(actor, a, actorFluent))
		if err != nil {
			return nil, err
		}
		for _, theta := range answers {
			if f, ok := theta[actorFluent.Name]; ok {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

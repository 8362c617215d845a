package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/lps/internal/program"
)

// selectActions picks at most one candidate action set per goal tree, in
// the trees' sorted order, such that every chosen set passes the
// constraints together with the sets chosen before it.
//
// For each candidate of a tree the pre-check runs the constraints with the
// candidate added to the actions executing over [now, now+1]; the
// post-check runs them against the state the candidate's fluent actors
// produce, with no action executing. The first candidate passing both is
// committed and the search moves on to the next tree. A tree without a
// passing candidate is skipped. The result is never nil.
func (e *Engine) selectActions(now int64) (*program.LiteralSet, error) {
	chosen, err := e.selectFrom(0, e.prog, now, nil)
	if err != nil {
		return nil, err
	}
	out := program.NewLiteralSet()
	for _, set := range chosen {
		out.AddAll(set)
	}
	return out, nil
}

func (e *Engine) selectFrom(l int, soFar *program.Program, now int64, chosen []*program.LiteralSet) ([]*program.LiteralSet, error) {
	if l >= len(e.goals) {
		return chosen, nil
	}

	var (
		result []*program.LiteralSet
		found  bool
		err    error
	)
	e.goals[l].ForEachCandidateActions(now, e.prog, func(candidate *program.LiteralSet) bool {
		pre := soFar.Clone()
		pre.ExecutedActions().AddAll(candidate)

		var ok bool
		if ok, err = program.CheckConstraints(program.NewView(pre, now, now)); err != nil || !ok {
			return err != nil
		}

		post := soFar.Clone()
		post.SetExecutedActions(program.NewLiteralSet())
		state := post.State().Clone()
		if err = program.UpdateStateWithFluentActors(post, candidate, state); err != nil {
			return true
		}
		post.SetState(state)
		if ok, err = program.CheckConstraints(program.NewView(post, now+1, now+1)); err != nil || !ok {
			return err != nil
		}

		found = true
		result, err = e.selectFrom(l+1, pre, now, append(slices.Clip(chosen), candidate))
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("select actions for goal %s: %w", e.goals[l], err)
	}
	if found {
		return result, nil
	}
	return e.selectFrom(l+1, soFar, now, chosen)
}

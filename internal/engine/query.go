package engine

import (
	"fmt"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/program"
)

// QueryKind selects what Query answers from.
type QueryKind int

const (
	// QueryProgram solves against the whole program at the current time.
	QueryProgram QueryKind = iota
	// QueryFluent matches the fluents holding now.
	QueryFluent
	// QueryAction matches the actions executed in the last transition.
	QueryAction
	// QueryObservation matches the observations of the last transition.
	QueryObservation
)

func (k QueryKind) String() string {
	switch k {
	case QueryProgram:
		return "program"
	case QueryFluent:
		return "fluent"
	case QueryAction:
		return "action"
	case QueryObservation:
		return "observation"
	default:
		return fmt.Sprintf("QueryKind(%d)", int(k))
	}
}

// ParseQueryKind maps a kind name to a QueryKind.
func ParseQueryKind(s string) (QueryKind, error) {
	for _, k := range []QueryKind{QueryProgram, QueryFluent, QueryAction, QueryObservation} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, &ConfigurationError{Code: ErrCodeInvalidValue, Param: "query kind", Message: fmt.Sprintf("unknown kind %q", s)}
}

// Query returns the substitutions under which lit holds.
//
// A failing program query halts the engine, raises EventError and returns
// no answers along with the error.
func (e *Engine) Query(lit ir.Term, kind QueryKind) ([]ir.Theta, error) {
	e.mu.Lock()
	answers, err := e.queryLocked(lit, kind)
	if err != nil {
		e.haltLocked()
		e.raise(Event{Type: EventError, Err: err})
		e.finishLocked()
	}
	e.mu.Unlock()
	e.flush()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", lit, err)
	}
	return answers, nil
}

func (e *Engine) queryLocked(lit ir.Term, kind QueryKind) ([]ir.Theta, error) {
	switch kind {
	case QueryFluent:
		return matches(e.prog.State(), lit), nil
	case QueryAction:
		return matches(e.lastActions, lit), nil
	case QueryObservation:
		return matches(e.lastObservations, lit), nil
	case QueryProgram:
		return program.NewView(e.prog, e.currentTime, e.currentTime-1).Query(lit)
	default:
		return nil, &ConfigurationError{Code: ErrCodeInvalidValue, Param: "query kind", Message: kind.String()}
	}
}

func matches(set *program.LiteralSet, lit ir.Term) []ir.Theta {
	found := set.Unifies(lit)
	out := make([]ir.Theta, 0, len(found))
	for _, m := range found {
		out = append(out, m.Theta)
	}
	return out
}

// LastCycleActions returns the actions executed in the last transition.
func (e *Engine) LastCycleActions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return literalStrings(e.lastActions)
}

// LastCycleObservations returns the observations of the last transition.
func (e *Engine) LastCycleObservations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return literalStrings(e.lastObservations)
}

// ActiveFluents returns the fluents holding at the current time.
func (e *Engine) ActiveFluents() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return literalStrings(e.prog.State())
}

// TimelessFacts returns the program's facts.
func (e *Engine) TimelessFacts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return literalStrings(e.prog.Facts())
}

func literalStrings(set *program.LiteralSet) []string {
	if set == nil {
		return []string{}
	}
	out := set.Strings()
	if out == nil {
		return []string{}
	}
	return out
}

package program

import "github.com/roach88/lps/internal/ir"

// View is a program seen at a point in time.
//
// State fluents hold at Now. Executed actions happen over
// [ActionStart, ActionStart+1]. Rule processing looks at the actions of the
// previous transition (ActionStart = Now-1); the action-selection pre-check
// looks at candidate actions for the next one (ActionStart = Now).
type View struct {
	prog        *Program
	state       *LiteralSet
	now         int64
	actionStart int64
}

// NewView creates a view of p.
func NewView(p *Program, now, actionStart int64) *View {
	return &View{prog: p, state: p.state, now: now, actionStart: actionStart}
}

// WithState returns a copy of the view that reads fluents from s instead of
// the program state.
func (v *View) WithState(s *LiteralSet) *View {
	cp := *v
	cp.state = s
	return &cp
}

// Program returns the viewed program.
func (v *View) Program() *Program { return v.prog }

// Now returns the time fluents are read at.
func (v *View) Now() int64 { return v.now }

// ActionStart returns the start of the executed actions' window.
func (v *View) ActionStart() int64 { return v.actionStart }

// Known returns every ground literal the view knows to hold: timeless
// facts, state fluents at Now and executed actions over their window.
func (v *View) Known() []ir.Term {
	out := v.prog.facts.Literals()
	for _, f := range v.state.Literals() {
		out = append(out, ir.FluentAt(f, v.now))
	}
	for _, a := range v.prog.executed.Literals() {
		if _, ok := a.(ir.Timable); ok {
			out = append(out, a)
			continue
		}
		out = append(out, ir.EventAt(a, v.actionStart, v.actionStart+1))
	}
	return out
}

package program

import (
	"slices"

	"github.com/roach88/lps/internal/ir"
)

// Declarations records which predicates are fluents, actions and events.
// Ids are name/arity of the literal without its time arguments.
type Declarations struct {
	Fluents map[string]bool
	Actions map[string]bool
	Events  map[string]bool
}

func newDeclarations() *Declarations {
	return &Declarations{
		Fluents: make(map[string]bool),
		Actions: make(map[string]bool),
		Events:  make(map[string]bool),
	}
}

func (d *Declarations) clone() *Declarations {
	out := newDeclarations()
	for k := range d.Fluents {
		out.Fluents[k] = true
	}
	for k := range d.Actions {
		out.Actions[k] = true
	}
	for k := range d.Events {
		out.Events[k] = true
	}
	return out
}

// Program is the live knowledge base of an LPS run.
//
// The engine exclusively owns one Program. Hypothetical checks run on
// clones: Clone copies every mutable container, so a clone can be changed
// freely without affecting the original.
type Program struct {
	facts       *LiteralSet
	clauses     []ir.Clause
	rules       []ir.Clause
	constraints []ir.Clause
	state       *LiteralSet
	executed    *LiteralSet
	decls       *Declarations
	builtins    *Builtins
	maxDepth    int
}

// New returns an empty program with the standard builtins.
func New() *Program {
	return &Program{
		facts:    NewLiteralSet(),
		state:    NewLiteralSet(),
		executed: NewLiteralSet(),
		decls:    newDeclarations(),
		builtins: NewBuiltins(),
		maxDepth: DefaultMaxQueryDepth,
	}
}

// ============================================================================
// Construction
// ============================================================================

// AddFact stores a timeless fact. Ground facts go to the fact set, others
// are kept as body-less clauses and answered by unification.
func (p *Program) AddFact(fact ir.Term) {
	if fact.IsGround() {
		p.facts.Add(fact)
		return
	}
	p.clauses = append(p.clauses, ir.NewClause([]ir.Term{fact}, nil))
}

// AddClause stores a definition "body -> head" with a single head literal.
// Facts (empty body) are routed through AddFact.
func (p *Program) AddClause(c ir.Clause) {
	if c.IsFact() && len(c.Head) == 1 {
		p.AddFact(c.Head[0])
		return
	}
	p.clauses = append(p.clauses, c)
}

// AddRule appends a reactive rule.
func (p *Program) AddRule(c ir.Clause) { p.rules = append(p.rules, c) }

// AddConstraint appends an integrity constraint. Only the body matters: the
// constraint is violated whenever its body holds.
func (p *Program) AddConstraint(c ir.Clause) { p.constraints = append(p.constraints, c) }

// DeclareFluent marks name/arity as a fluent.
func (p *Program) DeclareFluent(id string) { p.decls.Fluents[id] = true }

// DeclareAction marks name/arity as an action.
func (p *Program) DeclareAction(id string) { p.decls.Actions[id] = true }

// DeclareEvent marks name/arity as an event.
func (p *Program) DeclareEvent(id string) { p.decls.Events[id] = true }

// SetMaxQueryDepth bounds the definition chain followed by queries.
func (p *Program) SetMaxQueryDepth(depth int) {
	if depth > 0 {
		p.maxDepth = depth
	}
}

// ============================================================================
// Accessors
// ============================================================================

// Facts returns the ground timeless facts.
func (p *Program) Facts() *LiteralSet { return p.facts }

// Clauses returns the definitions, including fluent actors and non-ground
// facts. The returned slice is a copy.
func (p *Program) Clauses() []ir.Clause { return slices.Clone(p.clauses) }

// SetClauses replaces the definitions.
func (p *Program) SetClauses(clauses []ir.Clause) { p.clauses = slices.Clone(clauses) }

// Rules returns the live reactive rules. The returned slice is a copy.
func (p *Program) Rules() []ir.Clause { return slices.Clone(p.rules) }

// SetRules replaces the live rules.
func (p *Program) SetRules(rules []ir.Clause) { p.rules = slices.Clone(rules) }

// Constraints returns the integrity constraints.
func (p *Program) Constraints() []ir.Clause { return slices.Clone(p.constraints) }

// SetConstraints replaces the integrity constraints.
func (p *Program) SetConstraints(cs []ir.Clause) { p.constraints = slices.Clone(cs) }

// State returns the current fluents as bare goals.
func (p *Program) State() *LiteralSet { return p.state }

// SetState replaces the current fluents.
func (p *Program) SetState(s *LiteralSet) { p.state = s }

// ExecutedActions returns the actions and observations executed in the
// transition the program is currently looking at.
func (p *Program) ExecutedActions() *LiteralSet { return p.executed }

// SetExecutedActions replaces the executed set.
func (p *Program) SetExecutedActions(s *LiteralSet) { p.executed = s }

// Builtins returns the builtin table.
func (p *Program) Builtins() *Builtins { return p.builtins }

// SetBuiltins replaces the builtin table.
func (p *Program) SetBuiltins(b *Builtins) { p.builtins = b }

// Declarations returns the fluent, action and event declarations.
func (p *Program) Declarations() *Declarations { return p.decls }

// Clone returns an independent snapshot.
func (p *Program) Clone() *Program {
	return &Program{
		facts:       p.facts.Clone(),
		clauses:     slices.Clone(p.clauses),
		rules:       slices.Clone(p.rules),
		constraints: slices.Clone(p.constraints),
		state:       p.state.Clone(),
		executed:    p.executed.Clone(),
		decls:       p.decls.clone(),
		builtins:    p.builtins.Clone(),
		maxDepth:    p.maxDepth,
	}
}

// ============================================================================
// Classification
// ============================================================================

// IsFluent reports whether lit is a declared fluent. Timables are judged by
// their goal.
func (p *Program) IsFluent(lit ir.Term) bool { return p.declared(lit, p.decls.Fluents) }

// IsAction reports whether lit is a declared action.
func (p *Program) IsAction(lit ir.Term) bool { return p.declared(lit, p.decls.Actions) }

// IsEvent reports whether lit is a declared event.
func (p *Program) IsEvent(lit ir.Term) bool { return p.declared(lit, p.decls.Events) }

// IsTimable reports whether lit carries a time window, either as a Timable
// or as a declared fluent, action or event.
func (p *Program) IsTimable(lit ir.Term) bool {
	if lit.IsTemporal() {
		return true
	}
	return p.IsFluent(lit) || p.IsAction(lit) || p.IsEvent(lit)
}

func (p *Program) declared(lit ir.Term, ids map[string]bool) bool {
	if t, ok := lit.(ir.Timable); ok {
		lit = t.Goal
	}
	f, ok := lit.(ir.Functor)
	return ok && ids[f.ID()]
}

// Query answers lit against the program at time zero. Timeless facts,
// definitions and builtins are consulted; see View.Query for timed queries.
func (p *Program) Query(lit ir.Term) ([]ir.Theta, error) {
	return NewView(p, 0, 0).Query(lit)
}

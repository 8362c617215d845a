package ir

import (
	"math"
	"strconv"
	"strings"
)

// Kind discriminates the closed set of term variants.
type Kind uint8

const (
	KindVar Kind = iota + 1
	KindConst
	KindFunctor
	KindList
	KindBinary
	KindUnary
	KindTimable
)

func (k Kind) String() string {
	switch k {
	case KindVar:
		return "var"
	case KindConst:
		return "const"
	case KindFunctor:
		return "functor"
	case KindList:
		return "list"
	case KindBinary:
		return "binary"
	case KindUnary:
		return "unary"
	case KindTimable:
		return "timable"
	default:
		return "unknown"
	}
}

// Term is a sealed interface over the term variants.
// Only Var, Const, Functor, List, BinaryOp, UnaryOp and Timable implement it.
type Term interface {
	Kind() Kind

	// IsGround reports whether the term contains no Var transitively.
	IsGround() bool

	// IsTemporal reports whether the term carries a time window.
	IsTemporal() bool

	// Substitute applies theta recursively. Bound variables are replaced by
	// their fully substituted binding; unbound variables are left untouched.
	Substitute(theta Theta) Term

	String() string

	collectVars(seen map[string]bool, out *[]string)
}

// Vars returns the variable names of t in order of first appearance.
func Vars(terms ...Term) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range terms {
		if t != nil {
			t.collectVars(seen, &out)
		}
	}
	return out
}

// ============================================================================
// Var
// ============================================================================

// Var is a logic variable. Names starting with an uppercase letter or '_'
// come from source text; the engine introduces '$'-prefixed fresh names.
type Var struct {
	Name string
}

// NewVar creates a variable.
func NewVar(name string) Var { return Var{Name: name} }

func (Var) Kind() Kind { return KindVar }
func (Var) IsGround() bool { return false }
func (Var) IsTemporal() bool { return false }
func (v Var) String() string { return v.Name }

func (v Var) Substitute(theta Theta) Term {
	bound, ok := theta[v.Name]
	if !ok {
		return v
	}
	// Bindings may chain (X -> Y, Y -> a). The unifier rejects cyclic
	// bindings, so this terminates.
	if bv, isVar := bound.(Var); isVar && bv.Name == v.Name {
		return v
	}
	return bound.Substitute(theta)
}

func (v Var) collectVars(seen map[string]bool, out *[]string) {
	if !seen[v.Name] {
		seen[v.Name] = true
		*out = append(*out, v.Name)
	}
}

// ============================================================================
// Const
// ============================================================================

// ConstKind identifies the value held by a Const.
type ConstKind uint8

const (
	ConstString ConstKind = iota + 1
	ConstInt
	ConstFloat
)

// Const is a string or numeric constant. Symbolic atoms such as `fire` are
// zero-arity Functors, not constants.
type Const struct {
	kind ConstKind
	text string
	i    int64
	f    float64
}

// Str creates a string constant.
func Str(s string) Const { return Const{kind: ConstString, text: s} }

// Int creates an integer constant.
func Int(n int64) Const { return Const{kind: ConstInt, i: n} }

// Float creates a float constant.
func Float(f float64) Const { return Const{kind: ConstFloat, f: f} }

func (Const) Kind() Kind { return KindConst }
func (Const) IsGround() bool { return true }
func (Const) IsTemporal() bool { return false }
func (c Const) Substitute(Theta) Term { return c }
func (Const) collectVars(map[string]bool, *[]string) {}

// ConstKind returns the kind of value held.
func (c Const) ConstKind() ConstKind { return c.kind }

// IsNumber reports whether c holds an int or a float.
func (c Const) IsNumber() bool { return c.kind == ConstInt || c.kind == ConstFloat }

// Text returns the string value. Empty for numbers.
func (c Const) Text() string { return c.text }

// Float64 returns the numeric value as float64.
func (c Const) Float64() (float64, bool) {
	switch c.kind {
	case ConstInt:
		return float64(c.i), true
	case ConstFloat:
		return c.f, true
	}
	return 0, false
}

// Int64 returns the value as int64 when it is integral.
func (c Const) Int64() (int64, bool) {
	switch c.kind {
	case ConstInt:
		return c.i, true
	case ConstFloat:
		if c.f == math.Trunc(c.f) && !math.IsInf(c.f, 0) {
			return int64(c.f), true
		}
	}
	return 0, false
}

// Equal compares constants. Numbers compare numerically, so Int(1) equals
// Float(1.0).
func (c Const) Equal(o Const) bool {
	if c.IsNumber() && o.IsNumber() {
		if c.kind == ConstInt && o.kind == ConstInt {
			return c.i == o.i
		}
		a, _ := c.Float64()
		b, _ := o.Float64()
		return a == b
	}
	return c.kind == o.kind && c.text == o.text
}

func (c Const) String() string {
	switch c.kind {
	case ConstInt:
		return strconv.FormatInt(c.i, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.f, 'g', -1, 64)
	default:
		return strconv.Quote(c.text)
	}
}

// ============================================================================
// Functor
// ============================================================================

// Functor is a compound term name(args...). Zero-arity functors are atoms.
type Functor struct {
	Name string
	Args []Term
}

// NewFunctor creates a functor. The args slice is copied.
func NewFunctor(name string, args ...Term) Functor {
	var cp []Term
	if len(args) > 0 {
		cp = make([]Term, len(args))
		copy(cp, args)
	}
	return Functor{Name: name, Args: cp}
}

// Atom creates a zero-arity functor.
func Atom(name string) Functor { return Functor{Name: name} }

func (Functor) Kind() Kind { return KindFunctor }
func (Functor) IsTemporal() bool { return false }

// Arity returns the number of arguments.
func (f Functor) Arity() int { return len(f.Args) }

// ID returns the predicate indicator "name/arity".
func (f Functor) ID() string { return PredicateID(f.Name, len(f.Args)) }

func (f Functor) IsGround() bool {
	for _, a := range f.Args {
		if !a.IsGround() {
			return false
		}
	}
	return true
}

func (f Functor) Substitute(theta Theta) Term {
	if len(f.Args) == 0 || len(theta) == 0 {
		return f
	}
	return Functor{Name: f.Name, Args: substituteAll(f.Args, theta)}
}

func (f Functor) String() string {
	if len(f.Args) == 0 {
		return f.Name
	}
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteByte('(')
	writeJoined(&b, f.Args)
	b.WriteByte(')')
	return b.String()
}

func (f Functor) collectVars(seen map[string]bool, out *[]string) {
	for _, a := range f.Args {
		a.collectVars(seen, out)
	}
}

// PredicateID formats a "name/arity" indicator.
func PredicateID(name string, arity int) string {
	return name + "/" + strconv.Itoa(arity)
}

// ============================================================================
// List
// ============================================================================

// List is [e1, ..., en | Tail]. A nil Tail is the empty-list sentinel and
// makes the list closed; a Var tail makes it open.
type List struct {
	Elems []Term
	Tail  Term
}

// NewList creates a list, folding nested list tails into a single prefix.
func NewList(elems []Term, tail Term) List {
	out := make([]Term, 0, len(elems))
	out = append(out, elems...)
	for {
		nested, ok := tail.(List)
		if !ok {
			break
		}
		out = append(out, nested.Elems...)
		tail = nested.Tail
	}
	return List{Elems: out, Tail: tail}
}

// EmptyList returns the closed empty list.
func EmptyList() List { return List{} }

func (List) Kind() Kind { return KindList }
func (List) IsTemporal() bool { return false }

// IsClosed reports whether the list ends in the empty-list sentinel.
func (l List) IsClosed() bool { return l.Tail == nil }

// IsEmpty reports whether the list is the closed empty list.
func (l List) IsEmpty() bool { return len(l.Elems) == 0 && l.Tail == nil }

// Flatten returns the element prefix. For closed lists this is every element.
func (l List) Flatten() []Term {
	out := make([]Term, len(l.Elems))
	copy(out, l.Elems)
	return out
}

func (l List) IsGround() bool {
	for _, e := range l.Elems {
		if !e.IsGround() {
			return false
		}
	}
	return l.Tail == nil || l.Tail.IsGround()
}

func (l List) Substitute(theta Theta) Term {
	if len(theta) == 0 {
		return l
	}
	var tail Term
	if l.Tail != nil {
		tail = l.Tail.Substitute(theta)
	}
	return NewList(substituteAll(l.Elems, theta), tail)
}

func (l List) String() string {
	var b strings.Builder
	b.WriteByte('[')
	writeJoined(&b, l.Elems)
	if l.Tail != nil {
		b.WriteByte('|')
		b.WriteString(l.Tail.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (l List) collectVars(seen map[string]bool, out *[]string) {
	for _, e := range l.Elems {
		e.collectVars(seen, out)
	}
	if l.Tail != nil {
		l.Tail.collectVars(seen, out)
	}
}

// ============================================================================
// BinaryOp / UnaryOp
// ============================================================================

// Operators recognised in expressions.
const (
	OpUnify = "="
	OpEq    = "=="
	OpNeq   = "!="
	OpLt    = "<"
	OpLte   = "<="
	OpGt    = ">"
	OpGte   = ">="
	OpAdd   = "+"
	OpSub   = "-"
	OpMul   = "*"
	OpDiv   = "/"
	OpMod   = "mod"
	OpNot   = "!"
)

// IsComparison reports whether op yields a boolean.
func IsComparison(op string) bool {
	switch op {
	case OpUnify, OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// BinaryOp is an infix boolean or arithmetic expression node.
type BinaryOp struct {
	Op          string
	Left, Right Term
}

// NewBinary creates a binary expression.
func NewBinary(op string, left, right Term) BinaryOp {
	return BinaryOp{Op: op, Left: left, Right: right}
}

func (BinaryOp) Kind() Kind { return KindBinary }
func (BinaryOp) IsTemporal() bool { return false }

// IsBoolean reports whether the node is a comparison.
func (b BinaryOp) IsBoolean() bool { return IsComparison(b.Op) }

func (b BinaryOp) IsGround() bool { return b.Left.IsGround() && b.Right.IsGround() }

func (b BinaryOp) Substitute(theta Theta) Term {
	return BinaryOp{Op: b.Op, Left: b.Left.Substitute(theta), Right: b.Right.Substitute(theta)}
}

func (b BinaryOp) String() string {
	return b.Left.String() + " " + b.Op + " " + b.Right.String()
}

func (b BinaryOp) collectVars(seen map[string]bool, out *[]string) {
	b.Left.collectVars(seen, out)
	b.Right.collectVars(seen, out)
}

// UnaryOp is a prefix expression node: arithmetic negation ("-") or boolean
// negation of an expression ("!"). Negation of a literal is the functor !/1.
type UnaryOp struct {
	Op      string
	Operand Term
}

// NewUnary creates a unary expression.
func NewUnary(op string, operand Term) UnaryOp { return UnaryOp{Op: op, Operand: operand} }

func (UnaryOp) Kind() Kind { return KindUnary }
func (UnaryOp) IsTemporal() bool { return false }

// IsBoolean reports whether the node is a boolean negation.
func (u UnaryOp) IsBoolean() bool { return u.Op == OpNot }

func (u UnaryOp) IsGround() bool { return u.Operand.IsGround() }

func (u UnaryOp) Substitute(theta Theta) Term {
	return UnaryOp{Op: u.Op, Operand: u.Operand.Substitute(theta)}
}

func (u UnaryOp) String() string {
	if u.Op == OpNot {
		return "!(" + u.Operand.String() + ")"
	}
	return u.Op + u.Operand.String()
}

func (u UnaryOp) collectVars(seen map[string]bool, out *[]string) {
	u.Operand.collectVars(seen, out)
}

// IsBooleanExpr reports whether t is a boolean expression node.
func IsBooleanExpr(t Term) bool {
	switch v := t.(type) {
	case BinaryOp:
		return v.IsBoolean()
	case UnaryOp:
		return v.IsBoolean()
	}
	return false
}

// ============================================================================
// Timable
// ============================================================================

// Timable is a literal bound to a time window. Fluents holding at T are
// {f, T, T}; actions and events happening from T1 to T2 are {a, T1, T2}.
type Timable struct {
	Goal       Term
	Start, End Term
}

// NewTimable creates a timable literal.
func NewTimable(goal, start, end Term) Timable {
	return Timable{Goal: goal, Start: start, End: end}
}

// FluentAt wraps a fluent holding at time t.
func FluentAt(goal Term, t int64) Timable { return Timable{Goal: goal, Start: Int(t), End: Int(t)} }

// EventAt wraps an action or event happening from start to end.
func EventAt(goal Term, start, end int64) Timable {
	return Timable{Goal: goal, Start: Int(start), End: Int(end)}
}

func (Timable) Kind() Kind { return KindTimable }
func (Timable) IsTemporal() bool { return true }

func (t Timable) IsGround() bool {
	return t.Goal.IsGround() && t.Start.IsGround() && t.End.IsGround()
}

func (t Timable) Substitute(theta Theta) Term {
	return Timable{
		Goal:  t.Goal.Substitute(theta),
		Start: t.Start.Substitute(theta),
		End:   t.End.Substitute(theta),
	}
}

// HasExpired reports whether the literal can no longer hold or happen at
// or after now. A fluent expires once its instant is in the past. An action
// window expires once it ends before now or starts before now-1, the
// earliest start of an action still visible to the current cycle.
func (t Timable) HasExpired(now int64) bool {
	if end, ok := TimeValue(t.End); ok && end < now {
		return true
	}
	if t.IsInstant() {
		return false
	}
	start, ok := TimeValue(t.Start)
	return ok && start < now-1
}

// IsInstant reports whether start and end are the same term (a fluent).
func (t Timable) IsInstant() bool { return Equal(t.Start, t.End) }

func (t Timable) String() string {
	if t.IsInstant() {
		return t.Goal.String() + "@" + t.Start.String()
	}
	return t.Goal.String() + "@[" + t.Start.String() + "," + t.End.String() + "]"
}

func (t Timable) collectVars(seen map[string]bool, out *[]string) {
	t.Goal.collectVars(seen, out)
	t.Start.collectVars(seen, out)
	t.End.collectVars(seen, out)
}

// TimeValue returns the integer value of a ground time term.
func TimeValue(t Term) (int64, bool) {
	c, ok := t.(Const)
	if !ok {
		return 0, false
	}
	return c.Int64()
}

// ============================================================================
// helpers
// ============================================================================

// SubstituteAll applies theta to every term, returning a new slice.
func SubstituteAll(terms []Term, theta Theta) []Term {
	return substituteAll(terms, theta)
}

func substituteAll(terms []Term, theta Theta) []Term {
	if terms == nil {
		return nil
	}
	out := make([]Term, len(terms))
	for i, t := range terms {
		out[i] = t.Substitute(theta)
	}
	return out
}

func writeJoined(b *strings.Builder, terms []Term) {
	for i, t := range terms {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.String())
	}
}

// StripNegation unwraps leading !/1 functors.
func StripNegation(t Term) Term {
	for {
		f, ok := t.(Functor)
		if !ok || f.Name != OpNot || len(f.Args) != 1 {
			return t
		}
		t = f.Args[0]
	}
}

// IsNegation reports whether t is the !/1 functor.
func IsNegation(t Term) bool {
	f, ok := t.(Functor)
	return ok && f.Name == OpNot && len(f.Args) == 1
}

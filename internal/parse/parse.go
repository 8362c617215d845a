// Package parse reads the term syntax used by program files and tests.
//
// Grammar (lowest to highest precedence):
//
//	expr       := additive [ ("=" | "==" | "!=" | "<" | "<=" | ">" | ">=") additive ]
//	additive   := multiplic { ("+" | "-") multiplic }
//	multiplic  := unary { ("*" | "/" | "mod") unary }
//	unary      := "-" unary | "!" unary | primary
//	primary    := number | string | Variable | list | "(" expr ")" | name [ "(" expr { "," expr } ")" ]
//	list       := "[" [ expr { "," expr } [ "|" expr ] ] "]"
//
// Lowercase identifiers are atoms (zero-arity functors). Identifiers that
// start with an uppercase letter or '_' are variables; each bare '_' is a
// distinct anonymous variable.
package parse

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/roach88/lps/internal/ir"
)

// Error reports a syntax error with its position in the input.
type Error struct {
	Input   string
	Pos     scanner.Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse %q: column %d: %s", e.Input, e.Pos.Column, e.Message)
}

// Term parses a single term.
func Term(src string) (ir.Term, error) {
	p := newParser(src)
	t, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return t, nil
}

// Conjunction parses a comma-separated sequence of literals.
func Conjunction(src string) ([]ir.Term, error) {
	p := newParser(src)
	if p.tok == scanner.EOF {
		return nil, nil
	}
	var out []ir.Term
	for {
		t, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.tok != ',' {
			break
		}
		p.next()
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return out, nil
}

// MustTerm parses src and panics on error. Intended for tests and static
// tables.
func MustTerm(src string) ir.Term {
	t, err := Term(src)
	if err != nil {
		panic(err)
	}
	return t
}

// MustConjunction parses src and panics on error.
func MustConjunction(src string) []ir.Term {
	ts, err := Conjunction(src)
	if err != nil {
		panic(err)
	}
	return ts
}

type parser struct {
	src  string
	s    scanner.Scanner
	tok  rune
	text string
	anon int
	err  *Error
}

func newParser(src string) *parser {
	p := &parser{src: src}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats |
		scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	p.s.Error = func(s *scanner.Scanner, msg string) {
		if p.err == nil {
			p.err = &Error{Input: src, Pos: s.Pos(), Message: msg}
		}
	}
	p.next()
	return p
}

func (p *parser) next() {
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
}

func (p *parser) errorf(format string, args ...any) error {
	if p.err != nil {
		return p.err
	}
	return &Error{Input: p.src, Pos: p.s.Position, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(tok rune, what string) error {
	if p.tok != tok {
		return p.errorf("expected %s, found %q", what, p.text)
	}
	p.next()
	return nil
}

func (p *parser) expectEOF() error {
	if p.err != nil {
		return p.err
	}
	if p.tok != scanner.EOF {
		return p.errorf("unexpected %q", p.text)
	}
	return nil
}

// peekComparison reports the comparison operator starting at the current
// token, looking one character ahead for two-character operators.
func (p *parser) peekComparison() (string, bool) {
	switch p.tok {
	case '=', '!', '<', '>':
		op := string(p.tok)
		if p.s.Peek() == '=' {
			op += "="
		}
		if op == "!" {
			return "", false
		}
		return op, true
	}
	return "", false
}

func (p *parser) consumeOperator(op string) {
	if len(op) == 2 {
		p.s.Next()
	}
	p.next()
}

func (p *parser) parseExpr() (ir.Term, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	op, ok := p.peekComparison()
	if !ok {
		return left, nil
	}
	p.consumeOperator(op)
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return ir.NewBinary(op, left, right), nil
}

func (p *parser) parseAdditive() (ir.Term, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok == '+' || p.tok == '-' {
		op := string(p.tok)
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ir.NewBinary(op, left, right)
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ir.Term, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok == '*' || p.tok == '/' || (p.tok == scanner.Ident && p.text == ir.OpMod) {
		op := p.text
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ir.NewBinary(op, left, right)
	}
	return left, nil
}

func (p *parser) parseUnary() (ir.Term, error) {
	switch p.tok {
	case '-':
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if c, ok := operand.(ir.Const); ok && c.IsNumber() {
			if n, isInt := c.Int64(); isInt && c.ConstKind() == ir.ConstInt {
				return ir.Int(-n), nil
			}
			f, _ := c.Float64()
			return ir.Float(-f), nil
		}
		return ir.NewUnary(ir.OpSub, operand), nil
	case '!':
		if p.s.Peek() == '=' {
			return nil, p.errorf("unexpected operator !=")
		}
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if ir.IsBooleanExpr(operand) {
			return ir.NewUnary(ir.OpNot, operand), nil
		}
		return ir.NewFunctor(ir.OpNot, operand), nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ir.Term, error) {
	if p.err != nil {
		return nil, p.err
	}
	switch p.tok {
	case scanner.Int:
		n, err := strconv.ParseInt(p.text, 0, 64)
		if err != nil {
			return nil, p.errorf("invalid integer %q", p.text)
		}
		p.next()
		return ir.Int(n), nil
	case scanner.Float:
		f, err := strconv.ParseFloat(p.text, 64)
		if err != nil {
			return nil, p.errorf("invalid float %q", p.text)
		}
		p.next()
		return ir.Float(f), nil
	case scanner.String:
		s, err := strconv.Unquote(p.text)
		if err != nil {
			return nil, p.errorf("invalid string %s", p.text)
		}
		p.next()
		return ir.Str(s), nil
	case '(':
		p.next()
		t, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')', "')'"); err != nil {
			return nil, err
		}
		return t, nil
	case '[':
		return p.parseList()
	case scanner.Ident:
		return p.parseIdent()
	case scanner.EOF:
		return nil, p.errorf("unexpected end of input")
	}
	return nil, p.errorf("unexpected %q", p.text)
}

func (p *parser) parseIdent() (ir.Term, error) {
	name := p.text
	p.next()
	first := []rune(name)[0]
	if unicode.IsUpper(first) || first == '_' {
		if name == "_" {
			p.anon++
			name = "_G" + strconv.Itoa(p.anon)
		}
		return ir.NewVar(name), nil
	}
	if p.tok != '(' {
		return ir.Atom(name), nil
	}
	p.next()
	var args []ir.Term
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.tok != ',' {
			break
		}
		p.next()
	}
	if err := p.expect(')', "')' after arguments"); err != nil {
		return nil, err
	}
	return ir.NewFunctor(name, args...), nil
}

func (p *parser) parseList() (ir.Term, error) {
	p.next() // '['
	if p.tok == ']' {
		p.next()
		return ir.EmptyList(), nil
	}
	var elems []ir.Term
	var tail ir.Term
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if p.tok != ',' {
			break
		}
		p.next()
	}
	if p.tok == '|' {
		p.next()
		t, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		tail = t
	}
	if err := p.expect(']', "']'"); err != nil {
		return nil, err
	}
	return ir.NewList(elems, tail), nil
}

package ir

import (
	"errors"
	"fmt"
	"math"
)

// FuncAbs is the only function allowed inside arithmetic expressions.
const FuncAbs = "abs"

// ErrNotGround is returned when an expression still contains variables.
var ErrNotGround = errors.New("expression is not ground")

// EvalError reports an expression that cannot be evaluated.
type EvalError struct {
	Expr    string
	Message string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("cannot evaluate %s: %s", e.Expr, e.Message)
}

// Simplify evaluates ground arithmetic sub-expressions and returns the
// rewritten term. Non-arithmetic structure is preserved.
func Simplify(t Term) (Term, error) {
	switch v := t.(type) {
	case BinaryOp:
		if v.IsBoolean() {
			l, err := Simplify(v.Left)
			if err != nil {
				return nil, err
			}
			r, err := Simplify(v.Right)
			if err != nil {
				return nil, err
			}
			return BinaryOp{Op: v.Op, Left: l, Right: r}, nil
		}
		if !v.IsGround() {
			return v, nil
		}
		return EvaluateArith(v)
	case UnaryOp:
		if v.IsBoolean() || !v.IsGround() {
			return v, nil
		}
		return EvaluateArith(v)
	case Functor:
		if len(v.Args) == 0 {
			return v, nil
		}
		if v.Name == FuncAbs && len(v.Args) == 1 && v.IsGround() {
			return EvaluateArith(v)
		}
		args := make([]Term, len(v.Args))
		for i, a := range v.Args {
			s, err := Simplify(a)
			if err != nil {
				return nil, err
			}
			args[i] = s
		}
		return Functor{Name: v.Name, Args: args}, nil
	default:
		return t, nil
	}
}

// EvaluateArith evaluates a ground arithmetic expression to a number.
func EvaluateArith(t Term) (Const, error) {
	switch v := t.(type) {
	case Const:
		if !v.IsNumber() {
			return Const{}, &EvalError{Expr: v.String(), Message: "not a number"}
		}
		return v, nil
	case UnaryOp:
		if v.Op != OpSub {
			return Const{}, &EvalError{Expr: v.String(), Message: "not an arithmetic operator"}
		}
		x, err := EvaluateArith(v.Operand)
		if err != nil {
			return Const{}, err
		}
		if n, ok := x.Int64(); ok && x.ConstKind() == ConstInt {
			return Int(-n), nil
		}
		f, _ := x.Float64()
		return Float(-f), nil
	case BinaryOp:
		if v.IsBoolean() {
			return Const{}, &EvalError{Expr: v.String(), Message: "not an arithmetic operator"}
		}
		l, err := EvaluateArith(v.Left)
		if err != nil {
			return Const{}, err
		}
		r, err := EvaluateArith(v.Right)
		if err != nil {
			return Const{}, err
		}
		return arith(v, l, r)
	case Functor:
		if v.Name != FuncAbs || len(v.Args) != 1 {
			return Const{}, &EvalError{Expr: v.String(), Message: "not an arithmetic expression"}
		}
		x, err := EvaluateArith(v.Args[0])
		if err != nil {
			return Const{}, err
		}
		if x.ConstKind() == ConstInt {
			n, _ := x.Int64()
			if n < 0 {
				return Int(-n), nil
			}
			return x, nil
		}
		f, _ := x.Float64()
		return Float(math.Abs(f)), nil
	case Var:
		return Const{}, ErrNotGround
	default:
		return Const{}, &EvalError{Expr: t.String(), Message: "not an arithmetic expression"}
	}
}

func arith(expr BinaryOp, l, r Const) (Const, error) {
	if l.ConstKind() == ConstInt && r.ConstKind() == ConstInt {
		a, b := l.i, r.i
		switch expr.Op {
		case OpAdd:
			return Int(a + b), nil
		case OpSub:
			return Int(a - b), nil
		case OpMul:
			return Int(a * b), nil
		case OpMod:
			if b == 0 {
				return Const{}, &EvalError{Expr: expr.String(), Message: "division by zero"}
			}
			return Int(a % b), nil
		case OpDiv:
			if b == 0 {
				return Const{}, &EvalError{Expr: expr.String(), Message: "division by zero"}
			}
			if a%b == 0 {
				return Int(a / b), nil
			}
			return Float(float64(a) / float64(b)), nil
		}
	}
	a, _ := l.Float64()
	b, _ := r.Float64()
	switch expr.Op {
	case OpAdd:
		return Float(a + b), nil
	case OpSub:
		return Float(a - b), nil
	case OpMul:
		return Float(a * b), nil
	case OpDiv:
		if b == 0 {
			return Const{}, &EvalError{Expr: expr.String(), Message: "division by zero"}
		}
		return Float(a / b), nil
	case OpMod:
		if b == 0 {
			return Const{}, &EvalError{Expr: expr.String(), Message: "division by zero"}
		}
		return Float(math.Mod(a, b)), nil
	}
	return Const{}, &EvalError{Expr: expr.String(), Message: "unknown operator " + expr.Op}
}

// EvaluateBool evaluates a ground boolean expression.
// "=" and "==" compare structurally after arithmetic simplification; the
// ordering operators require numbers.
func EvaluateBool(t Term) (bool, error) {
	if !t.IsGround() {
		return false, ErrNotGround
	}
	switch v := t.(type) {
	case UnaryOp:
		if v.Op != OpNot {
			return false, &EvalError{Expr: v.String(), Message: "not a boolean operator"}
		}
		x, err := EvaluateBool(v.Operand)
		if err != nil {
			return false, err
		}
		return !x, nil
	case BinaryOp:
		if !v.IsBoolean() {
			return false, &EvalError{Expr: v.String(), Message: "not a boolean operator"}
		}
		l, err := Simplify(v.Left)
		if err != nil {
			return false, err
		}
		r, err := Simplify(v.Right)
		if err != nil {
			return false, err
		}
		switch v.Op {
		case OpUnify, OpEq:
			return Equal(l, r), nil
		case OpNeq:
			return !Equal(l, r), nil
		}
		lc, lok := l.(Const)
		rc, rok := r.(Const)
		if !lok || !rok || !lc.IsNumber() || !rc.IsNumber() {
			return false, &EvalError{Expr: v.String(), Message: "comparison needs numbers"}
		}
		a, _ := lc.Float64()
		b, _ := rc.Float64()
		switch v.Op {
		case OpLt:
			return a < b, nil
		case OpLte:
			return a <= b, nil
		case OpGt:
			return a > b, nil
		case OpGte:
			return a >= b, nil
		}
	}
	return false, &EvalError{Expr: t.String(), Message: "not a boolean expression"}
}

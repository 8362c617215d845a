package program

import (
	"errors"
	"fmt"
)

// ErrInstantiation is returned by builtins whose arguments are not bound
// enough to compute an answer. Reduction treats it as "not decidable yet".
var ErrInstantiation = errors.New("arguments are not sufficiently instantiated")

// QueryError reports a query that could not be answered.
type QueryError struct {
	// Code identifies the failure category.
	Code QueryErrorCode

	// Literal is the literal being solved when the failure happened.
	Literal string

	Message string
}

// QueryErrorCode categorizes query failures.
type QueryErrorCode string

const (
	// ErrCodeDepthExceeded indicates the definition chain exceeded the
	// configured maximum depth.
	ErrCodeDepthExceeded QueryErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeBadLiteral indicates a literal that cannot be solved at all,
	// such as an unbound variable or a number.
	ErrCodeBadLiteral QueryErrorCode = "BAD_LITERAL"

	// ErrCodeBuiltin indicates a builtin predicate failed.
	ErrCodeBuiltin QueryErrorCode = "BUILTIN_FAILED"
)

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s (literal=%s)", e.Code, e.Message, e.Literal)
}

// IsDepthExceeded reports whether err is a query depth overflow.
func IsDepthExceeded(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Code == ErrCodeDepthExceeded
}

// InvalidPredicateError reports a builtin id that is not "name/arity".
type InvalidPredicateError struct {
	ID string
}

func (e *InvalidPredicateError) Error() string {
	return fmt.Sprintf("invalid predicate id %q: want name/arity", e.ID)
}

package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/parse"
)

// Validation error codes (E100-E199)
const (
	// Declarations and settings (E101-E109)
	ErrInvalidPredicateID     = "E101" // declared id is not name/arity
	ErrConflictingDeclaration = "E102" // id declared with two kinds
	ErrDuplicateDeclaration   = "E103" // id declared twice with one kind
	ErrInvalidSetting         = "E104" // settings value out of range

	// Clauses (E110-E119)
	ErrMissingConsequent = "E110" // rule without a then conjunction
	ErrEmptyConstraint   = "E111" // constraint without a body
	ErrInvalidHead       = "E112" // definition head missing or not a predicate
	ErrEmptyTerm         = "E113" // fact, initially or observation term is empty
	ErrInvalidTerm       = "E114" // term does not parse

	// Observations (E120-E129)
	ErrObservationWindow    = "E120" // end <= start or negative start
	ErrNonGroundObservation = "E121" // observation term has variables
)

// ValidationError represents a program validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is returned by Compile when Validate reports problems.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "no validation errors"
	case 1:
		return e[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", e[0].Error(), len(e)-1)
	}
}

// Validate checks a decoded program and returns every problem found.
func Validate(src *Source) []ValidationError {
	var errs []ValidationError
	errs = append(errs, tagErrors(src)...)
	errs = append(errs, validateDeclarations(src)...)
	errs = append(errs, validateClauses(src)...)
	errs = append(errs, validateObservations(src)...)
	return errs
}

// tagErrors runs the struct tag checks (ids, settings ranges, windows).
func tagErrors(src *Source) []ValidationError {
	err := sourceValidate.Struct(src)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}

		ve := ValidationError{Field: field}
		switch {
		case fe.Tag() == "predid":
			ve.Code = ErrInvalidPredicateID
			ve.Message = fmt.Sprintf("%q must be name/arity", fe.Value())
		case strings.HasPrefix(field, "observations"):
			ve.Code = ErrObservationWindow
			ve.Message = fmt.Sprintf("must satisfy %s, got %v", tagText(fe), fe.Value())
		default:
			ve.Code = ErrInvalidSetting
			ve.Message = fmt.Sprintf("must satisfy %s, got %v", tagText(fe), fe.Value())
		}
		out = append(out, ve)
	}
	return out
}

func tagText(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func validateDeclarations(src *Source) []ValidationError {
	var errs []ValidationError
	kinds := make(map[string]string)

	check := func(list string, ids []string) {
		for i, id := range ids {
			prev, seen := kinds[id]
			switch {
			case !seen:
				kinds[id] = list
			case prev == list:
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s[%d]", list, i),
					Message: fmt.Sprintf("%s is declared twice", id),
					Code:    ErrDuplicateDeclaration,
				})
			default:
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s[%d]", list, i),
					Message: fmt.Sprintf("%s is already declared in %s", id, prev),
					Code:    ErrConflictingDeclaration,
				})
			}
		}
	}
	check("fluents", src.Fluents)
	check("actions", src.Actions)
	check("events", src.Events)
	return errs
}

func validateClauses(src *Source) []ValidationError {
	var errs []ValidationError

	for i, f := range src.Facts {
		errs = append(errs, checkTerm(fmt.Sprintf("facts[%d]", i), f)...)
	}
	for i, f := range src.Initially {
		errs = append(errs, checkTerm(fmt.Sprintf("initially[%d]", i), f)...)
	}

	for i, d := range src.Definitions {
		field := fmt.Sprintf("definitions[%d].head", i)
		if strings.TrimSpace(d.Head) == "" {
			errs = append(errs, ValidationError{Field: field, Message: "head is required", Code: ErrInvalidHead})
		} else if head, err := parse.Term(d.Head); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error(), Code: ErrInvalidTerm})
		} else if _, ok := head.(ir.Functor); !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("head %s must be a predicate", head),
				Code:    ErrInvalidHead,
			})
		}
		errs = append(errs, checkConjunction(fmt.Sprintf("definitions[%d].body", i), d.Body)...)
	}

	for i, r := range src.Rules {
		errs = append(errs, checkConjunction(fmt.Sprintf("rules[%d].when", i), r.When)...)
		field := fmt.Sprintf("rules[%d].then", i)
		if strings.TrimSpace(r.Then) == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "rule must have a consequent",
				Code:    ErrMissingConsequent,
			})
			continue
		}
		errs = append(errs, checkConjunction(field, r.Then)...)
	}

	for i, c := range src.Constraints {
		field := fmt.Sprintf("constraints[%d]", i)
		if strings.TrimSpace(c) == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "constraint must have a body",
				Code:    ErrEmptyConstraint,
			})
			continue
		}
		errs = append(errs, checkConjunction(field, c)...)
	}
	return errs
}

func validateObservations(src *Source) []ValidationError {
	var errs []ValidationError
	for i, o := range src.Observations {
		field := fmt.Sprintf("observations[%d]", i)
		if strings.TrimSpace(o.Term) == "" {
			errs = append(errs, ValidationError{Field: field + ".term", Message: "term is required", Code: ErrEmptyTerm})
		} else if t, err := parse.Term(o.Term); err != nil {
			errs = append(errs, ValidationError{Field: field + ".term", Message: err.Error(), Code: ErrInvalidTerm})
		} else if !t.IsGround() {
			errs = append(errs, ValidationError{
				Field:   field + ".term",
				Message: fmt.Sprintf("observation %s must be ground", t),
				Code:    ErrNonGroundObservation,
			})
		}

		if o.End != nil && *o.End <= o.Start {
			errs = append(errs, ValidationError{
				Field:   field + ".end",
				Message: fmt.Sprintf("end %d must be after start %d", *o.End, o.Start),
				Code:    ErrObservationWindow,
			})
		}
	}
	return errs
}

func checkTerm(field, src string) []ValidationError {
	if strings.TrimSpace(src) == "" {
		return []ValidationError{{Field: field, Message: "term is empty", Code: ErrEmptyTerm}}
	}
	if _, err := parse.Term(src); err != nil {
		return []ValidationError{{Field: field, Message: err.Error(), Code: ErrInvalidTerm}}
	}
	return nil
}

func checkConjunction(field, src string) []ValidationError {
	if _, err := parse.Conjunction(src); err != nil {
		return []ValidationError{{Field: field, Message: err.Error(), Code: ErrInvalidTerm}}
	}
	return nil
}

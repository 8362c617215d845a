package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func int64p(n int64) *int64 { return &n }

func TestValidate_ValidSource(t *testing.T) {
	src := &Source{
		Settings:    Settings{MaxTime: 10, CycleInterval: 50},
		Fluents:     []string{"fire/0"},
		Actions:     []string{"escape/0", "+/2"},
		Events:      []string{"smoke/1"},
		Facts:       []string{"room(kitchen)"},
		Initially:   []string{"fire"},
		Definitions: []DefinitionSource{{Head: "safe(X)", Body: "room(X), !fire"}},
		Rules:       []RuleSource{{When: "fire(T1)", Then: "escape(T1, T2)"}, {Then: "escape"}},
		Constraints: []string{"escape(T1, T2), fire(T1)"},
		Observations: []ObservationSource{
			{Term: "smoke(kitchen)", Start: 1},
			{Term: "smoke(hall)", Start: 2, End: int64p(4)},
		},
	}
	assert.Empty(t, Validate(src))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   Source
		code  string
		field string
	}{
		{
			name:  "invalid predicate id",
			src:   Source{Fluents: []string{"fire"}},
			code:  ErrInvalidPredicateID,
			field: "fluents[0]",
		},
		{
			name:  "uppercase name",
			src:   Source{Events: []string{"Smoke/0"}},
			code:  ErrInvalidPredicateID,
			field: "events[0]",
		},
		{
			name:  "conflicting declaration",
			src:   Source{Fluents: []string{"lit/0"}, Actions: []string{"lit/0"}},
			code:  ErrConflictingDeclaration,
			field: "actions[0]",
		},
		{
			name:  "duplicate declaration",
			src:   Source{Actions: []string{"a/0", "a/0"}},
			code:  ErrDuplicateDeclaration,
			field: "actions[1]",
		},
		{
			name:  "negative max time",
			src:   Source{Settings: Settings{MaxTime: -1}},
			code:  ErrInvalidSetting,
			field: "settings.maxTime",
		},
		{
			name:  "interval too long",
			src:   Source{Settings: Settings{CycleInterval: MaxCycleIntervalMs + 1}},
			code:  ErrInvalidSetting,
			field: "settings.cycleInterval",
		},
		{
			name:  "rule without consequent",
			src:   Source{Rules: []RuleSource{{When: "p(X)"}}},
			code:  ErrMissingConsequent,
			field: "rules[0].then",
		},
		{
			name:  "empty constraint",
			src:   Source{Constraints: []string{"  "}},
			code:  ErrEmptyConstraint,
			field: "constraints[0]",
		},
		{
			name:  "missing head",
			src:   Source{Definitions: []DefinitionSource{{Body: "p(X)"}}},
			code:  ErrInvalidHead,
			field: "definitions[0].head",
		},
		{
			name:  "variable head",
			src:   Source{Definitions: []DefinitionSource{{Head: "X", Body: "p(X)"}}},
			code:  ErrInvalidHead,
			field: "definitions[0].head",
		},
		{
			name:  "empty fact",
			src:   Source{Facts: []string{""}},
			code:  ErrEmptyTerm,
			field: "facts[0]",
		},
		{
			name:  "unparsable initially",
			src:   Source{Initially: []string{"lit("}},
			code:  ErrInvalidTerm,
			field: "initially[0]",
		},
		{
			name:  "unparsable rule condition",
			src:   Source{Rules: []RuleSource{{When: "p(X,", Then: "q"}}},
			code:  ErrInvalidTerm,
			field: "rules[0].when",
		},
		{
			name:  "observation window reversed",
			src:   Source{Observations: []ObservationSource{{Term: "smoke", Start: 3, End: int64p(3)}}},
			code:  ErrObservationWindow,
			field: "observations[0].end",
		},
		{
			name:  "observation negative start",
			src:   Source{Observations: []ObservationSource{{Term: "smoke", Start: -1}}},
			code:  ErrObservationWindow,
			field: "observations[0].start",
		},
		{
			name:  "observation not ground",
			src:   Source{Observations: []ObservationSource{{Term: "smoke(X)", Start: 1}}},
			code:  ErrNonGroundObservation,
			field: "observations[0].term",
		},
		{
			name:  "observation without term",
			src:   Source{Observations: []ObservationSource{{Start: 1}}},
			code:  ErrEmptyTerm,
			field: "observations[0].term",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(&tt.src)
			require.Len(t, errs, 1, "got %v", errs)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.NotEmpty(t, errs[0].Message)
		})
	}
}

func TestPredicateIDValidation(t *testing.T) {
	assert.NoError(t, sourceValidate.Var("light/0", "predid"))
	assert.NoError(t, sourceValidate.Var("reach/2", "predid"))
	assert.Error(t, sourceValidate.Var("Light/0", "predid"))
	assert.Error(t, sourceValidate.Var("light", "predid"))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	src := &Source{
		Fluents:     []string{"bad"},
		Rules:       []RuleSource{{When: "p"}},
		Constraints: []string{""},
	}
	errs := Validate(src)
	assert.Equal(t, []string{ErrInvalidPredicateID, ErrMissingConsequent, ErrEmptyConstraint}, codes(errs))
}

func TestValidationError_Format(t *testing.T) {
	e := ValidationError{Field: "rules[0].then", Message: "rule must have a consequent", Code: ErrMissingConsequent}
	assert.Equal(t, "[E110] rules[0].then: rule must have a consequent", e.Error())

	e.Line = 7
	assert.Equal(t, "[E110] line 7: rules[0].then: rule must have a consequent", e.Error())
}

func TestValidationErrors_Error(t *testing.T) {
	one := ValidationErrors{{Field: "facts[0]", Message: "term is empty", Code: ErrEmptyTerm}}
	assert.Equal(t, "[E113] facts[0]: term is empty", one.Error())

	two := append(one, ValidationError{Field: "facts[1]", Message: "term is empty", Code: ErrEmptyTerm})
	assert.Equal(t, "[E113] facts[0]: term is empty (and 1 more)", two.Error())
}

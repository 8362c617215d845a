package compiler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lps/internal/engine"
	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/parse"
)

const fireProgram = `
program: {
	settings: {maxTime: 5, cycleInterval: 20, continuousExecution: true}
	fluents: ["fire/0"]
	actions: ["eliminate/0", "escape/0"]
	facts: ["room(kitchen)", "room(hall)"]
	initially: ["fire"]
	definitions: [
		{head: "deal_with_fire(T1, T2)", body: "eliminate(T1, T2)"},
		{head: "deal_with_fire(T1, T2)", body: "escape(T1, T2)"},
	]
	rules: [{when: "fire(T1)", then: "deal_with_fire(T1, T2)"}]
	constraints: ["eliminate(T1, T2), escape(T1, T2)"]
	observations: [{term: "smoke", start: 1, end: 3}]
}
`

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("test.cue"))
	require.NoError(t, v.Err())
	return ProgramValue(v)
}

// ============================================================================
// Compile
// ============================================================================

func TestCompile_BuildsProgram(t *testing.T) {
	res, err := Compile(compileString(t, fireProgram))
	require.NoError(t, err)
	p := res.Program

	assert.True(t, p.IsFluent(ir.Atom("fire")))
	assert.True(t, p.IsAction(ir.Atom("eliminate")))
	assert.True(t, p.IsAction(ir.Atom("escape")))

	facts := p.Facts()
	assert.True(t, facts.Contains(parse.MustTerm("room(kitchen)")))
	assert.True(t, facts.Contains(parse.MustTerm("initially(fire)")))
	assert.True(t, facts.Contains(parse.MustTerm("observe(smoke, 1, 3)")))
	assert.True(t, facts.Contains(parse.MustTerm("maxTime(5)")))
	assert.True(t, facts.Contains(parse.MustTerm("cycleInterval(20)")))
	assert.True(t, facts.Contains(parse.MustTerm("continuousExecution(on)")))

	assert.Len(t, p.Clauses(), 2)

	rules := p.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, "deal_with_fire(T1, T2)", rules[0].Head[0].String())
	assert.Equal(t, "fire(T1)", rules[0].Body[0].String())

	constraints := p.Constraints()
	require.Len(t, constraints, 1)
	assert.Empty(t, constraints[0].Head)
	assert.Len(t, constraints[0].Body, 2)

	assert.Equal(t, int64(5), res.Settings.MaxTime)
	assert.Empty(t, res.Warnings)
}

func TestCompile_SettingsReachTheEngine(t *testing.T) {
	res, err := Compile(compileString(t, fireProgram))
	require.NoError(t, err)

	e, err := engine.New(res.Program, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.Load(context.Background()))

	assert.Equal(t, int64(5), e.MaxTime())
	assert.Equal(t, 20*time.Millisecond, e.CycleInterval())
	assert.True(t, e.IsContinuousExecution())
	assert.Equal(t, []string{"fire"}, e.ActiveFluents())
	assert.Equal(t, []int64{1}, e.ScheduledObservationTimes())
}

func TestCompile_DefaultObservationWindow(t *testing.T) {
	res, err := Compile(compileString(t, `
		events: ["smoke/0"]
		observations: [{term: "smoke", start: 4}]
	`))
	require.NoError(t, err)
	assert.True(t, res.Program.Facts().Contains(parse.MustTerm("observe(smoke, 4, 5)")))
}

func TestCompile_EmptyProgram(t *testing.T) {
	res, err := Compile(compileString(t, `program: {}`))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Program.Facts().Len())
	assert.Empty(t, res.Program.Rules())
	assert.Equal(t, Settings{}, res.Settings)
}

func TestCompile_RuleWithoutCondition(t *testing.T) {
	res, err := Compile(compileString(t, `
		actions: ["light/0"]
		rules: [{then: "light"}]
	`))
	require.NoError(t, err)
	rules := res.Program.Rules()
	require.Len(t, rules, 1)
	assert.Empty(t, rules[0].Body)
}

func TestCompile_UnknownField(t *testing.T) {
	_, err := Compile(compileString(t, `
		program: {
			rule: [{then: "light"}]
		}
	`))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "rule", ce.Field)
	assert.Contains(t, ce.Message, "unknown field")
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "test.cue:3:")
}

func TestCompile_ProgramMustBeStruct(t *testing.T) {
	_, err := Compile(compileString(t, `program: "p(a)"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a struct")
}

func TestCompile_WrongFieldType(t *testing.T) {
	_, err := Compile(compileString(t, `facts: "p(a)"`))
	require.Error(t, err)
}

func TestCompile_ReturnsValidationErrorsWithLines(t *testing.T) {
	_, err := Compile(compileString(t, `
program: {
	actions: ["Light/0"]
	rules: [{when: "p(X)", then: ""}]
}
`))
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 2)
	assert.Equal(t, ErrInvalidPredicateID, verrs[0].Code)
	assert.Equal(t, "actions[0]", verrs[0].Field)
	assert.Equal(t, 3, verrs[0].Line)
	assert.Equal(t, ErrMissingConsequent, verrs[1].Code)
	assert.Equal(t, 4, verrs[1].Line)
	assert.Contains(t, err.Error(), "and 1 more")
}

func TestCompile_ReportsRecursion(t *testing.T) {
	res, err := Compile(compileString(t, `
		facts: ["edge(a, b)", "edge(b, c)"]
		definitions: [
			{head: "reach(X, Y)", body: "edge(X, Y)"},
			{head: "reach(X, Z)", body: "edge(X, Y), reach(Y, Z)"},
		]
	`))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, []string{"reach/2", "reach/2"}, res.Warnings[0].Path)
}

// ============================================================================
// CompileFile
// ============================================================================

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fire.cue")
	require.NoError(t, os.WriteFile(path, []byte(fireProgram), 0o644))

	res, err := CompileFile(path)
	require.NoError(t, err)
	assert.Len(t, res.Program.Rules(), 1)
}

func TestCompileFile_Missing(t *testing.T) {
	_, err := CompileFile(filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCompileFile_SyntaxErrorHasPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte("program: {\n\tfacts: [\n"), 0o644))

	_, err := CompileFile(path)
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cue", ce.Field)
	assert.Contains(t, err.Error(), "bad.cue:")
}

// ============================================================================
// Build
// ============================================================================

func TestBuild_ParseErrorHasPosition(t *testing.T) {
	v := compileString(t, `
program: {
	facts: ["p(a"]
}
`)
	src, err := Decode(v)
	require.NoError(t, err)

	_, err = Build(v, src)
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "facts[0]", ce.Field)
	assert.Equal(t, 3, ce.Pos.Line())
}

func TestSettings_Facts(t *testing.T) {
	off := false
	facts := Settings{CycleInterval: 100, ContinuousExecution: &off}.Facts()
	require.Len(t, facts, 2)
	assert.Equal(t, "cycleInterval(100)", facts[0].String())
	assert.Equal(t, "continuousExecution(off)", facts[1].String())

	assert.Empty(t, Settings{}.Facts())
}

package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeProgram writes a small program next to the scenario being tested.
func writeProgram(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "prog.cue")
	src := "program: {\n\tactions: [\"light/0\"]\n\trules: [{then: \"light\"}]\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir)
	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
program: prog.cue
max_time: 4
observations:
  - term: "rain( north )"
    at: 1
    until: 3
expect:
  - time: 2
    actions: [light]
    fluents: ["wet( north )"]
assertions:
  - type: trace_count
    literal: light
    count: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, filepath.Join(dir, "prog.cue"), scenario.Program)
	assert.Equal(t, int64(4), scenario.MaxTime)

	require.Len(t, scenario.Observations, 1)
	assert.Equal(t, "rain(north)", scenario.Observations[0].Term)
	require.NotNil(t, scenario.Observations[0].Until)
	assert.Equal(t, int64(3), *scenario.Observations[0].Until)

	require.Len(t, scenario.Expect, 1)
	assert.Equal(t, []string{"wet(north)"}, scenario.Expect[0].Fluents)

	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, KindAction, scenario.Assertions[0].Kind)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir)
	path := writeScenario(t, dir, `
name: typo
description: "misspelt field"
program: prog.cue
expcet:
  - time: 1
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_WithBasePath(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir)
	scenarioDir := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarioDir, 0755))
	path := writeScenario(t, scenarioDir, `
name: based
description: "program resolved against another directory"
program: prog.cue
assertions:
  - type: trace_contains
    literal: light
`)

	scenario, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "prog.cue"), scenario.Program)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing name",
			body:    "description: d\nprogram: prog.cue\nassertions: [{type: trace_contains, literal: light}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			body:    "name: n\nprogram: prog.cue\nassertions: [{type: trace_contains, literal: light}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing program",
			body:    "name: n\ndescription: d\nassertions: [{type: trace_contains, literal: light}]\n",
			wantErr: "program is required",
		},
		{
			name:    "program not found",
			body:    "name: n\ndescription: d\nprogram: nope.cue\nassertions: [{type: trace_contains, literal: light}]\n",
			wantErr: "program file not found",
		},
		{
			name:    "nothing to check",
			body:    "name: n\ndescription: d\nprogram: prog.cue\n",
			wantErr: "expect or assertions is required",
		},
		{
			name:    "negative max time",
			body:    "name: n\ndescription: d\nprogram: prog.cue\nmax_time: -1\nexpect: [{time: 1}]\n",
			wantErr: "max_time must be non-negative",
		},
		{
			name:    "bad observation term",
			body:    "name: n\ndescription: d\nprogram: prog.cue\nobservations: [{term: \"rain(\", at: 1}]\nexpect: [{time: 1}]\n",
			wantErr: "observations[0]",
		},
		{
			name:    "empty window",
			body:    "name: n\ndescription: d\nprogram: prog.cue\nobservations: [{term: rain, at: 2, until: 2}]\nexpect: [{time: 1}]\n",
			wantErr: "until must be after at",
		},
		{
			name:    "expectation at zero",
			body:    "name: n\ndescription: d\nprogram: prog.cue\nexpect: [{time: 0}]\n",
			wantErr: "expect[0]: time must be positive",
		},
		{
			name:    "unknown assertion type",
			body:    "name: n\ndescription: d\nprogram: prog.cue\nassertions: [{type: trace_magic}]\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "unknown kind",
			body:    "name: n\ndescription: d\nprogram: prog.cue\nassertions: [{type: trace_contains, kind: goal, literal: light}]\n",
			wantErr: "unknown kind",
		},
		{
			name:    "contains without literal",
			body:    "name: n\ndescription: d\nprogram: prog.cue\nassertions: [{type: trace_contains}]\n",
			wantErr: "literal is required",
		},
		{
			name:    "order without actions",
			body:    "name: n\ndescription: d\nprogram: prog.cue\nassertions: [{type: trace_order}]\n",
			wantErr: "actions list is required",
		},
		{
			name:    "final state without fluents",
			body:    "name: n\ndescription: d\nprogram: prog.cue\nassertions: [{type: final_state}]\n",
			wantErr: "fluents is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeProgram(t, dir)
			_, err := LoadScenario(writeScenario(t, dir, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_Testdata(t *testing.T) {
	for _, name := range []string{"light", "fire"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name)
			assert.FileExists(t, scenario.Program)
		})
	}
}

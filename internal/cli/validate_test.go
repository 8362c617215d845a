package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lps/internal/compiler"
)

const invalidProgram = `program: {
	actions: ["Light/0"]
	rules: [{when: "p(X)", then: ""}]
}
`

func TestValidate_ValidProgram(t *testing.T) {
	path := writeCUE(t, "light.cue", lightProgram)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Program valid")
}

func TestValidate_VerboseStats(t *testing.T) {
	path := writeCUE(t, "light.cue", lightProgram)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text", Verbose: true}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 1 CUE file(s)")
	assert.Contains(t, out, "1 facts, 0 clauses, 1 rules, 0 constraints")
}

func TestValidate_JSONStats(t *testing.T) {
	path := writeCUE(t, "light.cue", lightProgram)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.NotNil(t, resp.Data.Stats)
	assert.Equal(t, 1, resp.Data.Stats.Facts)
	assert.Equal(t, 1, resp.Data.Stats.Rules)
}

func TestValidate_ReportsEveryError(t *testing.T) {
	path := writeCUE(t, "bad.cue", invalidProgram)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "line 2")
	assert.Contains(t, out, compiler.ErrInvalidPredicateID+": actions[0]:")
	assert.Contains(t, out, "line 3")
	assert.Contains(t, out, compiler.ErrMissingConsequent+":")
}

func TestValidate_JSONErrors(t *testing.T) {
	path := writeCUE(t, "bad.cue", invalidProgram)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.ErrInvalidPredicateID, resp.Error.Code)
}

func TestValidate_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "decls.cue"),
		[]byte("package lps\n\nprogram: actions: [\"light/0\"]\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.cue"),
		[]byte("package lps\n\nprogram: rules: [{then: \"light\"}]\n"), 0644))

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text", Verbose: true}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2 CUE file(s)")
	assert.Contains(t, out, "✓ Program valid")
}

func TestValidate_LoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		code string
	}{
		{
			name: "missing path",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.cue") },
			code: ErrCodeNotFound,
		},
		{
			name: "empty directory",
			path: func(t *testing.T) string { return t.TempDir() },
			code: ErrCodeNoFiles,
		},
		{
			name: "not a cue file",
			path: func(t *testing.T) string { return writeCUE(t, "prog.yaml", "program: {}\n") },
			code: ErrCodeNoFiles,
		},
		{
			name: "syntax error",
			path: func(t *testing.T) string { return writeCUE(t, "broken.cue", "program: {\n") },
			code: ErrCodeLoadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), tt.path(t))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

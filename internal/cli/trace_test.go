package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lps/internal/store"
)

func TestTrace_Text(t *testing.T) {
	path := writeCUE(t, "light.cue", lightProgram)
	dbPath := filepath.Join(t.TempDir(), "lps.db")
	recordRun(t, path, dbPath, "run-1")

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "run-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for Run: run-1")
	assert.Contains(t, out, "Status: Complete")
	assert.Contains(t, out, "  [2]\n       actions: light\n       fluents: lit\n")
	assert.Contains(t, out, "] done")
	assert.Contains(t, out, "  Cycles:       3\n")
	assert.Contains(t, out, "  Actions:      1\n")
}

func TestTrace_JSONWithKindFilter(t *testing.T) {
	path := writeCUE(t, "light.cue", lightProgram)
	dbPath := filepath.Join(t.TempDir(), "lps.db")
	recordRun(t, path, dbPath, "run-1")

	out, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--kind", "action", "run-1")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		RunID  string      `json:"run_id"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.RunID)
	require.Len(t, resp.Data.Cycles, 3)
	assert.Equal(t, []string{"light"}, resp.Data.Cycles[1].Actions)
	assert.Empty(t, resp.Data.Cycles[1].Fluents)
	assert.Equal(t, 1, resp.Data.Stats.Actions)
	assert.True(t, resp.Data.Stats.IsComplete)
}

func TestTrace_ListRuns(t *testing.T) {
	path := writeCUE(t, "light.cue", lightProgram)
	dbPath := filepath.Join(t.TempDir(), "lps.db")
	recordRun(t, path, dbPath, "run-1")
	recordRun(t, path, dbPath, "run-2")

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run-1  max_time=3")
	assert.Contains(t, out, "run-2  max_time=3")
	assert.NotContains(t, out, "incomplete")
}

func TestTrace_ListRunsMarksIncomplete(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lps.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	ctx := t.Context()
	require.NoError(t, st.WriteRun(ctx, store.Run{ID: "crashed", ProgramHash: "h", MaxTime: 5, Seq: 1}))
	require.NoError(t, st.WriteCycle(ctx, store.Cycle{RunID: "crashed", Time: 1, Seq: 2}))
	require.NoError(t, st.WriteCycle(ctx, store.Cycle{RunID: "crashed", Time: 2, Seq: 3}))
	require.NoError(t, st.Close())

	out, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Data []RunListing `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.False(t, resp.Data[0].Complete)
	assert.Equal(t, int64(2), resp.Data[0].LastTime)
}

func TestTrace_ListRunsEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lps.db")

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded")
}

func TestTrace_RunNotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lps.db")

	_, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: missing")
}

func TestTrace_InvalidKind(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lps.db")

	_, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--kind", "goal", "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid kind "goal"`)
}

func TestTrace_RequiresDB(t *testing.T) {
	_, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "run-1")
	require.Error(t, err)
}

func TestBuildTrace(t *testing.T) {
	run := store.Run{ID: "r", ProgramHash: "h", MaxTime: 2}
	cycles := []store.Cycle{
		{RunID: "r", Time: 1, Seq: 3, Literals: []store.CycleLiteral{
			{Kind: store.KindObservation, Literal: "smoke", Start: 0, End: 1},
		}},
		{RunID: "r", Time: 2, Seq: 6, Literals: []store.CycleLiteral{
			{Kind: store.KindAction, Literal: "eliminate", Start: 1, End: 2},
			{Kind: store.KindFluent, Literal: "safe", Start: 2, End: 2},
		}},
	}
	events := []store.Event{
		{RunID: "r", Time: 1, Type: "warning", Message: "constraint violated", Seq: 4},
	}

	result := buildTrace(run, cycles, events, "")
	assert.Equal(t, 2, result.Stats.Cycles)
	assert.Equal(t, 1, result.Stats.Actions)
	assert.Equal(t, 1, result.Stats.Observations)
	assert.Equal(t, 1, result.Stats.Warnings)
	assert.False(t, result.Stats.IsComplete)
	assert.Equal(t, []string{"smoke"}, result.Cycles[0].Observations)

	buf := &bytes.Buffer{}
	require.NoError(t, outputTraceText(buf, result, true))
	assert.Contains(t, buf.String(), "Status: Incomplete (no done event)")
	assert.Contains(t, buf.String(), "Program: h")
	assert.Contains(t, buf.String(), "[1] warning: constraint violated")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "01234567...89abcdef", truncateID("0123456789abcdef0123456789abcdef"))
}

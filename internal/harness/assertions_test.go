package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lps/internal/store"
)

// sampleTrace is two cycles of a fire run: smoke observed, then eliminate
// executed while safe starts to hold.
func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Time: 2, Kind: KindObservation, Literal: "smoke", Start: 1, End: 2, Seq: 8},
		{Time: 2, Kind: KindFluent, Literal: "fire", Start: 2, End: 2, Seq: 8},
		{Time: 3, Kind: KindAction, Literal: "eliminate", Start: 2, End: 3, Seq: 11},
		{Time: 3, Kind: KindFluent, Literal: "safe", Start: 3, End: 3, Seq: 11},
		{Time: 4, Kind: KindAction, Literal: "report(fire)", Start: 3, End: 4, Seq: 14},
		{Time: 5, Kind: KindAction, Literal: "eliminate", Start: 4, End: 5, Seq: 17},
		{Time: 5, Kind: KindDone, Seq: 19},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Kind: KindAction, Literal: "eliminate"}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Kind: KindAction, Literal: "eliminate", Time: i64(5)}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Kind: KindObservation, Literal: "smoke", Time: i64(2)}))

	err := assertTraceContains(trace, Assertion{Kind: KindAction, Literal: "eliminate", Time: i64(4)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action eliminate at time 4")

	err = assertTraceContains(trace, Assertion{Kind: KindAction, Literal: "smoke"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in trace")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{"eliminate", "report(fire)"}}))

	err := assertTraceOrder(trace, Assertion{Actions: []string{"report(fire)", "eliminate"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report(fire) (time 4) should be before eliminate (time 3)")

	err = assertTraceOrder(trace, Assertion{Actions: []string{"eliminate", "escape"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing action: escape")
}

func TestAssertTraceOrder_SameCycleIsNotOrdered(t *testing.T) {
	trace := []TraceEvent{
		{Time: 2, Kind: KindAction, Literal: "a"},
		{Time: 2, Kind: KindAction, Literal: "b"},
	}
	err := assertTraceOrder(trace, Assertion{Actions: []string{"a", "b"}})
	require.Error(t, err)
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Kind: KindAction, Literal: "eliminate", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Kind: KindAction, Literal: "escape", Count: 0}))

	err := assertTraceCount(trace, Assertion{Kind: KindAction, Literal: "eliminate", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 occurrences")
}

func TestAssertionError_ListsActionsAndObservations(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "1",
		Actual:   "2",
		Trace:    sampleTrace(),
	}
	msg := err.Error()

	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "[2] observation smoke")
	assert.Contains(t, msg, "[3] action eliminate")
	assert.NotContains(t, msg, "fluent")
}

func TestAssertFinalState(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.WriteRun(ctx, store.Run{ID: "run-1", ProgramHash: "h", MaxTime: 3, Seq: 1}))
	require.NoError(t, st.WriteCycle(ctx, store.Cycle{
		RunID: "run-1",
		Time:  3,
		Seq:   2,
		Literals: []store.CycleLiteral{
			{Kind: store.KindFluent, Literal: "safe", Start: 3, End: 3},
		},
	}))

	actx := &AssertionContext{Store: st, Ctx: ctx, RunID: "run-1", FinalTime: 3}
	assert.NoError(t, assertFinalState(actx, Assertion{Fluents: []string{"safe"}}))

	err = assertFinalState(actx, Assertion{Fluents: []string{"safe", "fire"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing [fire]")
}

func TestEvaluateAssertions(t *testing.T) {
	result := &Result{Trace: sampleTrace()}
	assertions := []Assertion{
		{Type: AssertTraceContains, Kind: KindAction, Literal: "eliminate"},
		{Type: AssertTraceCount, Kind: KindAction, Literal: "eliminate", Count: 5},
		{Type: AssertFinalState, Fluents: []string{"safe"}},
		{Type: "trace_magic"},
	}

	errs := EvaluateAssertions(result, assertions, nil)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "trace_count")
	assert.Contains(t, errs[1], "final_state requires database context")
	assert.Contains(t, errs[2], `unknown assertion type "trace_magic"`)
}

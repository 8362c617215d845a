package engine

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/program"
	"github.com/roach88/lps/internal/store"
	"github.com/roach88/lps/internal/testutil"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestJournal_RecordsRunAndCycles(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, actionProgram(),
		WithMaxTime(2),
		WithJournal(s),
		WithRunIDGenerator(testutil.NewFixedRunIDGenerator("")),
	)
	ctx := context.Background()

	assert.Empty(t, e.RunID())
	step(t, e, 2)
	assert.Equal(t, testutil.FixedRunID, e.RunID())

	run, err := s.ReadRun(ctx, testutil.FixedRunID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), run.MaxTime)
	assert.NotEmpty(t, run.ProgramHash)

	cycles, err := s.ReadCycles(ctx, testutil.FixedRunID)
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.Equal(t, int64(1), cycles[0].Time)
	assert.Equal(t, 2, cycles[0].Goals)
	assert.Empty(t, cycles[0].Of(store.KindAction))
	assert.ElementsMatch(t, []string{"q(a)", "q(b)"}, cycles[1].Of(store.KindAction))
	assert.Less(t, cycles[0].Seq, cycles[1].Seq)

	times, err := s.FindLiteral(ctx, testutil.FixedRunID, store.KindAction, "q(a)")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, times)
}

func TestJournal_RecordsFluentsAndObservations(t *testing.T) {
	s := setupTestStore(t)
	p := program.New()
	p.DeclareFluent("wet/0")
	p.AddFact(ir.NewFunctor("initiates", ir.Atom("rain"), ir.Atom("wet")))
	e := newTestEngine(t, p, WithJournal(s), WithRunIDGenerator(NewFixedGenerator("run-1")))
	require.NoError(t, e.ScheduleObservation(ir.Atom("rain"), 1))

	step(t, e, 2)

	cycles, err := s.ReadCycles(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"rain"}, cycles[1].Of(store.KindObservation))
	assert.Equal(t, []string{"wet"}, cycles[1].Of(store.KindFluent))

	for _, l := range cycles[1].Literals {
		switch l.Kind {
		case store.KindObservation:
			assert.Equal(t, int64(1), l.Start)
			assert.Equal(t, int64(2), l.End)
		case store.KindFluent:
			assert.Equal(t, int64(2), l.Start)
			assert.Equal(t, int64(2), l.End)
		}
	}
}

func TestJournal_RecordsWarningsAndDone(t *testing.T) {
	s := setupTestStore(t)
	p := program.New()
	p.DeclareEvent("a/0")
	p.DeclareEvent("b/0")
	p.AddConstraint(constraint("a(T1, T2), b(T1, T2)"))
	e := newTestEngine(t, p,
		WithMaxTime(2),
		WithJournal(s),
		WithRunIDGenerator(NewFixedGenerator("run-w")),
	)
	require.NoError(t, e.ScheduleObservation(ir.Atom("a"), 1))
	require.NoError(t, e.ScheduleObservation(ir.Atom("b"), 1))

	step(t, e, 2)

	events, err := s.ReadEvents(context.Background(), "run-w")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(EventWarning), events[0].Type)
	assert.Equal(t, int64(1), events[0].Time)
	assert.Contains(t, events[0].Message, "rejected observation b")
	assert.Equal(t, string(EventDone), events[1].Type)
	assert.Equal(t, int64(2), events[1].Time)
}

func TestJournal_NoStoreNoRun(t *testing.T) {
	e := newTestEngine(t, actionProgram())
	step(t, e, 1)
	assert.Empty(t, e.RunID())
}

func TestJournal_ProgramHashIsTakenBeforeTheFirstCycle(t *testing.T) {
	runHash := func(action string) string {
		s := setupTestStore(t)
		p := program.New()
		p.DeclareAction(action + "/0")
		p.AddRule(rule(action, ""))
		want := ir.ProgramHash(slices.Concat(p.Clauses(), p.Rules(), p.Constraints()))

		e := newTestEngine(t, p, WithMaxTime(2), WithJournal(s), WithRunIDGenerator(NewFixedGenerator("run-h")))
		step(t, e, 2)

		run, err := s.ReadRun(context.Background(), "run-h")
		require.NoError(t, err)
		assert.Equal(t, want, run.ProgramHash)
		return run.ProgramHash
	}

	assert.NotEqual(t, runHash("light"), runHash("dim"))
}

func TestJournal_ObservationWindowOccursAtEachTime(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, program.New(), WithJournal(s), WithRunIDGenerator(NewFixedGenerator("run-o")))
	require.NoError(t, e.ScheduleObservationWindow(ir.Atom("rain"), 2, 5))

	step(t, e, 7)

	cycles, err := s.ReadCycles(context.Background(), "run-o")
	require.NoError(t, err)
	var starts []int64
	for _, c := range cycles {
		for _, l := range c.Literals {
			if l.Kind == store.KindObservation {
				assert.Equal(t, "rain", l.Literal)
				assert.Equal(t, l.Start+1, l.End)
				starts = append(starts, l.Start)
			}
		}
	}
	assert.Equal(t, []int64{2, 3, 4}, starts)
}

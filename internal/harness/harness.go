package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"time"

	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/roach88/lps/internal/compiler"
	"github.com/roach88/lps/internal/engine"
	"github.com/roach88/lps/internal/parse"
	"github.com/roach88/lps/internal/store"
	"github.com/roach88/lps/internal/testutil"
)

// Harness steps one engine through a scenario.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	runID  string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal. The wall clock and
// run id are fixed so traces are reproducible.
//
// Execution flow:
//  1. Compile the program and load it into a new engine
//  2. Schedule the scenario's observations
//  3. Step until the engine halts, checking expectations after each cycle
//  4. Read the trace back from the journal and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	compiled, err := compiler.CompileFile(scenario.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to compile program: %w", err)
	}

	runID := scenario.RunID
	if runID == "" {
		runID = testutil.FixedRunID
	}
	eng, err := engine.New(compiled.Program,
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithJournal(st),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(runID)),
		engine.WithClock(testutil.NewStepClock(time.Millisecond)),
		engine.WithMeterProvider(metricnoop.NewMeterProvider()),
		engine.WithTracerProvider(tracenoop.NewTracerProvider()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Close()

	if err := eng.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}
	if scenario.MaxTime > 0 {
		if err := eng.SetMaxTime(scenario.MaxTime); err != nil {
			return nil, err
		}
	}

	h := &Harness{store: st, engine: eng, runID: runID}
	result := NewResult()
	result.RunID = runID
	eng.On(engine.EventWarning, func(ev engine.Event) {
		if ev.Warning != nil {
			result.Warnings = append(result.Warnings, ev.Warning.Message)
		}
	})

	if err := h.scheduleObservations(scenario.Observations); err != nil {
		return nil, fmt.Errorf("failed to schedule observations: %w", err)
	}

	h.step(ctx, scenario.Expect, result)
	result.FinalTime = eng.CurrentTime()

	trace, err := h.readTrace(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	result.Trace = trace

	actx := &AssertionContext{
		Store:     st,
		Ctx:       ctx,
		RunID:     runID,
		FinalTime: result.FinalTime,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) scheduleObservations(steps []ObservationStep) error {
	for i, o := range steps {
		term, err := parse.Term(o.Term)
		if err != nil {
			return fmt.Errorf("observations[%d]: %w", i, err)
		}
		if o.Until != nil {
			err = h.engine.ScheduleObservationWindow(term, o.At, *o.Until)
		} else {
			err = h.engine.ScheduleObservation(term, o.At)
		}
		if err != nil {
			return fmt.Errorf("observations[%d]: %w", i, err)
		}
	}
	return nil
}

// step cycles the engine to its max time. A cycle error ends the run and
// fails the scenario.
func (h *Harness) step(ctx context.Context, expect []Expectation, result *Result) {
	byTime := make(map[int64][]Expectation)
	for _, e := range expect {
		byTime[e.Time] = append(byTime[e.Time], e)
	}

	for !h.engine.HasHalted() {
		if err := h.engine.Step(ctx); err != nil {
			result.AddError(fmt.Sprintf("cycle %d: %v", h.engine.CurrentTime(), err))
			break
		}
		now := h.engine.CurrentTime()
		for _, e := range byTime[now] {
			h.check(e, result)
		}
		delete(byTime, now)
	}

	late := make([]int64, 0, len(byTime))
	for t := range byTime {
		late = append(late, t)
	}
	slices.Sort(late)
	for _, t := range late {
		result.AddError(fmt.Sprintf("time %d: not reached, run ended at %d", t, h.engine.CurrentTime()))
	}
}

// check compares one expectation with the engine's view of the cycle that
// just ended.
func (h *Harness) check(e Expectation, result *Result) {
	if e.Actions != nil {
		if got := h.engine.LastCycleActions(); !sameSet(got, e.Actions) {
			result.AddError(fmt.Sprintf("time %d: actions: expected %v, got %v", e.Time, e.Actions, got))
		}
	}
	if e.Observations != nil {
		if got := h.engine.LastCycleObservations(); !sameSet(got, e.Observations) {
			result.AddError(fmt.Sprintf("time %d: observations: expected %v, got %v", e.Time, e.Observations, got))
		}
	}

	fluents := h.engine.ActiveFluents()
	for _, f := range e.Fluents {
		if !slices.Contains(fluents, f) {
			result.AddError(fmt.Sprintf("time %d: fluent %s does not hold (state %v)", e.Time, f, fluents))
		}
	}
	for _, f := range e.NotFluents {
		if slices.Contains(fluents, f) {
			result.AddError(fmt.Sprintf("time %d: fluent %s holds", e.Time, f))
		}
	}
}

// readTrace merges the journalled cycles and events of the run by
// sequence number.
func (h *Harness) readTrace(ctx context.Context) ([]TraceEvent, error) {
	trace := []TraceEvent{}
	if h.engine.RunID() == "" {
		return trace, nil
	}

	cycles, err := h.store.ReadCycles(ctx, h.runID)
	if err != nil {
		return nil, err
	}
	for _, c := range cycles {
		for _, l := range c.Literals {
			trace = append(trace, TraceEvent{
				Time:    c.Time,
				Kind:    string(l.Kind),
				Literal: l.Literal,
				Start:   l.Start,
				End:     l.End,
				Seq:     c.Seq,
			})
		}
	}

	events, err := h.store.ReadEvents(ctx, h.runID)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		trace = append(trace, TraceEvent{
			Time:    ev.Time,
			Kind:    ev.Type,
			Message: ev.Message,
			Seq:     ev.Seq,
		})
	}

	sort.SliceStable(trace, func(i, j int) bool { return trace[i].Seq < trace[j].Seq })
	return trace, nil
}

func sameSet(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	a, b := slices.Clone(got), slices.Clone(want)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

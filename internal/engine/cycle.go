package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/roach88/lps/internal/goal"
	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/program"
)

// Step performs one cycle. It does nothing when the engine is paused or
// has halted.
//
// A Step issued while another cycle is in progress halts the engine and
// returns a CycleOverrunError without waiting for that cycle. The halt
// takes effect when the running cycle ends. Any other cycle failure also
// halts the engine and raises EventError.
func (e *Engine) Step(ctx context.Context) error {
	if !e.inCycle.CompareAndSwap(false, true) {
		return e.overrun()
	}
	defer e.inCycle.Store(false)

	e.mu.Lock()
	if e.paused || e.hasHaltedLocked() {
		e.mu.Unlock()
		return nil
	}
	e.raise(Event{Type: EventPreCycle})
	e.mu.Unlock()
	e.flush()

	e.mu.Lock()
	if e.paused || e.hasHaltedLocked() {
		e.mu.Unlock()
		return nil
	}
	e.cycleCount.Add(1)
	err := e.runCycle(ctx)
	if err != nil {
		e.haltLocked()
		e.raise(Event{Type: EventError, Err: err})
	} else {
		e.raise(Event{Type: EventPostCycle})
	}
	if e.hasHaltedLocked() {
		e.finishLocked()
	}
	e.mu.Unlock()

	e.inCycle.Store(false)
	e.flush()
	return err
}

// overrun reports a re-entrant Step and requests a halt.
func (e *Engine) overrun() error {
	err := &CycleOverrunError{Time: e.now.Load(), Interval: time.Duration(e.interval.Load())}
	e.overrunErr.CompareAndSwap(nil, err)
	e.logger.Warn("cycle overrun", "time", err.Time, "interval", err.Interval)
	return err
}

// runCycle wraps performCycle with statistics, tracing and the journal.
// Caller holds e.mu.
func (e *Engine) runCycle(ctx context.Context) error {
	e.profiler.resetCycle()
	started := e.wall.Now()

	ctx, span := e.tracer.Start(ctx, "lps.cycle")
	defer span.End()

	if err := e.performCycle(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("cycle failed", "time", e.currentTime, "error", err)
		return err
	}

	ms := e.wall.Now().Sub(started).Milliseconds()
	e.profiler.Set(StatExecutionTime, ms)
	e.profiler.Set(StatState, int64(e.prog.State().Len()))
	e.profiler.Set(StatUnresolvedGoals, int64(len(e.goals)))
	e.profiler.Set(StatActions, int64(e.lastActions.Len()))
	e.profiler.Set(StatObservations, int64(e.lastObservations.Len()))

	attrs := metric.WithAttributes(attribute.Bool("continuous", e.continuous))
	e.cycles.Add(ctx, 1, attrs)
	e.elapsed.Record(ctx, float64(ms), attrs)
	span.SetAttributes(
		attribute.Int64("lps.time", e.currentTime),
		attribute.Int("lps.actions", e.lastActions.Len()),
		attribute.Int("lps.observations", e.lastObservations.Len()),
		attribute.Int("lps.goals", len(e.goals)),
	)

	e.logger.Debug("cycle complete",
		"time", e.currentTime,
		"actions", e.lastActions.Len(),
		"observations", e.lastObservations.Len(),
		"goals", len(e.goals),
		"elapsed_ms", ms,
	)

	if err := e.journalCycle(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// performCycle is the state transition for one time step:
//
//  1. advance time
//  2. apply the actions and observations executed over [now-1, now] to
//     the state through the fluent actors
//  3. fire rules into new goal trees
//  4. evaluate every goal tree, dropping solved and failed ones
//  5. sort the trees and select the actions to execute over [now, now+1]
//  6. admit the observations scheduled for now
//  7. carry the selection and the observations to the next cycle
//
// Caller holds e.mu.
func (e *Engine) performCycle(ctx context.Context) error {
	e.currentTime++
	e.now.Store(e.currentTime)
	now := e.currentTime

	state := e.prog.State().Clone()
	if err := program.UpdateStateWithFluentActors(e.prog, e.prog.ExecutedActions(), state); err != nil {
		return fmt.Errorf("update state at %d: %w", now, err)
	}
	e.prog.SetState(state)

	executedActions := e.nextActions.Clone()
	executedObservations := e.nextObservations.Clone()
	if executedActions == nil {
		executedActions = program.NewLiteralSet()
	}
	if executedObservations == nil {
		executedObservations = program.NewLiteralSet()
	}

	fired, err := e.processRules(now)
	if err != nil {
		return fmt.Errorf("process rules at %d: %w", now, err)
	}
	e.goals = append(e.goals, fired...)

	if err := e.evaluateGoals(now); err != nil {
		return fmt.Errorf("evaluate goals at %d: %w", now, err)
	}

	e.prog.SetExecutedActions(program.NewLiteralSet())
	goal.Sort(e.goals, now)

	selected, err := e.selectActions(now)
	if err != nil {
		return err
	}
	e.nextActions = selected.Clone()

	observed, err := e.processCycleObservations(now)
	if err != nil {
		return fmt.Errorf("admit observations at %d: %w", now, err)
	}
	selected.AddAll(observed)
	e.nextObservations = observed
	e.prog.SetExecutedActions(selected)

	e.lastActions = executedActions
	e.lastObservations = executedObservations
	return nil
}

// processRules fires every live rule against the state at now and the
// actions executed over [now-1, now].
//
// A rule whose body reduces completely fires its head as a new goal tree;
// among the trees fired in one cycle, a newer tree replaces an older one
// with the same root conjunction. A partial reduction is kept as a new rule
// unless one of its remaining literals has expired. A rule whose first
// literal is a timable that has not expired is also kept as is, so it can
// fire again later.
func (e *Engine) processRules(now int64) ([]*goal.Tree, error) {
	view := program.NewView(e.prog, now, now-1)
	var (
		fired    []*goal.Tree
		newRules []ir.Clause
	)

	fire := func(consequent []ir.Term) {
		kept := fired[:0]
		for _, g := range fired {
			if !g.IsSameRootConjunction(consequent) {
				kept = append(kept, g)
			}
		}
		fired = append(kept, goal.New(e.prog, consequent, now))
	}

	for _, rule := range e.prog.Rules() {
		if len(rule.Body) == 0 {
			fire(rule.Head)
			continue
		}
		if firstIsLiveTimable(rule, now) {
			newRules = append(newRules, rule)
		}

		reductions, err := program.ReduceRuleAntecedent(view, rule)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule, err)
		}
		for _, r := range reductions {
			switch {
			case len(r.Unresolved) == len(rule.Body):
				e.profiler.Increment(StatDiscardedRules)
			case len(r.Unresolved) == 0:
				fire(r.Head)
			case !program.HasExpiredTimable(r.Unresolved, now):
				newRules = append(newRules, ir.NewClause(r.Head, r.Unresolved))
				e.profiler.Increment(StatNewRules)
			}
		}
	}

	e.prog.SetRules(newRules)
	e.profiler.IncreaseBy(StatFiredRules, int64(len(fired)))
	return fired, nil
}

func firstIsLiveTimable(rule ir.Clause, now int64) bool {
	t, ok := ir.StripNegation(rule.Body[0]).(ir.Timable)
	return ok && !t.HasExpired(now)
}

// evaluateGoals reduces every goal tree against the state at now and the
// actions executed over [now-1, now]. Solved and failed trees are dropped.
func (e *Engine) evaluateGoals(now int64) error {
	view := program.NewView(e.prog, now, now-1)
	kept := e.goals[:0]
	for _, g := range e.goals {
		status, err := g.Evaluate(view)
		if err != nil {
			return fmt.Errorf("goal %s: %w", g, err)
		}
		switch status {
		case goal.Solved:
			e.profiler.Increment(StatResolvedGoals)
		case goal.Failed:
			e.profiler.Increment(StatFailedGoals)
			e.logger.Debug("goal failed", "time", now, "goal", g.String())
		default:
			kept = append(kept, g)
		}
	}
	clear(e.goals[len(kept):])
	e.goals = kept
	return nil
}

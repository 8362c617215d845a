package engine

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/program"
)

// observation is a scheduled event. It is admitted at its queue time and
// every later time before endTime.
type observation struct {
	term    ir.Term
	endTime int64
}

// observationQueue maps a cycle time to the observations to admit at it.
type observationQueue struct {
	byTime map[int64][]observation
}

func newObservationQueue() *observationQueue {
	return &observationQueue{byTime: make(map[int64][]observation)}
}

func (q *observationQueue) push(t int64, o observation) {
	q.byTime[t] = append(q.byTime[t], o)
}

// take removes and returns the observations for t.
func (q *observationQueue) take(t int64) []observation {
	obs := q.byTime[t]
	delete(q.byTime, t)
	return obs
}

// times returns the scheduled times in ascending order.
func (q *observationQueue) times() []int64 {
	return slices.Sorted(maps.Keys(q.byTime))
}

// ScheduleObservation schedules obs to be observed over [start, start+1].
func (e *Engine) ScheduleObservation(obs ir.Term, start int64) error {
	return e.scheduleObservation(obs, start, 0, false)
}

// ScheduleObservationWindow schedules obs to be observed at every time in
// [start, end). The observation is admitted at each of those times and
// executed in the transition that follows.
//
// A start time before the current time is rejected. A start time equal to
// the current time is moved to the next time when that time's observations
// have already been admitted: during a cycle, or after the cycle for the
// current time completed.
func (e *Engine) ScheduleObservationWindow(obs ir.Term, start, end int64) error {
	return e.scheduleObservation(obs, start, end, true)
}

// Observe schedules obs at the earliest time that has not been admitted.
func (e *Engine) Observe(obs ir.Term) error {
	start := e.now.Load()
	if start == 0 {
		start = 1
	}
	return e.ScheduleObservation(obs, start)
}

func (e *Engine) scheduleObservation(obs ir.Term, start, end int64, hasEnd bool) error {
	if obs == nil || !obs.IsGround() {
		return &SchedulingError{Code: ErrCodeBadObservation, Observation: obs, Start: start, End: end, Now: e.now.Load()}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduleLocked(obs, start, end, hasEnd)
}

// scheduleLocked queues a ground observation. Caller holds e.mu.
func (e *Engine) scheduleLocked(obs ir.Term, start, end int64, hasEnd bool) error {
	// A running cycle holds the lock until it ends, so by now the
	// observations for currentTime have been admitted.
	now := e.currentTime
	if start < now {
		return &SchedulingError{Code: ErrCodeStartInPast, Observation: obs, Start: start, End: end, Now: now}
	}
	if start == now && now > 0 {
		start++
	}
	if !hasEnd {
		end = start + 1
	}
	if end <= start {
		return &SchedulingError{Code: ErrCodeEmptyWindow, Observation: obs, Start: start, End: end, Now: now}
	}

	e.obs.push(start, observation{term: obs, endTime: end})
	e.logger.Debug("observation scheduled", "observation", obs.String(), "start", start, "end", end)
	return nil
}

// ScheduledObservationTimes returns the times with pending observations.
func (e *Engine) ScheduledObservationTimes() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.obs.times()
}

// processCycleObservations admits the observations scheduled for now.
//
// Each observation is checked twice: with the observations admitted so far
// executing over [now, now+1], and against the state that results from it
// alone. One that violates a constraint is rejected with a warning. An
// observation whose window continues past now+1 is re-queued at now+1
// whether or not it was admitted.
func (e *Engine) processCycleObservations(now int64) (*program.LiteralSet, error) {
	active := program.NewLiteralSet()
	pending := e.obs.take(now)
	if len(pending) == 0 {
		return active, nil
	}

	clone := e.prog.Clone()
	clone.SetExecutedActions(active)
	next := now + 1

	for _, o := range pending {
		active.Add(o.term)

		post := clone.Clone()
		post.SetExecutedActions(program.NewLiteralSet())
		state := post.State().Clone()
		if err := program.UpdateStateWithFluentActors(post, program.NewLiteralSet(o.term), state); err != nil {
			return nil, fmt.Errorf("observation %s: %w", o.term, err)
		}
		post.SetState(state)

		ok, err := program.CheckConstraints(program.NewView(clone, now, now))
		if err != nil {
			return nil, fmt.Errorf("observation %s: %w", o.term, err)
		}
		if ok {
			ok, err = program.CheckConstraints(program.NewView(post, next, next))
			if err != nil {
				return nil, fmt.Errorf("observation %s: %w", o.term, err)
			}
		}
		if !ok {
			active.Remove(o.term)
			msg := fmt.Sprintf("rejected observation %s over [%d, %d] to satisfy constraints", o.term, now, next)
			e.logger.Warn("observation rejected", "observation", o.term.String(), "start", now, "end", next)
			e.raise(Event{Type: EventWarning, Warning: &Warning{
				Type:    WarningObservationRejected,
				Message: msg,
				Term:    o.term,
				Start:   now,
				End:     next,
			}})
		}

		if o.endTime > next {
			e.obs.push(next, o)
		}
	}
	return active, nil
}

package engine

import (
	"context"
	"time"
)

// RunState is the externally visible phase of the engine.
type RunState int

const (
	// RunIdle: not driven by Run and not halted.
	RunIdle RunState = iota
	// RunTicking: Run is driving cycles.
	RunTicking
	// RunPaused: cycles are suspended until Unpause.
	RunPaused
	// RunHalted: the engine reached its max time or was halted.
	RunHalted
)

func (s RunState) String() string {
	switch s {
	case RunIdle:
		return "idle"
	case RunTicking:
		return "ticking"
	case RunPaused:
		return "paused"
	case RunHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// RunState returns the engine's current phase.
func (e *Engine) RunState() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.hasHaltedLocked():
		return RunHalted
	case e.paused:
		return RunPaused
	case e.running:
		return RunTicking
	default:
		return RunIdle
	}
}

// HasHalted reports whether the current time has reached the max time.
func (e *Engine) HasHalted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasHaltedLocked()
}

// hasHaltedLocked applies a pending overrun halt before answering.
// Caller holds e.mu.
func (e *Engine) hasHaltedLocked() bool {
	if oe := e.overrunErr.Swap(nil); oe != nil {
		e.haltLocked()
		e.raise(Event{Type: EventError, Err: oe})
	}
	return e.currentTime >= e.maxTime
}

func (e *Engine) haltLocked() {
	e.maxTime = e.currentTime
}

// finishLocked raises EventDone once. Caller holds e.mu.
func (e *Engine) finishLocked() {
	if e.doneRaised {
		return
	}
	e.doneRaised = true
	e.logger.Info("engine done", "time", e.currentTime)
	e.raise(Event{Type: EventDone})
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Halt stops the engine at the current time. A running Run returns after
// its current cycle; a paused or idle engine raises EventDone immediately.
func (e *Engine) Halt() {
	e.mu.Lock()
	e.haltLocked()
	if e.paused || !e.running {
		e.finishLocked()
	}
	e.paused = false
	e.mu.Unlock()
	e.flush()
	e.signal()
}

// Pause suspends cycling. It has no effect on a halted or paused engine.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.paused || e.hasHaltedLocked() {
		e.mu.Unlock()
		e.flush()
		return
	}
	e.paused = true
	e.profiler.Increment(StatPaused)
	e.raise(Event{Type: EventPaused})
	e.mu.Unlock()
	e.flush()
	e.signal()
}

// Unpause resumes cycling. It has no effect on a halted engine or one that
// is not paused.
func (e *Engine) Unpause() {
	e.mu.Lock()
	if !e.paused || e.hasHaltedLocked() {
		e.mu.Unlock()
		e.flush()
		return
	}
	e.paused = false
	e.raise(Event{Type: EventUnpaused})
	e.mu.Unlock()
	e.flush()
	e.signal()
}

// Run drives cycles until the engine halts or ctx is done. The first cycle
// starts immediately. Later cycles start one cycle interval after the
// previous one started, or as soon as it ends under continuous execution.
//
// A cycle that is still running when the interval elapses halts the engine
// and Run returns a CycleOverrunError. Cancelling ctx halts the engine and
// returns ctx.Err().
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errWhileRunning("run")
	}
	if e.maxTime <= 0 && !e.doneRaised {
		e.mu.Unlock()
		return errInvalidValue("maxTime", e.maxTime)
	}
	if e.hasHaltedLocked() {
		e.mu.Unlock()
		e.flush()
		return nil
	}
	e.running = true
	e.raise(Event{Type: EventRun})
	e.mu.Unlock()
	e.flush()
	e.logger.Info("engine running",
		"max_time", e.MaxTime(),
		"interval", e.CycleInterval(),
		"continuous", e.IsContinuousExecution(),
	)

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		e.mu.Lock()
		halted := e.hasHaltedLocked()
		if halted {
			e.finishLocked()
		}
		paused := e.paused
		continuous := e.continuous
		e.mu.Unlock()
		if halted {
			e.flush()
			return nil
		}

		if paused {
			select {
			case <-ctx.Done():
				return e.cancel(ctx)
			case <-e.wake:
			}
			timer.Reset(0)
			continue
		}

		select {
		case <-ctx.Done():
			return e.cancel(ctx)
		case <-e.wake:
			continue
		case <-timer.C:
		}

		started := time.Now()
		if err := e.stepWithWatchdog(ctx); err != nil {
			return err
		}

		var delay time.Duration
		if !continuous {
			delay = max(e.CycleInterval()-time.Since(started), 0)
		}
		timer.Reset(delay)
	}
}

// stepWithWatchdog runs one Step and reports an overrun when the cycle is
// still in progress after one cycle interval.
func (e *Engine) stepWithWatchdog(ctx context.Context) error {
	n := e.cycleCount.Load()
	overran := make(chan error, 1)
	wd := time.AfterFunc(e.CycleInterval(), func() {
		var err error
		if e.inCycle.Load() && e.cycleCount.Load() == n+1 {
			err = e.overrun()
		}
		overran <- err
	})

	err := e.Step(ctx)
	if !wd.Stop() {
		if oe := <-overran; oe != nil && err == nil {
			err = oe
		}
	}
	if err != nil {
		// An overrun detected as the cycle was ending is still pending.
		e.mu.Lock()
		if e.hasHaltedLocked() {
			e.finishLocked()
		}
		e.mu.Unlock()
		e.flush()
	}
	return err
}

func (e *Engine) cancel(ctx context.Context) error {
	e.mu.Lock()
	e.haltLocked()
	e.finishLocked()
	e.mu.Unlock()
	e.flush()
	e.logger.Info("engine cancelled", "time", e.CurrentTime(), "reason", context.Cause(ctx))
	return ctx.Err()
}

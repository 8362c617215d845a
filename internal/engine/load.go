package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/program"
)

// Program facts read by Load as engine settings.
const (
	SettingMaxTime             = "maxTime"
	SettingCycleInterval       = "cycleInterval"
	SettingContinuousExecution = "continuousExecution"

	// ObservePredicate schedules observe(O, Start, End) before the first
	// cycle.
	ObservePredicate = "observe"
)

// Load prepares the program for cycling. It runs once:
//
//  1. settings facts override the engine options
//  2. fluent, action and event literals become timables
//  3. initially(F) facts seed the state
//  4. observe(O, Start, End) facts are scheduled
//  5. rule and constraint antecedents are expanded through definitions
//
// Load raises EventLoaded and then EventReady.
func (e *Engine) Load(ctx context.Context) error {
	_, span := e.tracer.Start(ctx, "lps.load")
	defer span.End()

	e.mu.Lock()
	if e.loaded {
		e.mu.Unlock()
		return &ConfigurationError{Code: ErrCodeAlreadyLoaded, Param: "load", Message: "program is already loaded"}
	}
	if e.running {
		e.mu.Unlock()
		return errWhileRunning("load")
	}
	e.loaded = true
	e.programHash = sourceHash(e.prog)

	err := e.loadLocked()
	if err == nil {
		e.raise(Event{Type: EventLoaded})
		e.raise(Event{Type: EventReady})
	}
	e.mu.Unlock()
	e.flush()

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("load program: %w", err)
	}
	e.logger.Info("program loaded",
		"rules", len(e.prog.Rules()),
		"constraints", len(e.prog.Constraints()),
		"state", e.prog.State().Len(),
	)
	return nil
}

func (e *Engine) loadLocked() error {
	if err := e.applySettings(); err != nil {
		return err
	}
	program.ApplyTimables(e.prog)
	if err := program.ApplyInitially(e.prog); err != nil {
		return fmt.Errorf("initial state: %w", err)
	}
	if err := e.scheduleObserveFacts(); err != nil {
		return err
	}
	program.ExpandRules(e.prog)
	return nil
}

// applySettings reads maxTime(N), cycleInterval(Ms) and
// continuousExecution(on|off) facts. Caller holds e.mu.
func (e *Engine) applySettings() error {
	if v, ok, err := e.setting(SettingMaxTime); err != nil {
		return err
	} else if ok {
		n, isInt := intConst(v)
		if !isInt || n <= 0 {
			return errInvalidValue(SettingMaxTime, v)
		}
		e.maxTime = n
	}

	if v, ok, err := e.setting(SettingCycleInterval); err != nil {
		return err
	} else if ok {
		n, isInt := intConst(v)
		if !isInt || n <= 0 {
			return errInvalidValue(SettingCycleInterval, v)
		}
		e.interval.Store(int64(time.Duration(n) * time.Millisecond))
	}

	if v, ok, err := e.setting(SettingContinuousExecution); err != nil {
		return err
	} else if ok {
		switch ir.Key(v) {
		case ir.Key(ir.Atom("on")), ir.Key(ir.Atom("true")), ir.Key(ir.Str("on")), ir.Key(ir.Str("true")):
			e.continuous = true
		case ir.Key(ir.Atom("off")), ir.Key(ir.Atom("false")), ir.Key(ir.Str("off")), ir.Key(ir.Str("false")):
			e.continuous = false
		default:
			return &ConfigurationError{
				Code:    ErrCodeInvalidValue,
				Param:   SettingContinuousExecution,
				Message: fmt.Sprintf("must be on or off, got %s", v),
			}
		}
	}
	return nil
}

// setting returns the argument of the first name(X) answer.
func (e *Engine) setting(name string) (ir.Term, bool, error) {
	answers, err := e.prog.Query(ir.NewFunctor(name, ir.NewVar("X")))
	if err != nil {
		return nil, false, fmt.Errorf("setting %s: %w", name, err)
	}
	if len(answers) == 0 {
		return nil, false, nil
	}
	v, ok := answers[0].Resolve("X")
	if !ok || !v.IsGround() {
		return nil, false, errInvalidValue(name, "unbound")
	}
	return v, true, nil
}

func intConst(t ir.Term) (int64, bool) {
	c, ok := t.(ir.Const)
	if !ok {
		return 0, false
	}
	return c.Int64()
}

// scheduleObserveFacts schedules every observe(O, Start, End) answer.
// Caller holds e.mu.
func (e *Engine) scheduleObserveFacts() error {
	query := ir.NewFunctor(ObservePredicate, ir.NewVar("O"), ir.NewVar("ST"), ir.NewVar("ET"))
	answers, err := e.prog.Query(query)
	if err != nil {
		return fmt.Errorf("observations: %w", err)
	}
	for _, theta := range answers {
		fact := query.Substitute(theta).(ir.Functor)
		start, okStart := intConst(fact.Args[1])
		end, okEnd := intConst(fact.Args[2])
		if !okStart || !okEnd || !fact.Args[0].IsGround() {
			return &SchedulingError{Code: ErrCodeBadObservation, Observation: fact.Args[0], Now: e.currentTime}
		}
		if err := e.scheduleLocked(fact.Args[0], start, end, true); err != nil {
			return err
		}
	}
	return nil
}

package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/program"
	"github.com/roach88/lps/internal/store"
)

// sourceHash identifies a program by its definitions, rules and constraints
// before any cycle has fired or expanded them. It matches the hash printed
// by lps compile.
func sourceHash(p *program.Program) string {
	return ir.ProgramHash(slices.Concat(p.Clauses(), p.Rules(), p.Constraints()))
}

// ensureRun records the run on the first journaled cycle. Caller holds e.mu.
func (e *Engine) ensureRun(ctx context.Context) error {
	if e.runID != "" {
		return nil
	}
	id := e.runIDs.Generate()
	if e.programHash == "" {
		e.programHash = sourceHash(e.prog)
	}
	run := store.Run{
		ID:          id,
		ProgramHash: e.programHash,
		MaxTime:     e.maxTime,
		Seq:         e.seq.Next(),
	}
	if err := e.journal.WriteRun(ctx, run); err != nil {
		return fmt.Errorf("journal run: %w", err)
	}
	e.runID = id
	e.logger.Debug("journal run started", "run_id", id, "program_hash", run.ProgramHash)
	return nil
}

// journalCycle writes the transition that ended at the current time and the
// state holding at it. Caller holds e.mu.
func (e *Engine) journalCycle(ctx context.Context) error {
	if e.journal == nil {
		return nil
	}
	if err := e.ensureRun(ctx); err != nil {
		return err
	}

	now := e.currentTime
	var lits []store.CycleLiteral
	add := func(kind store.LiteralKind, set *program.LiteralSet, start, end int64) {
		for _, s := range set.Strings() {
			lits = append(lits, store.CycleLiteral{Kind: kind, Literal: s, Start: start, End: end})
		}
	}
	add(store.KindAction, e.lastActions, now-1, now)
	add(store.KindObservation, e.lastObservations, now-1, now)
	add(store.KindFluent, e.prog.State(), now, now)

	c := store.Cycle{
		RunID:    e.runID,
		Time:     now,
		Goals:    len(e.goals),
		Seq:      e.seq.Next(),
		Literals: lits,
	}
	if err := e.journal.WriteCycle(ctx, c); err != nil {
		return fmt.Errorf("journal cycle %d: %w", now, err)
	}
	return nil
}

// journalEvent records warning, error and done events. Failures are logged;
// an event that cannot be journaled is still delivered to listeners.
func (e *Engine) journalEvent(runID string, p pendingEvent) {
	if e.journal == nil {
		return
	}
	var msg string
	switch p.ev.Type {
	case EventWarning:
		if p.ev.Warning != nil {
			msg = p.ev.Warning.Message
		}
	case EventError:
		if p.ev.Err != nil {
			msg = p.ev.Err.Error()
		}
	case EventDone:
	default:
		return
	}

	ev := store.Event{RunID: runID, Time: p.ev.Time, Type: string(p.ev.Type), Message: msg, Seq: p.seq}
	if err := e.journal.WriteEvent(context.Background(), ev); err != nil {
		e.logger.Error("journal event", "type", p.ev.Type, "run_id", runID, "error", err)
	}
}

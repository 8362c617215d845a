package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReadRun returns the run with the given id, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, program_hash, max_time, seq
		FROM runs
		WHERE id = ?
	`, id).Scan(&r.ID, &r.ProgramHash, &r.MaxTime, &r.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	return r, nil
}

// ListRuns returns every run, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program_hash, max_time, seq
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ProgramHash, &r.MaxTime, &r.Seq); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadCycles returns the cycles of a run ordered by seq, each with its
// literals in recorded order.
func (s *Store) ReadCycles(ctx context.Context, runID string) ([]Cycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, goals, seq
		FROM cycles
		WHERE run_id = ?
		ORDER BY seq ASC, time ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}

	cycles := []Cycle{}
	index := make(map[int64]int)
	for rows.Next() {
		c := Cycle{RunID: runID}
		if err := rows.Scan(&c.Time, &c.Goals, &c.Seq); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		index[c.Time] = len(cycles)
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate cycles: %w", err)
	}
	rows.Close()

	lits, err := s.db.QueryContext(ctx, `
		SELECT time, kind, literal, start_time, end_time
		FROM cycle_literals
		WHERE run_id = ?
		ORDER BY seq ASC, pos ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cycle literals: %w", err)
	}
	defer lits.Close()

	for lits.Next() {
		var (
			t    int64
			kind string
			l    CycleLiteral
		)
		if err := lits.Scan(&t, &kind, &l.Literal, &l.Start, &l.End); err != nil {
			return nil, fmt.Errorf("scan cycle literal: %w", err)
		}
		l.Kind = LiteralKind(kind)
		if i, ok := index[t]; ok {
			cycles[i].Literals = append(cycles[i].Literals, l)
		}
	}
	if err := lits.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycle literals: %w", err)
	}
	return cycles, nil
}

// FindLiteral returns the times at which literal was recorded with kind in
// a run, in ascending order.
func (s *Store) FindLiteral(ctx context.Context, runID string, kind LiteralKind, literal string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time
		FROM cycle_literals
		WHERE run_id = ? AND kind = ? AND literal = ?
		ORDER BY seq ASC, pos ASC
	`, runID, string(kind), literal)
	if err != nil {
		return nil, fmt.Errorf("query literal: %w", err)
	}
	defer rows.Close()

	times := []int64{}
	for rows.Next() {
		var t int64
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan literal: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate literal: %w", err)
	}
	return times, nil
}

// ReadEvents returns the events of a run ordered by seq.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, type, message, seq
		FROM engine_events
		WHERE run_id = ?
		ORDER BY seq ASC, id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		ev := Event{RunID: runID}
		if err := rows.Scan(&ev.Time, &ev.Type, &ev.Message, &ev.Seq); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

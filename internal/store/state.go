package store

import (
	"context"
	"fmt"
)

// RunState summarises how far a run got before its journal stopped.
type RunState struct {
	Run          Run
	Cycles       int     // journalled cycles
	LastTime     int64   // time of the latest journalled cycle, 0 if none
	LastSeq      int64   // highest seq over the run, its cycles and its events
	MissingTimes []int64 // times in 1..LastTime with no journalled cycle
	Errors       int     // error events
	IsComplete   bool    // a done event was journalled
}

// ReadRunState analyses the journal of one run. It returns ErrRunNotFound
// for unknown ids.
func (s *Store) ReadRunState(ctx context.Context, runID string) (RunState, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return RunState{}, err
	}
	state := RunState{Run: run, LastSeq: run.Seq, MissingTimes: []int64{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT time, seq
		FROM cycles
		WHERE run_id = ?
		ORDER BY time ASC
	`, runID)
	if err != nil {
		return state, fmt.Errorf("read run state: %w", err)
	}
	defer rows.Close()

	next := int64(1)
	for rows.Next() {
		var t, seq int64
		if err := rows.Scan(&t, &seq); err != nil {
			return state, fmt.Errorf("scan cycle: %w", err)
		}
		for ; next < t; next++ {
			state.MissingTimes = append(state.MissingTimes, next)
		}
		next = t + 1
		state.Cycles++
		state.LastTime = t
		state.LastSeq = max(state.LastSeq, seq)
	}
	if err := rows.Err(); err != nil {
		return state, fmt.Errorf("iterate cycles: %w", err)
	}

	var (
		lastEventSeq int64
		done         int
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0),
		       COUNT(CASE WHEN type = 'error' THEN 1 END),
		       COUNT(CASE WHEN type = 'done' THEN 1 END)
		FROM engine_events
		WHERE run_id = ?
	`, runID).Scan(&lastEventSeq, &state.Errors, &done)
	if err != nil {
		return state, fmt.Errorf("read run events: %w", err)
	}
	state.LastSeq = max(state.LastSeq, lastEventSeq)
	state.IsComplete = done > 0

	return state, nil
}

// FindIncompleteRuns returns the state of every run without a done event,
// oldest first. These are runs that were interrupted or crashed.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]RunState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id
		FROM runs r
		WHERE NOT EXISTS (
			SELECT 1 FROM engine_events e
			WHERE e.run_id = r.id AND e.type = 'done'
		)
		ORDER BY r.seq ASC, r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("find incomplete runs: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate run ids: %w", err)
	}
	rows.Close()

	states := make([]RunState, 0, len(ids))
	for _, id := range ids {
		state, err := s.ReadRunState(ctx, id)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

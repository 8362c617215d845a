package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run record. Writing the same id twice is a no-op.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, program_hash, max_time, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.ProgramHash, run.MaxTime, run.Seq)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteCycle inserts a cycle and its literals in one transaction. The run
// must exist. Rewriting a cycle already journaled is a no-op.
func (s *Store) WriteCycle(ctx context.Context, c Cycle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write cycle: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO cycles (run_id, time, goals, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, time) DO NOTHING
	`, c.RunID, c.Time, c.Goals, c.Seq)
	if err != nil {
		return fmt.Errorf("write cycle: insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write cycle: rows affected: %w", err)
	}
	if n == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cycle_literals (run_id, time, kind, literal, start_time, end_time, pos, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write cycle: prepare: %w", err)
	}
	defer stmt.Close()

	for i, l := range c.Literals {
		if _, err := stmt.ExecContext(ctx, c.RunID, c.Time, string(l.Kind), l.Literal, l.Start, l.End, i, c.Seq); err != nil {
			return fmt.Errorf("write cycle: literal %q: %w", l.Literal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write cycle: commit: %w", err)
	}
	return nil
}

// WriteEvent appends an engine event to a run.
func (s *Store) WriteEvent(ctx context.Context, ev Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO engine_events (run_id, time, type, message, seq)
		VALUES (?, ?, ?, ?, ?)
	`, ev.RunID, ev.Time, ev.Type, ev.Message, ev.Seq)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

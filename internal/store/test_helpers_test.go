package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore opens a journal in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run and returns it.
func createTestRun(t *testing.T, s *Store, id string, seq int64) Run {
	t.Helper()
	run := Run{ID: id, ProgramHash: "test-hash", MaxTime: 5, Seq: seq}
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}

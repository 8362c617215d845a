package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lps/internal/engine"
	"github.com/roach88/lps/internal/store"
)

// replayRunID names the run recorded while replaying.
const replayRunID = "replay"

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// CycleDiff is one kind of literal that differs between the recorded and
// the replayed cycle.
type CycleDiff struct {
	Time     int64    `json:"time"`
	Kind     string   `json:"kind"`
	Recorded []string `json:"recorded"`
	Replayed []string `json:"replayed"`
}

// ReplayResult holds the outcome of a replay.
type ReplayResult struct {
	RunID          string      `json:"run_id"`
	RecordedHash   string      `json:"recorded_hash"`
	ReplayedHash   string      `json:"replayed_hash"`
	CyclesCompared int         `json:"cycles_compared"`
	Deterministic  bool        `json:"deterministic"`
	Differences    []CycleDiff `json:"differences,omitempty"`
	RecordedState  *RunStatus  `json:"recorded_state,omitempty"` // set when the run did not finish
}

// RunStatus describes a journalled run that stopped before its done event.
type RunStatus struct {
	LastTime     int64   `json:"last_time"`
	MissingTimes []int64 `json:"missing_times,omitempty"`
	Errors       int     `json:"errors"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <program>",
		Short: "Re-run a program and compare it with a journalled run",
		Long: `Re-run a program in step mode and verify that every cycle matches
the run recorded in the journal.

The program hash must match the recorded one, and every recorded cycle
must have the same actions, observations and fluents, in the same order.

Exit codes:
  0 - The replay matches the journal
  1 - Differences detected
  2 - Command error (database not found, unknown run, etc.)

Examples:
  lps replay --db ./lps.db --run 01928f3e-... ./fire.cue
  lps replay --db ./lps.db --run 01928f3e-... --format json ./fire.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to compare against (required)")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	state, err := st.ReadRunState(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	run := state.Run
	recorded, err := st.ReadCycles(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read cycles", err)
	}

	replayedRun, replayed, err := replayProgram(ctx, path, run.MaxTime)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := compareRuns(run, recorded, replayedRun, replayed)
	if !state.IsComplete {
		result.RecordedState = &RunStatus{LastTime: state.LastTime, MissingTimes: state.MissingTimes, Errors: state.Errors}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayProgram runs the program for maxTime cycles against an in-memory
// journal and returns what was recorded.
func replayProgram(ctx context.Context, path string, maxTime int64) (store.Run, []store.Cycle, error) {
	compiled, err := LoadProgram(path)
	if err != nil {
		return store.Run{}, nil, err
	}

	mem, err := store.Open(":memory:")
	if err != nil {
		return store.Run{}, nil, err
	}
	defer mem.Close()

	eng, err := engine.New(compiled.Program,
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithJournal(mem),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(replayRunID)),
	)
	if err != nil {
		return store.Run{}, nil, err
	}
	defer eng.Close()

	if err := eng.Load(ctx); err != nil {
		return store.Run{}, nil, err
	}
	if err := eng.SetMaxTime(maxTime); err != nil {
		return store.Run{}, nil, err
	}
	for !eng.HasHalted() {
		if err := eng.Step(ctx); err != nil {
			return store.Run{}, nil, fmt.Errorf("cycle %d: %w", eng.CurrentTime(), err)
		}
	}

	run, err := mem.ReadRun(ctx, replayRunID)
	if err != nil {
		return store.Run{}, nil, err
	}
	cycles, err := mem.ReadCycles(ctx, replayRunID)
	if err != nil {
		return store.Run{}, nil, err
	}
	return run, cycles, nil
}

// compareRuns checks every recorded cycle against the replayed cycle for
// the same time. A run stopped early is compared up to its last cycle.
func compareRuns(run store.Run, recorded []store.Cycle, replayedRun store.Run, replayed []store.Cycle) ReplayResult {
	result := ReplayResult{
		RunID:        run.ID,
		RecordedHash: run.ProgramHash,
		ReplayedHash: replayedRun.ProgramHash,
	}

	byTime := make(map[int64]store.Cycle, len(replayed))
	for _, c := range replayed {
		byTime[c.Time] = c
	}

	for _, rec := range recorded {
		rep := byTime[rec.Time]
		for _, kind := range []store.LiteralKind{store.KindAction, store.KindObservation, store.KindFluent} {
			want, got := rec.Of(kind), rep.Of(kind)
			if !slices.Equal(want, got) {
				result.Differences = append(result.Differences, CycleDiff{
					Time:     rec.Time,
					Kind:     string(kind),
					Recorded: want,
					Replayed: got,
				})
			}
		}
		result.CyclesCompared++
	}

	result.Deterministic = result.RecordedHash == result.ReplayedHash && len(result.Differences) == 0
	return result
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	if !result.Deterministic {
		formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return formatter.Fail(ExitFailure, ErrCodeDeterminism, "replay does not match the journal", result)
	}
	return writeIndentedJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay of run %s: %d cycle(s) compared\n", result.RunID, result.CyclesCompared)
	if verbose {
		fmt.Fprintf(w, "  Recorded program: %s\n", result.RecordedHash)
		fmt.Fprintf(w, "  Replayed program: %s\n", result.ReplayedHash)
	}
	if result.RecordedHash != result.ReplayedHash {
		fmt.Fprintln(w, "  Program hash differs: the program changed since the run")
	}
	if rs := result.RecordedState; rs != nil {
		fmt.Fprintf(w, "  Recorded run is incomplete: last cycle at %d, %d error(s)\n", rs.LastTime, rs.Errors)
		if len(rs.MissingTimes) > 0 {
			fmt.Fprintf(w, "  Missing cycles: %v\n", rs.MissingTimes)
		}
	}
	for _, d := range result.Differences {
		fmt.Fprintf(w, "  [%d] %s: recorded %s, replayed %s\n",
			d.Time, d.Kind, bracket(d.Recorded), bracket(d.Replayed))
	}
	fmt.Fprintln(w)

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Replay matches the journal")
		return nil
	}
	fmt.Fprintln(w, "✗ Replay does not match the journal")
	return NewExitError(ExitFailure, "replay does not match the journal")
}

func bracket(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

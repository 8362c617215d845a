package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lps/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Kind     string // optional - only show literals of this kind
}

// TraceCycle is one journalled cycle of a run.
type TraceCycle struct {
	Time         int64    `json:"time"`
	Seq          int64    `json:"seq"`
	Goals        int      `json:"goals"`
	Actions      []string `json:"actions,omitempty"`
	Observations []string `json:"observations,omitempty"`
	Fluents      []string `json:"fluents,omitempty"`
}

// TraceEvent is a journalled engine event.
type TraceEvent struct {
	Time    int64  `json:"time"`
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID       string       `json:"run_id"`
	ProgramHash string       `json:"program_hash"`
	MaxTime     int64        `json:"max_time"`
	Cycles      []TraceCycle `json:"cycles"`
	Events      []TraceEvent `json:"events"`
	Stats       TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the run.
type TraceStats struct {
	Cycles       int  `json:"cycles"`
	Actions      int  `json:"actions"`
	Observations int  `json:"observations"`
	Warnings     int  `json:"warnings"`
	IsComplete   bool `json:"is_complete"`
}

// RunListing is a row of the run listing.
type RunListing struct {
	ID          string `json:"id"`
	ProgramHash string `json:"program_hash"`
	MaxTime     int64  `json:"max_time"`
	Complete    bool   `json:"complete"`
	LastTime    int64  `json:"last_time,omitempty"` // set for incomplete runs
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show the journalled cycles of a run",
		Long: `Show what a run did, cycle by cycle, from its journal.

For every cycle the trace lists the actions and observations that
occurred over the transition ending at that time and the fluents that
held at it, followed by the engine's warnings, errors and completion.

Without a run id, the runs in the journal are listed.

Examples:
  lps trace --db ./lps.db
  lps trace --db ./lps.db 01928f3e-...
  lps trace --db ./lps.db 01928f3e-... --kind action --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListRuns(opts, cmd)
			}
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show literals of one kind (action|observation|fluent)")

	return cmd
}

func runListRuns(opts *TraceOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(cmdContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	incomplete, err := st.FindIncompleteRuns(cmdContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to check runs", err)
	}
	lastTime := make(map[string]int64, len(incomplete))
	for _, s := range incomplete {
		lastTime[s.Run.ID] = s.LastTime
	}

	summaries := make([]RunListing, 0, len(runs))
	for _, r := range runs {
		last, open := lastTime[r.ID]
		summaries = append(summaries, RunListing{
			ID:          r.ID,
			ProgramHash: r.ProgramHash,
			MaxTime:     r.MaxTime,
			Complete:    !open,
			LastTime:    last,
		})
	}

	if opts.Format == "json" {
		return writeIndentedJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: summaries})
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  max_time=%d  program=%s", s.ID, s.MaxTime, truncateID(s.ProgramHash))
		if !s.Complete {
			fmt.Fprintf(w, "  incomplete (last cycle %d)", s.LastTime)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)

	kind := store.LiteralKind(opts.Kind)
	switch kind {
	case "", store.KindAction, store.KindObservation, store.KindFluent:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q", opts.Kind))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	cycles, err := st.ReadCycles(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read cycles", err)
	}
	events, err := st.ReadEvents(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := buildTrace(run, cycles, events, kind)

	if opts.Format == "json" {
		return writeIndentedJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

// buildTrace assembles the trace of a run. A non-empty kind hides the
// literals of the other kinds.
func buildTrace(run store.Run, cycles []store.Cycle, events []store.Event, kind store.LiteralKind) TraceResult {
	result := TraceResult{
		RunID:       run.ID,
		ProgramHash: run.ProgramHash,
		MaxTime:     run.MaxTime,
		Cycles:      make([]TraceCycle, 0, len(cycles)),
		Events:      make([]TraceEvent, 0, len(events)),
	}

	show := func(k store.LiteralKind) bool { return kind == "" || kind == k }
	for _, c := range cycles {
		tc := TraceCycle{Time: c.Time, Seq: c.Seq, Goals: c.Goals}
		if show(store.KindAction) {
			tc.Actions = c.Of(store.KindAction)
		}
		if show(store.KindObservation) {
			tc.Observations = c.Of(store.KindObservation)
		}
		if show(store.KindFluent) {
			tc.Fluents = c.Of(store.KindFluent)
		}
		result.Cycles = append(result.Cycles, tc)
		result.Stats.Actions += len(c.Of(store.KindAction))
		result.Stats.Observations += len(c.Of(store.KindObservation))
	}

	for _, ev := range events {
		result.Events = append(result.Events, TraceEvent{Time: ev.Time, Seq: ev.Seq, Type: ev.Type, Message: ev.Message})
		switch ev.Type {
		case "warning":
			result.Stats.Warnings++
		case "done":
			result.Stats.IsComplete = true
		}
	}
	result.Stats.Cycles = len(cycles)
	return result
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Status: %s\n", completeStatus(result.Stats.IsComplete))
	if verbose {
		fmt.Fprintf(w, "Program: %s\n", result.ProgramHash)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Cycles ===")
	if len(result.Cycles) == 0 {
		fmt.Fprintln(w, "  (no cycles)")
	}
	for _, c := range result.Cycles {
		fmt.Fprintf(w, "  [%d]", c.Time)
		if verbose {
			fmt.Fprintf(w, " goals=%d", c.Goals)
		}
		fmt.Fprintln(w)
		writeLiterals(w, "actions", c.Actions)
		writeLiterals(w, "observations", c.Observations)
		writeLiterals(w, "fluents", c.Fluents)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Events ===")
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Events {
		if ev.Message != "" {
			fmt.Fprintf(w, "  [%d] %s: %s\n", ev.Time, ev.Type, ev.Message)
		} else {
			fmt.Fprintf(w, "  [%d] %s\n", ev.Time, ev.Type)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Cycles:       %d\n", result.Stats.Cycles)
	fmt.Fprintf(w, "  Actions:      %d\n", result.Stats.Actions)
	fmt.Fprintf(w, "  Observations: %d\n", result.Stats.Observations)
	fmt.Fprintf(w, "  Warnings:     %d\n", result.Stats.Warnings)
	return nil
}

func writeLiterals(w io.Writer, label string, lits []string) {
	if len(lits) == 0 {
		return
	}
	fmt.Fprintf(w, "       %s: %s\n", label, strings.Join(lits, ", "))
}

// cmdContext returns the command's context, or Background outside Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

// completeStatus returns a human-readable completion status.
func completeStatus(isComplete bool) string {
	if isComplete {
		return "Complete"
	}
	return "Incomplete (no done event)"
}

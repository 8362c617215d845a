package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/lps/internal/engine"
	"github.com/roach88/lps/internal/store"
	"github.com/roach88/lps/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database      string
	MetricsAddr   string
	TraceExporter string
	MaxTime       int64
	Interval      time.Duration
	Continuous    bool
	Queries       []string
	QueryKind     string

	// RunIDGenerator overrides the journal run id generator (for testing).
	// If nil, the engine uses UUIDv7 ids.
	RunIDGenerator engine.RunIDGenerator
}

// CycleReport is what run prints after every cycle.
type CycleReport struct {
	Time         int64    `json:"time"`
	Actions      []string `json:"actions"`
	Observations []string `json:"observations"`
	Fluents      []string `json:"fluents"`
}

// RunSummary is printed once the engine has finished.
type RunSummary struct {
	RunID     string        `json:"run_id,omitempty"`
	FinalTime int64         `json:"final_time"`
	Warnings  []string      `json:"warnings,omitempty"`
	Queries   []QueryAnswer `json:"queries,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Run a program until its max time",
		Long: `Run an LPS program (a .cue file or a directory of them).

The engine cycles until maxTime, printing the actions and observations
that occurred over each transition and the fluents holding after it.
Flags override the program's settings. With --db every cycle is
journalled so the run can be inspected later with "lps trace".

Example:
  lps run ./fire.cue
  lps run --db ./lps.db --max-time 10 --interval 50ms ./fire.cue
  lps run --continuous --metrics-addr :9464 --format json ./programs
  lps run --query 'fire(X)' --query-kind fluent ./fire.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (optional)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&opts.TraceExporter, "trace-exporter", telemetry.ExporterNone, "cycle span exporter (stdout|none)")
	cmd.Flags().Int64Var(&opts.MaxTime, "max-time", 0, "override the program's maxTime")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "override the program's cycleInterval")
	cmd.Flags().BoolVar(&opts.Continuous, "continuous", false, "start the next cycle as soon as one ends")
	cmd.Flags().StringArrayVar(&opts.Queries, "query", nil, "literal to query once the run ends (repeatable)")
	cmd.Flags().StringVar(&opts.QueryKind, "query-kind", engine.QueryProgram.String(), "what --query answers from (program|fluent|action|observation)")

	return cmd
}

func runEngine(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := opts.Logger(cmd.ErrOrStderr())

	switch opts.TraceExporter {
	case telemetry.ExporterNone, telemetry.ExporterStdout:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid trace exporter %q: must be stdout or none", opts.TraceExporter))
	}

	queries, err := parseRunQueries(opts.Queries, opts.QueryKind)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}

	logger.Info("compiling program", "path", path)
	compiled, err := LoadProgram(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile program", err)
	}
	for _, w := range compiled.Warnings {
		logger.Warn("recursive definition", "path", strings.Join(w.Path, " -> "))
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tcfg := telemetry.DefaultConfig()
	tcfg.TraceExporter = opts.TraceExporter
	tcfg.MetricExporter = telemetry.ExporterNone
	if opts.MetricsAddr != "" {
		tcfg.MetricExporter = telemetry.ExporterPrometheus
	}
	tcfg.Writer = cmd.ErrOrStderr()
	tel, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to init telemetry", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown", "error", err)
		}
	}()

	engOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.Database != "" {
		logger.Info("opening journal", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		engOpts = append(engOpts, engine.WithJournal(st))
	}
	if opts.RunIDGenerator != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(opts.RunIDGenerator))
	}

	eng, err := engine.New(compiled.Program, engOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	defer eng.Close()

	if err := eng.Load(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}
	if err := applyRunFlags(eng, opts, cmd); err != nil {
		return WrapExitError(ExitCommandError, "invalid flag", err)
	}
	logger.Debug("observations scheduled", "times", eng.ScheduledObservationTimes())

	printer := newCyclePrinter(cmd.OutOrStdout(), opts.Format)
	eng.On(engine.EventPostCycle, func(ev engine.Event) {
		printer.cycle(CycleReport{
			Time:         ev.Time,
			Actions:      eng.LastCycleActions(),
			Observations: eng.LastCycleObservations(),
			Fluents:      eng.ActiveFluents(),
		})
	})
	var warnings []string
	eng.On(engine.EventWarning, func(ev engine.Event) {
		if ev.Warning != nil {
			warnings = append(warnings, ev.Warning.Message)
		}
	})

	if err := superviseRun(ctx, eng, tel.MetricsHandler(), opts.MetricsAddr, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("engine stopped by signal", "time", eng.CurrentTime())
			return nil
		}
		return printer.failure(eng.RunID(), err)
	}

	answers, err := answerQueries(eng, queries)
	if err != nil {
		return WrapExitError(ExitFailure, "query failed", err)
	}

	return printer.summary(RunSummary{RunID: eng.RunID(), FinalTime: eng.CurrentTime(), Warnings: warnings, Queries: answers})
}

// applyRunFlags overrides the program's settings with the flags the user
// actually set.
func applyRunFlags(eng *engine.Engine, opts *RunOptions, cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("max-time") {
		if err := eng.SetMaxTime(opts.MaxTime); err != nil {
			return err
		}
	}
	if flags.Changed("interval") {
		if err := eng.SetCycleInterval(opts.Interval); err != nil {
			return err
		}
	}
	if flags.Changed("continuous") {
		if err := eng.SetContinuousExecution(opts.Continuous); err != nil {
			return err
		}
	}
	return nil
}

// superviseRun runs the engine and, when addr is set, a metrics server
// that is shut down once the engine stops.
func superviseRun(ctx context.Context, eng *engine.Engine, metrics http.Handler, addr string, logger *slog.Logger) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		return eng.Run(gctx)
	})

	if addr != "" && metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics)
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// cyclePrinter writes cycle reports as text lines or JSON lines.
type cyclePrinter struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
	out  *OutputFormatter
}

func newCyclePrinter(w io.Writer, format string) *cyclePrinter {
	return &cyclePrinter{w: w, json: format == "json", out: &OutputFormatter{Format: format, Writer: w}}
}

func (p *cyclePrinter) cycle(r CycleReport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		_ = json.NewEncoder(p.w).Encode(r)
		return
	}
	fmt.Fprintf(p.w, "[%d] actions: %s | observations: %s | fluents: %s\n",
		r.Time, joinOrDash(r.Actions), joinOrDash(r.Observations), joinOrDash(r.Fluents))
}

func (p *cyclePrinter) summary(s RunSummary) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		return p.out.SuccessForRun(s.RunID, s)
	}
	fmt.Fprintf(p.w, "Done at time %d", s.FinalTime)
	if s.RunID != "" {
		fmt.Fprintf(p.w, " (run %s)", s.RunID)
	}
	fmt.Fprintln(p.w)
	for _, w := range s.Warnings {
		fmt.Fprintf(p.w, "  warning: %s\n", w)
	}
	for _, a := range s.Queries {
		writeQueryAnswer(p, a)
	}
	return nil
}

// failure reports the error that stopped the engine. JSON output ends with
// an error envelope naming the journalled run, if any.
func (p *cyclePrinter) failure(runID string, err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		_ = json.NewEncoder(p.w).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: engineErrorCode(err), Message: err.Error()},
			RunID:  runID,
		})
	}
	return WrapExitError(ExitFailure, "engine error", err)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

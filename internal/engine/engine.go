package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/lps/internal/goal"
	"github.com/roach88/lps/internal/program"
	"github.com/roach88/lps/internal/store"
)

const (
	// DefaultMaxTime is the number of cycles a program runs for unless
	// configured otherwise.
	DefaultMaxTime = 20

	// DefaultCycleInterval is the time between cycle starts.
	DefaultCycleInterval = 100 * time.Millisecond

	instrumentationName = "github.com/roach88/lps/internal/engine"
)

// Engine runs a program through discrete cycles.
//
// The engine exclusively owns the live program. Every constraint check
// works on a clone, so a rejected candidate never touches the live state.
//
// Thread-safety model:
//   - Engine state is guarded by mu, held for the whole of a cycle and
//     released between cycles.
//   - inCycle is set without the lock, so a Step issued while a cycle is
//     running is detected immediately as an overrun.
//   - Listeners are called after mu is released, on the goroutine that
//     raised the event.
//
// INVARIANTS:
//   - currentTime only increases, by exactly one per completed cycle
//   - live rules, goals and state change only inside performCycle
//   - Load runs at most once
type Engine struct {
	mu sync.Mutex

	prog    *program.Program
	logger  *slog.Logger
	wall    WallClock
	seq     *Clock
	tracer  trace.Tracer
	meter   metric.Meter
	cycles  metric.Int64Counter
	elapsed metric.Float64Histogram

	journal     *store.Store
	runIDs      RunIDGenerator
	runID       string
	programHash string // identity of the program as loaded

	maxTime    int64
	interval   atomic.Int64 // time.Duration; read without mu by overrun
	continuous bool

	currentTime int64
	now         atomic.Int64
	goals       []*goal.Tree
	obs         *observationQueue

	nextActions      *program.LiteralSet
	nextObservations *program.LiteralSet
	lastActions      *program.LiteralSet
	lastObservations *program.LiteralSet

	loaded     bool
	running    bool
	paused     bool
	doneRaised bool
	inCycle    atomic.Bool
	overrunErr atomic.Pointer[CycleOverrunError]
	cycleCount atomic.Int64
	wake       chan struct{}

	listeners map[EventType][]Listener
	outbox    []pendingEvent
	profiler  *Profiler
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxTime sets the time at which the engine halts.
func WithMaxTime(t int64) Option {
	return func(e *Engine) { e.maxTime = t }
}

// WithCycleInterval sets the pacing between cycle starts and the overrun
// watchdog.
func WithCycleInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval.Store(int64(d)) }
}

// WithContinuousExecution starts each cycle as soon as the previous one
// ends instead of on the interval.
func WithContinuousExecution(on bool) Option {
	return func(e *Engine) { e.continuous = on }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithJournal records every completed cycle and every warning, error and
// done event in s.
func WithJournal(s *store.Store) Option {
	return func(e *Engine) { e.journal = s }
}

// WithRunIDGenerator names journal runs. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) { e.runIDs = g }
}

// WithBuiltins replaces the program's builtin predicates.
func WithBuiltins(b *program.Builtins) Option {
	return func(e *Engine) { e.prog.SetBuiltins(b) }
}

// WithClock sets the wall clock used for cycle timing statistics.
func WithClock(c WallClock) Option {
	return func(e *Engine) { e.wall = c }
}

// WithSeqClock sets the logical clock stamping journal records.
func WithSeqClock(c *Clock) Option {
	return func(e *Engine) { e.seq = c }
}

// WithMeterProvider sets the provider for profiler gauges and cycle
// metrics. Default: the global otel provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meter = mp.Meter(instrumentationName) }
}

// WithTracerProvider sets the provider for cycle spans. Default: the global
// otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(instrumentationName) }
}

// New creates an engine for p. The engine takes ownership of p; callers
// must not modify it afterwards.
func New(p *program.Program, opts ...Option) (*Engine, error) {
	e := &Engine{
		prog:             p,
		logger:           slog.Default(),
		wall:             systemClock{},
		seq:              NewClock(),
		runIDs:           UUIDv7Generator{},
		maxTime:          DefaultMaxTime,
		obs:              newObservationQueue(),
		nextActions:      program.NewLiteralSet(),
		nextObservations: program.NewLiteralSet(),
		lastActions:      program.NewLiteralSet(),
		lastObservations: program.NewLiteralSet(),
		wake:             make(chan struct{}, 1),
		listeners:        make(map[EventType][]Listener),
	}
	e.interval.Store(int64(DefaultCycleInterval))
	for _, opt := range opts {
		opt(e)
	}
	if e.meter == nil {
		e.meter = otel.Meter(instrumentationName)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(instrumentationName)
	}

	var err error
	if e.profiler, err = newProfiler(e.meter); err != nil {
		return nil, err
	}
	if e.cycles, err = e.meter.Int64Counter("lps.cycles", metric.WithDescription("completed cycles")); err != nil {
		return nil, fmt.Errorf("create cycle counter: %w", err)
	}
	if e.elapsed, err = e.meter.Float64Histogram("lps.cycle.duration", metric.WithUnit("ms"), metric.WithDescription("cycle execution time")); err != nil {
		return nil, fmt.Errorf("create cycle histogram: %w", err)
	}
	return e, nil
}

// Close releases the engine's metric registrations. The journal, if any,
// is owned by the caller.
func (e *Engine) Close() error {
	return e.profiler.close()
}

// Profiler returns the engine's statistics.
func (e *Engine) Profiler() *Profiler { return e.profiler }

// RunID returns the journal run id, or "" before the first journaled cycle.
func (e *Engine) RunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runID
}

// CurrentTime returns the engine's time: the time of the last cycle
// started, or 0 before the first.
func (e *Engine) CurrentTime() int64 { return e.now.Load() }

// MaxTime returns the time at which the engine halts.
func (e *Engine) MaxTime() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxTime
}

// CycleInterval returns the pacing between cycle starts.
func (e *Engine) CycleInterval() time.Duration {
	return time.Duration(e.interval.Load())
}

// IsContinuousExecution reports whether cycles run back to back.
func (e *Engine) IsContinuousExecution() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.continuous
}

// IsRunning reports whether Run is driving the engine.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// IsPaused reports whether the engine is paused.
func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// IsInCycle reports whether a cycle is in progress.
func (e *Engine) IsInCycle() bool { return e.inCycle.Load() }

// SetMaxTime changes the halting time. It fails while running or for
// non-positive values.
func (e *Engine) SetMaxTime(t int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errWhileRunning("maxTime")
	}
	if t <= 0 {
		return errInvalidValue("maxTime", t)
	}
	e.maxTime = t
	return nil
}

// SetCycleInterval changes the pacing. Sub-millisecond intervals are
// rejected as are changes while running.
func (e *Engine) SetCycleInterval(d time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errWhileRunning("cycleInterval")
	}
	if d < time.Millisecond {
		return errInvalidValue("cycleInterval", d)
	}
	e.interval.Store(int64(d))
	return nil
}

// SetContinuousExecution switches between continuous and interval pacing.
func (e *Engine) SetContinuousExecution(on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errWhileRunning("continuousExecution")
	}
	e.continuous = on
	return nil
}

// Define registers a builtin predicate. It fails while running or for an
// invalid name/arity id.
func (e *Engine) Define(id string, fn program.BuiltinFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errWhileRunning("define " + id)
	}
	if err := e.prog.Builtins().Define(id, fn); err != nil {
		return fmt.Errorf("define %s: %w", id, err)
	}
	return nil
}

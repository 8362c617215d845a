package engine

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// Profiler counter names.
const (
	StatFiredRules      = "lastCycleNumFiredRules"
	StatFailedGoals     = "lastCycleNumFailedGoals"
	StatResolvedGoals   = "lastCycleNumResolvedGoals"
	StatNewRules        = "lastCycleNumNewRules"
	StatDiscardedRules  = "lastCycleNumDiscardedRules"
	StatExecutionTime   = "lastCycleExecutionTime"
	StatState           = "numState"
	StatUnresolvedGoals = "lastCycleNumUnresolvedGoals"
	StatActions         = "lastCycleNumActions"
	StatObservations    = "lastCycleNumObservations"
	StatPaused          = "numPaused"
)

var statNames = []string{
	StatFiredRules, StatFailedGoals, StatResolvedGoals, StatNewRules,
	StatDiscardedRules, StatExecutionTime, StatState, StatUnresolvedGoals,
	StatActions, StatObservations, StatPaused,
}

// Profiler keeps per-cycle statistics. Every counter is mirrored as an
// OpenTelemetry gauge named "lps.<counter>".
//
// Thread-safety: Profiler is safe for concurrent use.
type Profiler struct {
	mu     sync.Mutex
	values map[string]int64

	registration metric.Registration
}

func newProfiler(meter metric.Meter) (*Profiler, error) {
	p := &Profiler{values: make(map[string]int64, len(statNames))}
	for _, name := range statNames {
		p.values[name] = 0
	}

	gauges := make(map[string]metric.Int64ObservableGauge, len(statNames))
	observables := make([]metric.Observable, 0, len(statNames))
	for _, name := range statNames {
		g, err := meter.Int64ObservableGauge("lps."+name, metric.WithDescription("lps engine statistic "+name))
		if err != nil {
			return nil, fmt.Errorf("create gauge %s: %w", name, err)
		}
		gauges[name] = g
		observables = append(observables, g)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for name, v := range p.Snapshot() {
			o.ObserveInt64(gauges[name], v)
		}
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register profiler callback: %w", err)
	}
	p.registration = reg
	return p, nil
}

// Get returns the value of a counter. Unknown names read as 0.
func (p *Profiler) Get(name string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[name]
}

// Set stores v.
func (p *Profiler) Set(name string, v int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[name] = v
}

// Increment adds one.
func (p *Profiler) Increment(name string) { p.IncreaseBy(name, 1) }

// IncreaseBy adds n.
func (p *Profiler) IncreaseBy(name string, n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[name] += n
}

// Snapshot returns a copy of every counter.
func (p *Profiler) Snapshot() map[string]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return maps.Clone(p.values)
}

// Names returns the counter names in sorted order.
func (p *Profiler) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Sorted(maps.Keys(p.values))
}

func (p *Profiler) resetCycle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, name := range []string{StatFiredRules, StatFailedGoals, StatResolvedGoals, StatNewRules, StatDiscardedRules} {
		p.values[name] = 0
	}
}

func (p *Profiler) close() error {
	if p.registration == nil {
		return nil
	}
	return p.registration.Unregister()
}

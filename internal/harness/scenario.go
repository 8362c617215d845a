package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lps/internal/parse"
)

// Scenario runs a program for a number of cycles with scheduled
// observations and checks what happened.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path to the .cue program, relative to the scenario
	// file.
	Program string `yaml:"program"`

	// MaxTime overrides the program's maxTime setting when > 0.
	MaxTime int64 `yaml:"max_time,omitempty"`

	// RunID names the journal run. Defaults to testutil.FixedRunID.
	RunID string `yaml:"run_id,omitempty"`

	// Observations are scheduled after the program is loaded.
	Observations []ObservationStep `yaml:"observations,omitempty"`

	// Expect lists per-time checks made right after the cycle ending at
	// that time.
	Expect []Expectation `yaml:"expect,omitempty"`

	// Assertions check the whole trace once the run has ended.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ObservationStep schedules Term over [At, Until). Until defaults to At+1.
type ObservationStep struct {
	Term  string `yaml:"term"`
	At    int64  `yaml:"at"`
	Until *int64 `yaml:"until,omitempty"`
}

// Expectation checks the engine after the cycle ending at Time.
//
// Actions and Observations are compared as sets when present; an empty
// list means "none". Fluents must all hold and NotFluents must all be
// absent.
type Expectation struct {
	Time         int64    `yaml:"time"`
	Actions      []string `yaml:"actions,omitempty"`
	Observations []string `yaml:"observations,omitempty"`
	Fluents      []string `yaml:"fluents,omitempty"`
	NotFluents   []string `yaml:"not_fluents,omitempty"`
}

// Assertion validates the trace after the run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Literal of Kind occurs (at Time, if given)
	// - "trace_order": Actions first occur in this order
	// - "trace_count": Literal of Kind occurs exactly Count times
	// - "final_state": Fluents hold at the final time
	Type string `yaml:"type"`

	// Kind is action, observation or fluent. Defaults to action.
	Kind string `yaml:"kind,omitempty"`

	// Literal is the term to look for (trace_contains, trace_count).
	Literal string `yaml:"literal,omitempty"`

	// Time restricts trace_contains to one cycle.
	Time *int64 `yaml:"time,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order of first occurrences (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Fluents must hold when the run ends (final_state).
	Fluents []string `yaml:"fluents,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. The program path is
// resolved against the scenario's directory. Unknown fields (typos) and
// missing required fields are errors. Literals are normalised to the
// engine's rendering so "q( a )" matches "q(a)".
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath is LoadScenario with program paths resolved
// against basePath instead.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) && basePath != "" {
		scenario.Program = filepath.Join(basePath, scenario.Program)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and normalises literals in place.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); os.IsNotExist(err) {
		return fmt.Errorf("program file not found: %s", s.Program)
	}
	if s.MaxTime < 0 {
		return fmt.Errorf("max_time must be non-negative")
	}
	if len(s.Expect) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	for i := range s.Observations {
		o := &s.Observations[i]
		term, err := normalise(o.Term)
		if err != nil {
			return fmt.Errorf("observations[%d]: %w", i, err)
		}
		o.Term = term
		if o.At < 0 {
			return fmt.Errorf("observations[%d]: at must be non-negative", i)
		}
		if o.Until != nil && *o.Until <= o.At {
			return fmt.Errorf("observations[%d]: until must be after at", i)
		}
	}

	for i := range s.Expect {
		e := &s.Expect[i]
		if e.Time <= 0 {
			return fmt.Errorf("expect[%d]: time must be positive", i)
		}
		for _, list := range [][]string{e.Actions, e.Observations, e.Fluents, e.NotFluents} {
			if err := normaliseAll(list); err != nil {
				return fmt.Errorf("expect[%d]: %w", i, err)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	switch a.Kind {
	case "":
		a.Kind = KindAction
	case KindAction, KindObservation, KindFluent:
	default:
		return fmt.Errorf("assertions[%d]: unknown kind %q", index, a.Kind)
	}

	switch a.Type {
	case AssertTraceContains, AssertTraceCount:
		if a.Literal == "" {
			return fmt.Errorf("assertions[%d]: literal is required for %s", index, a.Type)
		}
		lit, err := normalise(a.Literal)
		if err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		a.Literal = lit
		if a.Type == AssertTraceCount && a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
		if err := normaliseAll(a.Actions); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertFinalState:
		if len(a.Fluents) == 0 {
			return fmt.Errorf("assertions[%d]: fluents is required for final_state", index)
		}
		if err := normaliseAll(a.Fluents); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func normalise(src string) (string, error) {
	t, err := parse.Term(src)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

func normaliseAll(list []string) error {
	for i, src := range list {
		lit, err := normalise(src)
		if err != nil {
			return err
		}
		list[i] = lit
	}
	return nil
}

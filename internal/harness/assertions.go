package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/lps/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nActions and observations:\n")
		for _, ev := range e.Trace {
			if ev.Kind == KindAction || ev.Kind == KindObservation {
				fmt.Fprintf(&buf, "  [%d] %s %s\n", ev.Time, ev.Kind, ev.Literal)
			}
		}
	}
	return buf.String()
}

// assertTraceContains checks that the literal occurs with the given kind,
// at the given time when one is set.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Kind == a.Kind && ev.Literal == a.Literal && (a.Time == nil || ev.Time == *a.Time) {
			return nil
		}
	}

	expected := fmt.Sprintf("%s %s", a.Kind, a.Literal)
	if a.Time != nil {
		expected += fmt.Sprintf(" at time %d", *a.Time)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first occurrence of each action is in a
// strictly earlier cycle than the next one's. Other actions may intervene.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	first := make(map[string]int64)
	for _, ev := range trace {
		if ev.Kind != KindAction || !slices.Contains(a.Actions, ev.Literal) {
			continue
		}
		if _, seen := first[ev.Literal]; !seen {
			first[ev.Literal] = ev.Time
		}
	}

	for _, action := range a.Actions {
		if _, ok := first[action]; !ok {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", a.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Actions); i++ {
		prev, curr := a.Actions[i-1], a.Actions[i]
		if first[prev] >= first[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (time %d) should be before %s (time %d)",
					prev, first[prev], curr, first[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that the literal of the given kind occurs
// exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Kind == a.Kind && ev.Literal == a.Literal {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s %s", a.Count, a.Kind, a.Literal),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks in the journal that every fluent was recorded
// at the final time.
func assertFinalState(actx *AssertionContext, a Assertion) error {
	var missing []string
	for _, fluent := range a.Fluents {
		times, err := actx.Store.FindLiteral(actx.Ctx, actx.RunID, store.KindFluent, fluent)
		if err != nil {
			return fmt.Errorf("final_state: %w", err)
		}
		if !slices.Contains(times, actx.FinalTime) {
			missing = append(missing, fluent)
		}
	}

	if len(missing) > 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("fluents %v at time %d", a.Fluents, actx.FinalTime),
			Actual:   fmt.Sprintf("missing %v", missing),
		}
	}
	return nil
}

// AssertionContext provides the journal a run was recorded in.
type AssertionContext struct {
	Store     *store.Store
	Ctx       context.Context
	RunID     string
	FinalTime int64
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

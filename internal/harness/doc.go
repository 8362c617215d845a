// Package harness runs LPS programs against YAML scenarios.
//
// A scenario names a .cue program, schedules observations, and checks the
// engine after chosen cycles. The harness drives a real engine in step
// mode with a journal in an in-memory SQLite database, then reads the
// trace back from the journal for assertions and golden comparison.
//
// # Scenario Format
//
//	name: fire
//	description: "the fire is dealt with after smoke is seen"
//	program: fire.cue
//	max_time: 5
//	observations:
//	  - term: smoke
//	    at: 1
//	    until: 3
//	expect:
//	  - time: 2
//	    observations: [smoke]
//	  - time: 3
//	    actions: [eliminate]
//	    not_fluents: [fire]
//	assertions:
//	  - type: trace_count
//	    literal: eliminate
//	    count: 1
//	  - type: final_state
//	    fluents: [safe]
//
// An observation scheduled for time t is admitted while the engine
// processes t and is reported by the cycle ending at t+1, the same way a
// selected action is.
//
// # Assertion Types
//
//   - trace_contains: a literal of a kind occurs, optionally at a time
//   - trace_order: actions first occur in strictly increasing cycles
//   - trace_count: a literal of a kind occurs exactly N times
//   - final_state: fluents are journalled at the final time
//
// # Deterministic Testing
//
// The run id (scenario run_id or testutil.FixedRunID) and the wall clock
// (testutil.StepClock) are fixed, so two runs of a scenario produce the
// same trace bytes for golden comparison.
package harness

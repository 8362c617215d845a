package harness

// Trace event kinds. Literal kinds match the journal's literal kinds; the
// others are engine events.
const (
	KindAction      = "action"
	KindObservation = "observation"
	KindFluent      = "fluent"
	KindWarning     = "warning"
	KindError       = "error"
	KindDone        = "done"
)

// TraceEvent is one entry of a run trace: a literal recorded for a cycle,
// or an engine event.
type TraceEvent struct {
	Time    int64  `json:"time"`
	Kind    string `json:"kind"`
	Literal string `json:"literal,omitempty"`
	Start   int64  `json:"start,omitempty"`
	End     int64  `json:"end,omitempty"`
	Message string `json:"message,omitempty"`
	Seq     int64  `json:"seq"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// RunID is the journal run the trace was read from.
	RunID string `json:"run_id"`

	// FinalTime is the engine time when the run ended.
	FinalTime int64 `json:"final_time"`

	// Trace holds the journalled cycles and events in sequence order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`

	// Warnings are the messages of warning events, e.g. rejected
	// observations.
	Warnings []string `json:"warnings,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Of returns the trace events of one kind.
func (r *Result) Of(kind string) []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

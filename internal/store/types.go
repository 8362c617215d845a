package store

// LiteralKind classifies a literal recorded for a cycle.
type LiteralKind string

const (
	KindAction      LiteralKind = "action"
	KindObservation LiteralKind = "observation"
	KindFluent      LiteralKind = "fluent"
)

// Run is one engine execution of a program.
type Run struct {
	ID          string
	ProgramHash string
	MaxTime     int64
	Seq         int64
}

// CycleLiteral is an action or observation that occurred over
// [Start, End], or a fluent that held at Start == End.
type CycleLiteral struct {
	Kind    LiteralKind
	Literal string
	Start   int64
	End     int64
}

// Cycle is the journal entry written after a completed cycle.
type Cycle struct {
	RunID    string
	Time     int64
	Goals    int
	Seq      int64
	Literals []CycleLiteral
}

// Of returns the literal strings of the given kind, in recorded order.
func (c Cycle) Of(kind LiteralKind) []string {
	out := []string{}
	for _, l := range c.Literals {
		if l.Kind == kind {
			out = append(out, l.Literal)
		}
	}
	return out
}

// Event is an engine event (warning, error, done) recorded for a run.
type Event struct {
	RunID   string
	Time    int64
	Type    string
	Message string
	Seq     int64
}

package testutil

// FixedRunID is the run id used by golden traces.
const FixedRunID = "test-run-00000000-0000-0000-0000-000000000001"

// FixedRunIDGenerator returns the same run id every time.
//
// Unlike engine.FixedGenerator which hands out ids in sequence, this
// generator is stateless, so the same scenario journaled twice produces
// identical rows.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id. An empty id means
// FixedRunID.
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = FixedRunID
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}

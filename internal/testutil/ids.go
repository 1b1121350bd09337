// Package testutil holds helpers shared by tests across packages.
package testutil

import "github.com/roach88/mjgrid/internal/recording"

// FixedRunIDGenerator generates the same run ID every time.
//
// Unlike recording.FixedGenerator which returns IDs in sequence, this
// generator never runs out, so a scenario that records several runs can
// name them all after itself.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

var _ recording.IDGenerator = (*FixedRunIDGenerator)(nil)

// NewFixedRunIDGenerator creates a fixed run ID generator.
//
// If id is empty, Generate returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run ID.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}

// Package wfc implements Wave Function Collapse over the engine's grids.
//
// A Model (Overlap or Tile) supplies patterns, weights and a propagator.
// The Solver collapses a Wave of those patterns, and the model turns the
// wave back into cell values with Votes.
package wfc

import (
	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rng"
)

// Model is the pattern source behind a WFC node.
type Model interface {
	Propagator() [][][]int
	Weights() []float64
	// PatternSize is the extent used for non-periodic edge exclusion.
	PatternSize() int
	// OutputDims maps the wave extent to the output grid extent.
	OutputDims(mx, my, mz int) (int, int, int)
	// Votes writes the most supported value of every output cell of the
	// wave described by cfg.
	Votes(w *Wave, cfg Config, out grid.Ops, r *rng.RNG)
}

// SolverConfig builds the solver configuration for m over a wave of the
// given extent.
func SolverConfig(m Model, mx, my, mz int, periodic, shannon bool) Config {
	return Config{
		Propagator: m.Propagator(),
		Weights:    m.Weights(),
		N:          m.PatternSize(),
		Periodic:   periodic,
		Shannon:    shannon,
		MX:         mx,
		MY:         my,
		MZ:         mz,
	}
}

// argmaxVote picks the value with the most votes, breaking ties with a
// draw below 0.1.
func argmaxVote(votes []int, r *rng.RNG) byte {
	best := -1.0
	var arg byte
	for c, v := range votes {
		score := float64(v) + 0.1*r.Float64()
		if score > best {
			best = score
			arg = byte(c)
		}
	}
	return arg
}

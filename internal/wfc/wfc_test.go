package wfc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rng"
	"github.com/roach88/mjgrid/internal/rule"
)

// solve collapses m over an mx×my wave and renders the votes.
func solve(t *testing.T, m Model, mx, my int, seed uint64) (*Solver, *grid.Grid) {
	t.Helper()
	cfg := SolverConfig(m, mx, my, 1, true, false)
	s := NewSolver(cfg)
	require.True(t, s.Init(nil))

	parent := rng.New(seed)
	good, ok := s.GoodSeed(parent, 10)
	require.True(t, ok, "no good seed")

	local := rng.New(good)
	for {
		st := s.Step(local)
		require.NotEqual(t, Contradiction, st)
		if st == Done {
			break
		}
	}

	omx, omy, omz := m.OutputDims(mx, my, 1)
	out := grid.MustNew(omx, omy, omz, "BW")
	m.Votes(s.Wave(), cfg, out, rng.New(1))
	return s, out
}

func assertCheckerboard(t *testing.T, g *grid.Grid) {
	t.Helper()
	for y := 0; y < g.MY; y++ {
		for x := 0; x < g.MX; x++ {
			v := g.Get(x, y, 0)
			if x+1 < g.MX {
				assert.NotEqual(t, v, g.Get(x+1, y, 0), "(%d,%d) vs right", x, y)
			}
			if y+1 < g.MY {
				assert.NotEqual(t, v, g.Get(x, y+1, 0), "(%d,%d) vs below", x, y)
			}
		}
	}
}

func TestOverlap_ExtractsCountedPatterns(t *testing.T) {
	sample := []byte{
		0, 1,
		1, 0,
	}
	o, err := NewOverlap(sample, 2, 2, 2, 2, true, rule.SubgroupNone)
	require.NoError(t, err)
	require.Len(t, o.Patterns(), 2)
	assert.Equal(t, []float64{2, 2}, o.Weights())
	assert.Equal(t, []int{1}, o.Propagator()[0][0], "B-first pattern is followed by its complement")
}

func TestOverlap_SymmetryVariantsAddWeight(t *testing.T) {
	sample := make([]byte, 9)
	o, err := NewOverlap(sample, 3, 3, 2, 2, false, rule.SubgroupAll)
	require.NoError(t, err)
	require.Len(t, o.Patterns(), 1)
	assert.Equal(t, []float64{32}, o.Weights(), "four windows times eight identical variants")
}

func TestOverlap_Errors(t *testing.T) {
	_, err := NewOverlap([]byte{0, 1}, 2, 1, 2, 2, false, rule.SubgroupAll)
	assert.Error(t, err, "sample smaller than pattern")

	_, err = NewOverlap([]byte{0, 5}, 2, 1, 2, 1, false, rule.SubgroupAll)
	assert.Error(t, err, "value outside alphabet")

	_, err = NewOverlap([]byte{0}, 2, 1, 2, 1, false, rule.SubgroupAll)
	assert.Error(t, err, "length mismatch")
}

func TestOverlap_PatternsStartingWith(t *testing.T) {
	o, err := NewOverlap([]byte{0, 1, 1, 0}, 2, 2, 2, 2, true, rule.SubgroupNone)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, o.PatternsStartingWith(0b01))
	assert.Equal(t, []bool{true, true}, o.PatternsStartingWith(0b11))
}

func TestOverlap_SolvesCheckerboard(t *testing.T) {
	o, err := NewOverlap([]byte{0, 1, 1, 0}, 2, 2, 2, 2, true, rule.SubgroupNone)
	require.NoError(t, err)

	_, out := solve(t, o, 4, 4, 7)
	assertCheckerboard(t, out)
}

func checkerTiles(t *testing.T) *Tile {
	t.Helper()
	tile, err := NewTile(
		[]TileSpec{
			{Name: "black", Pattern: []byte{0}, Symmetry: rule.SubgroupAll},
			{Name: "white", Pattern: []byte{1}, Symmetry: rule.SubgroupAll},
		},
		[]Adjacency{
			{A: "black", B: "white"},
			{A: "white", B: "black"},
		},
		1, 0, 2,
	)
	require.NoError(t, err)
	return tile
}

func TestTile_AdjacencyRotatesIntoEveryDirection(t *testing.T) {
	tile := checkerTiles(t)
	for d := 0; d < 4; d++ {
		assert.Equal(t, []int{1}, tile.Propagator()[d][0], "direction %d", d)
		assert.Equal(t, []int{0}, tile.Propagator()[d][1], "direction %d", d)
	}
}

func TestTile_SolvesCheckerboard(t *testing.T) {
	_, out := solve(t, checkerTiles(t), 6, 4, 3)
	assertCheckerboard(t, out)
}

func TestTile_VariantsFollowSymmetry(t *testing.T) {
	// A corner tile has four distinct rotations and reflections map onto them.
	corner := []byte{
		1, 1,
		1, 0,
	}
	tile, err := NewTile([]TileSpec{{Name: "corner", Pattern: corner, Symmetry: rule.SubgroupAll}}, nil, 2, 0, 2)
	require.NoError(t, err)
	assert.Len(t, tile.Weights(), 4)

	tile, err = NewTile([]TileSpec{{Name: "corner", Pattern: corner, Symmetry: rule.SubgroupNone}}, nil, 2, 0, 2)
	require.NoError(t, err)
	assert.Len(t, tile.Weights(), 1)
	assert.Equal(t, []float64{1}, tile.Weights(), "zero weight defaults to one")
}

func TestTile_OutputDims(t *testing.T) {
	tile, err := NewTile([]TileSpec{{Name: "a", Pattern: make([]byte, 9), Symmetry: rule.SubgroupAll}}, nil, 3, 1, 2)
	require.NoError(t, err)
	mx, my, mz := tile.OutputDims(4, 2, 1)
	assert.Equal(t, [3]int{9, 5, 1}, [3]int{mx, my, mz})
}

func TestTile_Errors(t *testing.T) {
	spec := TileSpec{Name: "a", Pattern: []byte{0}, Symmetry: rule.SubgroupAll}

	_, err := NewTile([]TileSpec{spec, spec}, nil, 1, 0, 2)
	assert.Error(t, err, "duplicate name")

	_, err = NewTile([]TileSpec{spec}, []Adjacency{{A: "a", B: "b"}}, 1, 0, 2)
	assert.Error(t, err, "unknown neighbour")

	_, err = NewTile([]TileSpec{spec}, nil, 1, 1, 2)
	assert.Error(t, err, "overlap must be smaller than size")

	tile, err := NewTile([]TileSpec{spec}, nil, 1, 0, 2)
	require.NoError(t, err)
	_, err = tile.PatternsOf([]string{"missing"})
	assert.Error(t, err)
}

func TestTransformDir(t *testing.T) {
	tests := []struct {
		k, d, want int
	}{
		{0, 0, 0},
		{1, 0, 2},
		{2, 0, 3},
		{4, 0, 2},
		{6, 0, 1},
		{2, 1, 0},
		{1, 1, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, transformDir(tt.k, tt.d), "k=%d d=%d", tt.k, tt.d)
	}
}

func TestSolver_InitContradiction(t *testing.T) {
	s := NewSolver(SolverConfig(checkerTiles(t), 2, 2, 1, true, false))
	ok := s.Init(func(cell, p int) bool { return cell != 0 })
	assert.False(t, ok)
	assert.Equal(t, Contradiction, s.Step(rng.New(1)))
}

func TestSolver_InitConstraintPropagates(t *testing.T) {
	s := NewSolver(SolverConfig(checkerTiles(t), 4, 2, 1, true, false))
	require.True(t, s.Init(func(cell, p int) bool { return cell != 0 || p == 0 }))

	w := s.Wave()
	assert.Equal(t, []int{0, 1, 0, 1}, []int{w.Collapsed(0), w.Collapsed(1), w.Collapsed(2), w.Collapsed(3)})
	assert.Equal(t, []int{1, 0, 1, 0}, []int{w.Collapsed(4), w.Collapsed(5), w.Collapsed(6), w.Collapsed(7)})
	assert.Equal(t, -1, s.NextUnobserved(rng.New(1)))
	assert.Equal(t, Done, s.Step(rng.New(1)))
}

func TestSolver_GoodSeedIsDeterministic(t *testing.T) {
	o, err := NewOverlap([]byte{0, 1, 1, 0}, 2, 2, 2, 2, true, rule.SubgroupNone)
	require.NoError(t, err)

	_, a := solve(t, o, 6, 6, 42)
	_, b := solve(t, o, 6, 6, 42)
	assert.Equal(t, a.StateToBytes(), b.StateToBytes())
}

func TestSolver_ShannonEntropyTracksRemainingWeights(t *testing.T) {
	o, err := NewOverlap([]byte{0, 0, 1, 0, 1, 1, 1, 0, 0}, 3, 3, 2, 2, true, rule.SubgroupAll)
	require.NoError(t, err)
	require.Greater(t, len(o.Weights()), 2)
	s := NewSolver(SolverConfig(o, 5, 5, 1, true, true))
	require.True(t, s.Init(nil))

	s.Ban(0, 0)
	var sum, sumLog float64
	for p, w := range o.Weights()[1:] {
		require.True(t, s.Wave().Possible(0, p+1))
		sum += w
		sumLog += w * math.Log(w)
	}
	assert.InDelta(t, math.Log(sum)-sumLog/sum, s.Wave().Entropy(0), 1e-9)
	assert.Equal(t, len(o.Weights())-1, s.Wave().Remaining(0))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "progress", Progress.String())
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "contradiction", Contradiction.String())
}

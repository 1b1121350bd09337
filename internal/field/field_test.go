package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rule"
)

func wave(t *testing.T, g grid.Ops, chars string) uint32 {
	t.Helper()
	w, err := g.Alphabet().WaveOf(chars)
	require.NoError(t, err)
	return w
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestCompute_ManhattanOnOpenSubstrate(t *testing.T) {
	g, err := grid.FromRows("BR",
		"BBBBB",
		"BBBBB",
		"BBRBB",
		"BBBBB",
	)
	require.NoError(t, err)

	f := New(wave(t, g, "B"), wave(t, g, "R"))
	pot := make([]int32, g.Len())
	require.True(t, f.Compute(pot, g))

	for y := 0; y < g.MY; y++ {
		for x := 0; x < g.MX; x++ {
			want := abs(x-2) + abs(y-2)
			assert.Equal(t, int32(want), pot[g.Index(x, y, 0)], "cell (%d,%d)", x, y)
		}
	}
}

func TestCompute_WallBlocks(t *testing.T) {
	g, err := grid.FromRows("BRW",
		"RBWBB",
		"BBWBB",
		"BBWBB",
	)
	require.NoError(t, err)

	f := New(wave(t, g, "B"), wave(t, g, "R"))
	pot := make([]int32, g.Len())
	require.True(t, f.Compute(pot, g))

	assert.Equal(t, int32(0), pot[g.Index(0, 0, 0)])
	assert.Equal(t, int32(3), pot[g.Index(1, 2, 0)])
	assert.Equal(t, Unreachable, pot[g.Index(2, 1, 0)], "wall is not substrate")
	for y := 0; y < 3; y++ {
		for x := 3; x < 5; x++ {
			assert.Equal(t, Unreachable, pot[g.Index(x, y, 0)], "cell (%d,%d) is cut off", x, y)
		}
	}
}

func TestCompute_3D(t *testing.T) {
	g := grid.MustNew(2, 2, 3, "BR")
	require.NoError(t, g.Set(0, 0, 0, 1))

	f := New(wave(t, g, "B"), wave(t, g, "R"))
	pot := make([]int32, g.Len())
	require.True(t, f.Compute(pot, g))
	assert.Equal(t, int32(4), pot[g.Index(1, 1, 2)])
}

func TestCompute_NoSeeds(t *testing.T) {
	g := grid.MustNew(3, 3, 1, "BR")
	f := New(wave(t, g, "B"), wave(t, g, "R"))
	pot := make([]int32, g.Len())
	for i := range pot {
		pot[i] = 42
	}
	assert.False(t, f.Compute(pot, g))
	for _, p := range pot {
		assert.Equal(t, Unreachable, p)
	}
}

func TestDeltaPointwise(t *testing.T) {
	g, err := grid.FromRows("BRW", "RBBBB")
	require.NoError(t, err)
	alpha := g.Alphabet()

	// Field for W: distance from R through B.
	fields := make([]*Field, alpha.NumValues())
	fields[2] = New(wave(t, g, "B"), wave(t, g, "R"))

	potentials := make([][]int32, alpha.NumValues())
	for i := range potentials {
		potentials[i] = make([]int32, g.Len())
	}
	require.True(t, fields[2].Compute(potentials[2], g))

	r, err := rule.Parse(alpha, "B", "W", 1)
	require.NoError(t, err)

	d, ok := DeltaPointwise(g, r, 1, 0, 0, fields, potentials)
	require.True(t, ok)
	assert.Equal(t, 1, d)

	d, ok = DeltaPointwise(g, r, 4, 0, 0, fields, potentials)
	require.True(t, ok)
	assert.Equal(t, 4, d)

	fields[2].Inversed = true
	d, ok = DeltaPointwise(g, r, 4, 0, 0, fields, potentials)
	require.True(t, ok)
	assert.Equal(t, -4, d, "inversed prefers far cells")
}

func TestDeltaPointwise_Unreachable(t *testing.T) {
	g, err := grid.FromRows("BRW", "RBWB")
	require.NoError(t, err)
	alpha := g.Alphabet()

	fields := make([]*Field, alpha.NumValues())
	fields[2] = New(wave(t, g, "B"), wave(t, g, "R"))
	potentials := make([][]int32, alpha.NumValues())
	for i := range potentials {
		potentials[i] = make([]int32, g.Len())
	}
	require.True(t, fields[2].Compute(potentials[2], g))

	r, err := rule.Parse(alpha, "B", "W", 1)
	require.NoError(t, err)
	_, ok := DeltaPointwise(g, r, 3, 0, 0, fields, potentials)
	assert.False(t, ok)
}

func TestDeltaPointwise_SkipsAcceptedOutputs(t *testing.T) {
	g, err := grid.FromRows("BRW", "RBB")
	require.NoError(t, err)
	alpha := g.Alphabet()
	potentials := make([][]int32, alpha.NumValues())
	for i := range potentials {
		potentials[i] = []int32{-1, -1, -1}
	}

	// Output equals what the input already admits: nothing is scored.
	r, err := rule.Parse(alpha, "*", "B", 1)
	require.NoError(t, err)
	d, ok := DeltaPointwise(g, r, 1, 0, 0, nil, potentials)
	assert.True(t, ok)
	assert.Equal(t, 0, d)
}

func TestCompute_PolarRingWraps(t *testing.T) {
	p, err := grid.NewPolarDivisions(1, 1, 6, "BR")
	require.NoError(t, err)
	require.NoError(t, p.SetPolar(0, 0, 1))

	f := New(wave(t, p, "B"), wave(t, p, "R"))
	pot := make([]int32, p.Len())
	require.True(t, f.Compute(pot, p))
	assert.Equal(t, []int32{0, 1, 2, 3, 2, 1}, pot, "theta 5 is one step from theta 0")
}

func TestCompute_SphericalShellsStayBounded(t *testing.T) {
	s, err := grid.NewSpherical(1, 3, 4, 2, "BR")
	require.NoError(t, err)
	require.NoError(t, s.SetSpherical(0, 0, 0, 1))

	f := New(wave(t, s, "B"), wave(t, s, "R"))
	pot := make([]int32, s.Len())
	require.True(t, f.Compute(pot, s))

	at := func(r, theta, phi int) int32 { return pot[theta+phi*4+r*8] }
	assert.Equal(t, int32(1), at(0, 3, 0), "theta wraps")
	assert.Equal(t, int32(1), at(0, 0, 1))
	assert.Equal(t, int32(2), at(2, 0, 0), "r only grows outward")
	assert.Equal(t, int32(5), at(2, 2, 1))
}

func TestNeighbors(t *testing.T) {
	tests := []struct {
		name string
		wrap [3]bool
		want [][3]int
	}{
		{"bounded", [3]bool{}, [][3]int{{1, 0, 0}, {0, 1, 0}}},
		{"x wraps", [3]bool{true, false, false}, [][3]int{{3, 0, 0}, {1, 0, 0}, {0, 1, 0}}},
		{"both wrap", [3]bool{true, true, false}, [][3]int{{3, 0, 0}, {1, 0, 0}, {0, 2, 0}, {0, 1, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Neighbors(0, 0, 0, 4, 3, 1, tt.wrap))
		})
	}
}

func TestDeltaPointwise_WrapsAcrossSeam(t *testing.T) {
	p, err := grid.NewPolarDivisions(1, 1, 6, "BR")
	require.NoError(t, err)
	require.NoError(t, p.SetPolar(0, 2, 1))

	f := New(wave(t, p, "B"), wave(t, p, "R"))
	pots := [][]int32{make([]int32, p.Len()), make([]int32, p.Len())}
	require.True(t, f.Compute(pots[1], p))

	r, err := rule.Parse(p.Alphabet(), "BB", "RR", 1)
	require.NoError(t, err)
	// Anchored at theta 5 the rule writes theta 5 and theta 0.
	d, ok := DeltaPointwise(p, r, 5, 0, 0, []*Field{nil, f}, pots)
	require.True(t, ok)
	assert.Equal(t, 3+2, d)
}

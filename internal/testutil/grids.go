package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mjgrid/internal/grid"
)

// Rows builds a 2D grid from rows of characters and fails the test on a
// malformed picture.
//
//	g := testutil.Rows(t, "BW",
//		"BWB",
//		"WBW",
//	)
func Rows(t testing.TB, values string, rows ...string) *grid.Grid {
	t.Helper()
	g, err := grid.FromRows(values, rows...)
	require.NoError(t, err)
	return g
}

// Filled builds an mx×my×mz grid with every cell set to the value of ch.
func Filled(t testing.TB, mx, my, mz int, values string, ch rune) *grid.Grid {
	t.Helper()
	g, err := grid.New(mx, my, mz, values)
	require.NoError(t, err)
	v, ok := g.Alphabet().Value(ch)
	require.True(t, ok, "%q is not in %q", ch, values)
	for i := 0; i < g.Len(); i++ {
		g.SetAt(i, v)
	}
	return g
}

// WriteModel writes a CUE model file into a fresh temp directory and
// returns its path.
func WriteModel(t testing.TB, name, src string) string {
	t.Helper()
	return WriteFile(t, t.TempDir(), name, src)
}

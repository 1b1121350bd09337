package engine

import (
	"log/slog"

	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rng"
)

// Position is a cell coordinate.
type Position struct {
	X, Y, Z int
}

// Context is the mutable state shared by every node of a run.
type Context struct {
	Grid grid.Ops
	RNG  *rng.RNG

	// Changes lists every recorded write in order. First[t] is the index of
	// the first change made during turn t.
	Changes []Position
	First   []int

	// Counter is the number of interpreter steps taken so far.
	Counter int

	// Animated asks WFC nodes to render partial results every step.
	Animated bool

	// Epoch increases whenever a node replaces Grid, so rule nodes know
	// their cached matches describe a different grid.
	Epoch int

	Logger *slog.Logger
}

// Record appends a write at (x, y, z) to the change log.
func (c *Context) Record(x, y, z int) {
	c.Changes = append(c.Changes, Position{x, y, z})
}

// NextTurn opens a new turn starting at the current end of the change log.
func (c *Context) NextTurn() {
	c.First = append(c.First, len(c.Changes))
}

// Turn is the index of the current turn.
func (c *Context) Turn() int {
	return len(c.First) - 1
}

// ChangesSince returns the writes made since turn began.
func (c *Context) ChangesSince(turn int) []Position {
	if turn < 0 || turn >= len(c.First) {
		return c.Changes
	}
	return c.Changes[c.First[turn]:]
}

// cell folds (x, y, z) onto the grid, wrapping periodic axes, and returns
// the folded position with its flat index. ok is false past a bounded edge.
func (c *Context) cell(x, y, z int) (Position, int, bool) {
	mx, my, mz := c.Grid.Dims()
	w := grid.Wraps(c.Grid)
	var okx, oky, okz bool
	x, okx = grid.Wrap(x, mx, w[0])
	y, oky = grid.Wrap(y, my, w[1])
	z, okz = grid.Wrap(z, mz, w[2])
	if !okx || !oky || !okz {
		return Position{}, 0, false
	}
	return Position{x, y, z}, x + y*mx + z*mx*my, true
}

// SwapGrid replaces the working grid.
func (c *Context) SwapGrid(g grid.Ops) {
	c.Grid = g
	c.Epoch++
}

func (c *Context) resetLog() {
	c.Changes = c.Changes[:0]
	c.First = append(c.First[:0], 0)
}

package rule

import (
	"github.com/roach88/mjgrid/internal/grid"
)

var torus = [3]bool{true, true, true}

// Matches tests r anchored at (x, y, z). The anchor must be a cell of the
// grid. On a bounded axis the whole input extent must fit; on a periodic axis
// it wraps across the seam.
func Matches(g grid.Ops, r *Rule, x, y, z int) bool {
	return matches(g, r, x, y, z, grid.Wraps(g))
}

// MatchesWrapped tests r anchored at (x, y, z) with every axis wrapped.
func MatchesWrapped(g grid.Ops, r *Rule, x, y, z int) bool {
	return matches(g, r, x, y, z, torus)
}

func matches(g grid.Ops, r *Rule, x, y, z int, w [3]bool) bool {
	mx, my, mz := g.Dims()
	if !w[0] && (x < 0 || x+r.IMX > mx) ||
		!w[1] && (y < 0 || y+r.IMY > my) ||
		!w[2] && (z < 0 || z+r.IMZ > mz) {
		return false
	}
	state := g.State()
	i := 0
	for dz := 0; dz < r.IMZ; dz++ {
		sz := fold(z+dz, mz, w[2])
		for dy := 0; dy < r.IMY; dy++ {
			sy := fold(y+dy, my, w[1])
			for dx := 0; dx < r.IMX; dx++ {
				sx := fold(x+dx, mx, w[0])
				if r.Input[i]&(1<<state[sx+sy*mx+sz*mx*my]) == 0 {
					return false
				}
				i++
			}
		}
	}
	return true
}

// Apply writes the output of r anchored at (x, y, z). Cells past a bounded
// edge are clipped; periodic axes wrap. Only cells whose value actually
// changes are written and passed to record, in grid coordinates. It returns
// the number of writes.
func Apply(g grid.Ops, r *Rule, x, y, z int, record func(x, y, z int)) int {
	return apply(g, r, x, y, z, grid.Wraps(g), record)
}

// ApplyWrapped is Apply with every axis wrapped.
func ApplyWrapped(g grid.Ops, r *Rule, x, y, z int, record func(x, y, z int)) int {
	return apply(g, r, x, y, z, torus, record)
}

func apply(g grid.Ops, r *Rule, x, y, z int, w [3]bool, record func(x, y, z int)) int {
	mx, my, mz := g.Dims()
	state := g.State()
	n := 0
	i := 0
	for dz := 0; dz < r.OMZ; dz++ {
		for dy := 0; dy < r.OMY; dy++ {
			for dx := 0; dx < r.OMX; dx++ {
				v := r.Output[i]
				i++
				if v == NoOp {
					continue
				}
				sx, okx := grid.Wrap(x+dx, mx, w[0])
				sy, oky := grid.Wrap(y+dy, my, w[1])
				sz, okz := grid.Wrap(z+dz, mz, w[2])
				if !okx || !oky || !okz {
					continue
				}
				si := sx + sy*mx + sz*mx*my
				if state[si] == v {
					continue
				}
				state[si] = v
				n++
				if record != nil {
					record(sx, sy, sz)
				}
			}
		}
	}
	return n
}

func fold(v, m int, periodic bool) int {
	if periodic {
		return wrap(v, m)
	}
	return v
}

func wrap(v, m int) int {
	v %= m
	if v < 0 {
		v += m
	}
	return v
}

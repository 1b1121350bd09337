// Package field computes BFS potentials used to bias rule selection.
//
// A Field targets one value. Its potential array holds, per cell, the
// distance to the nearest cell whose value is in Zero, walking only through
// cells whose value is in Substrate. Unreachable cells hold -1.
package field

import (
	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rule"
)

// Unreachable marks cells the BFS never reached.
const Unreachable int32 = -1

// Field configures a potential for one target value.
type Field struct {
	Substrate uint32
	Zero      uint32

	// Recompute refreshes the potential on every match pass instead of only
	// the first.
	Recompute bool
	// Inversed rewards moving away from Zero instead of towards it.
	Inversed bool
	// Essential makes the owning node stop when the potential cannot be
	// computed.
	Essential bool
}

// New returns a field over substrate seeded from zero.
func New(substrate, zero uint32) *Field {
	return &Field{Substrate: substrate, Zero: zero}
}

type cell struct {
	t, x, y, z int32
}

// Compute fills potential with BFS distances over g. Periodic axes of g wrap.
// It returns false when no cell is in Zero; potential is then all Unreachable.
func (f *Field) Compute(potential []int32, g grid.Ops) bool {
	mx, my, mz := g.Dims()
	state := g.State()
	w := grid.Wraps(g)

	var front []cell
	var ix, iy, iz int32
	for i, v := range state {
		potential[i] = Unreachable
		if f.Zero&(1<<v) != 0 {
			potential[i] = 0
			front = append(front, cell{0, ix, iy, iz})
		}
		ix++
		if ix == int32(mx) {
			ix = 0
			iy++
			if iy == int32(my) {
				iy = 0
				iz++
			}
		}
	}
	if len(front) == 0 {
		return false
	}

	for head := 0; head < len(front); head++ {
		c := front[head]
		for _, n := range Neighbors(int(c.x), int(c.y), int(c.z), mx, my, mz, w) {
			i := n[0] + n[1]*mx + n[2]*mx*my
			if potential[i] == Unreachable && f.Substrate&(1<<state[i]) != 0 {
				potential[i] = c.t + 1
				front = append(front, cell{c.t + 1, int32(n[0]), int32(n[1]), int32(n[2])})
			}
		}
	}
	return true
}

// Neighbors yields the 6-neighbourhood of (x, y, z) in -x, +x, -y, +y, -z, +z
// order. Axes flagged in wrap fold across the seam; other axes stop at the
// edge. A wrapped axis of length one has no neighbours along it.
func Neighbors(x, y, z, mx, my, mz int, wrap [3]bool) [][3]int {
	out := make([][3]int, 0, 6)
	p := [3]int{x, y, z}
	m := [3]int{mx, my, mz}
	for axis := 0; axis < 3; axis++ {
		if m[axis] == 1 {
			continue
		}
		for _, d := range [2]int{-1, 1} {
			v, ok := grid.Wrap(p[axis]+d, m[axis], wrap[axis])
			if !ok {
				continue
			}
			n := p
			n[axis] = v
			out = append(out, n)
		}
	}
	return out
}

// DeltaPointwise scores placing r at (x, y, z): the sum over every output
// cell that would leave the input's accepted set of
// potential[new] - potential[old]. Inversed fields flip the sign of their
// contribution. ok is false when some new value cannot be reached.
//
// fields and potentials are indexed by value; a nil field contributes its
// potential (zero unless computed) without inversion.
func DeltaPointwise(g grid.Ops, r *rule.Rule, x, y, z int, fields []*Field, potentials [][]int32) (int, bool) {
	mx, my, mz := g.Dims()
	w := grid.Wraps(g)
	state := g.State()
	sum := 0
	dx, dy, dz := 0, 0, 0
	for di := range r.Input {
		nv := r.Output[di]
		if nv != rule.NoOp && r.Input[di]&(1<<nv) == 0 {
			sx, _ := grid.Wrap(x+dx, mx, w[0])
			sy, _ := grid.Wrap(y+dy, my, w[1])
			sz, _ := grid.Wrap(z+dz, mz, w[2])
			i := sx + sy*mx + sz*mx*my
			newP := int(potentials[nv][i])
			if newP == int(Unreachable) {
				return 0, false
			}
			ov := state[i]
			oldP := int(potentials[ov][i])
			sum += newP - oldP

			if int(ov) < len(fields) && fields[ov] != nil && fields[ov].Inversed {
				sum += 2 * oldP
			}
			if int(nv) < len(fields) && fields[nv] != nil && fields[nv].Inversed {
				sum -= 2 * newP
			}
		}
		dx++
		if dx == r.IMX {
			dx = 0
			dy++
			if dy == r.IMY {
				dy = 0
				dz++
			}
		}
	}
	return sum, true
}

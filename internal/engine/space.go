package engine

import (
	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rule"
)

// space is the shape of a flat state buffer: its extent and which axes
// wrap. Planning code works on copies of the grid state through it.
type space struct {
	mx, my, mz int
	wrap       [3]bool
}

func spaceOf(g grid.Ops) space {
	mx, my, mz := g.Dims()
	return space{mx: mx, my: my, mz: mz, wrap: grid.Wraps(g)}
}

func (s space) size() int { return s.mx * s.my * s.mz }

func (s space) coords(i int) (int, int, int) {
	return i % s.mx, (i % (s.mx * s.my)) / s.mx, i / (s.mx * s.my)
}

// index folds (x, y, z) onto the buffer. ok is false past a bounded edge.
func (s space) index(x, y, z int) (int, bool) {
	x, okx := grid.Wrap(x, s.mx, s.wrap[0])
	y, oky := grid.Wrap(y, s.my, s.wrap[1])
	z, okz := grid.Wrap(z, s.mz, s.wrap[2])
	if !okx || !oky || !okz {
		return 0, false
	}
	return x + y*s.mx + z*s.mx*s.my, true
}

// anchor folds a rule anchor onto the buffer and checks that the rule's
// input fits along bounded axes.
func (s space) anchor(r *rule.Rule, x, y, z int) (int, int, int, bool) {
	x, okx := placement(x, r.IMX, s.mx, s.wrap[0])
	y, oky := placement(y, r.IMY, s.my, s.wrap[1])
	z, okz := placement(z, r.IMZ, s.mz, s.wrap[2])
	return x, y, z, okx && oky && okz
}

// forInput visits the cells under r's input placed at (x, y, z) with their
// flat index in the pattern and in the buffer.
func (s space) forInput(r *rule.Rule, x, y, z int, fn func(di, i int) bool) bool {
	di := 0
	for dz := 0; dz < r.IMZ; dz++ {
		for dy := 0; dy < r.IMY; dy++ {
			for dx := 0; dx < r.IMX; dx++ {
				i, ok := s.index(x+dx, y+dy, z+dz)
				if !ok || !fn(di, i) {
					return false
				}
				di++
			}
		}
	}
	return true
}

func (s space) matches(state []byte, r *rule.Rule, x, y, z int) bool {
	if _, _, _, ok := s.anchor(r, x, y, z); !ok {
		return false
	}
	return s.forInput(r, x, y, z, func(di, i int) bool {
		return r.Input[di]&(1<<state[i]) != 0
	})
}

// apply writes r's output into state. Output and input extents agree for
// every rule that reaches here.
func (s space) apply(state []byte, r *rule.Rule, x, y, z int) {
	s.forInput(r, x, y, z, func(di, i int) bool {
		if v := r.Output[di]; v != rule.NoOp {
			state[i] = v
		}
		return true
	})
}

package engine

import (
	"github.com/roach88/mjgrid/internal/rule"
)

// Observation constrains the final state of a rule node. Cells that hold the
// observed value are reset to From before the node starts and must end in a
// value admitted by To.
type Observation struct {
	From byte
	To   uint32
}

// noPotential marks a value that cannot be placed at a cell.
const noPotential int32 = -1

// futureOf builds the goal waves for state and resets observed cells in
// place. Observations are indexed by value. It returns false when some
// observed value does not occur in state, as the goal is then unreachable.
func futureOf(future []uint32, state []byte, obs []*Observation) bool {
	seen := make([]bool, len(obs))
	for v, o := range obs {
		seen[v] = o == nil
	}
	for i, v := range state {
		if int(v) >= len(obs) || obs[v] == nil {
			future[i] = 1 << v
			if int(v) < len(seen) {
				seen[v] = true
			}
			continue
		}
		seen[v] = true
		future[i] = obs[v].To
		state[i] = obs[v].From
	}
	for _, ok := range seen {
		if !ok {
			return false
		}
	}
	return true
}

// goalReached reports whether every cell holds a value its future admits.
func goalReached(present []byte, future []uint32) bool {
	for i, v := range present {
		if future[i]&(1<<v) == 0 {
			return false
		}
	}
	return true
}

// forwardPotentials fills potentials[c][i] with the number of rule
// applications needed before value c can appear at i, starting from state.
func forwardPotentials(potentials [][]int32, state []byte, sp space, rules []*rule.Rule) {
	for _, p := range potentials {
		for i := range p {
			p[i] = noPotential
		}
	}
	for i, v := range state {
		if int(v) < len(potentials) {
			potentials[v][i] = 0
		}
	}
	propagate(potentials, sp, rules, false)
}

// backwardPotentials fills potentials[c][i] with the number of rule
// applications that separate value c at i from the goal.
func backwardPotentials(potentials [][]int32, future []uint32, sp space, rules []*rule.Rule) {
	for c, p := range potentials {
		for i := range p {
			if future[i]&(1<<c) != 0 {
				p[i] = 0
			} else {
				p[i] = noPotential
			}
		}
	}
	propagate(potentials, sp, rules, true)
}

type potentialCell struct {
	v       byte
	x, y, z int
}

// propagate runs a BFS over (value, cell) pairs. Forward, a rule fires when
// its collapsed input is reachable and makes its output reachable one step
// later. Backward swaps the two patterns.
func propagate(potentials [][]int32, sp space, rules []*rule.Rule, backwards bool) {
	var queue []potentialCell
	for c, p := range potentials {
		for i, t := range p {
			if t == 0 {
				x, y, z := sp.coords(i)
				queue = append(queue, potentialCell{byte(c), x, y, z})
			}
		}
	}

	seen := make([][]bool, len(rules))
	for r := range seen {
		seen[r] = make([]bool, sp.size())
	}

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		i, _ := sp.index(cur.x, cur.y, cur.z)
		t := potentials[cur.v][i]
		for ri, r := range rules {
			shifts := r.IShifts
			need, write := r.BInput, r.Output
			if backwards {
				shifts = r.OShifts
				need, write = r.Output, r.BInput
			}
			if int(cur.v) >= len(shifts) {
				continue
			}
			for _, s := range shifts[cur.v] {
				sx, sy, sz, ok := sp.anchor(r, cur.x-s.X, cur.y-s.Y, cur.z-s.Z)
				if !ok {
					continue
				}
				si := sx + sy*sp.mx + sz*sp.mx*sp.my
				if seen[ri][si] || !reachable(potentials, sp, r, sx, sy, sz, need, t) {
					continue
				}
				seen[ri][si] = true
				sp.forInput(r, sx, sy, sz, func(di, i int) bool {
					o := write[di]
					if o != rule.NoOp && potentials[o][i] == noPotential {
						potentials[o][i] = t + 1
						x, y, z := sp.coords(i)
						queue = append(queue, potentialCell{o, x, y, z})
					}
					return true
				})
			}
		}
	}
}

func reachable(potentials [][]int32, sp space, r *rule.Rule, x, y, z int, pattern []byte, t int32) bool {
	return sp.forInput(r, x, y, z, func(di, i int) bool {
		v := pattern[di]
		if v == rule.NoOp {
			return true
		}
		p := potentials[v][i]
		return p != noPotential && p <= t
	})
}

// forwardEstimate sums, over cells, the cheapest potential of a value the
// future admits. It returns -1 when some cell has none.
func forwardEstimate(potentials [][]int32, future []uint32) int {
	sum := 0
	for i, f := range future {
		best := int32(-1)
		for c, p := range potentials {
			if f&(1<<c) != 0 && p[i] >= 0 && (best < 0 || p[i] < best) {
				best = p[i]
			}
		}
		if best < 0 {
			return -1
		}
		sum += int(best)
	}
	return sum
}

// backwardEstimate sums the backward potential of each present value. It
// returns -1 when some value cannot reach the goal.
func backwardEstimate(potentials [][]int32, present []byte) int {
	sum := 0
	for i, v := range present {
		if int(v) >= len(potentials) || potentials[v][i] < 0 {
			return -1
		}
		sum += int(potentials[v][i])
	}
	return sum
}

package engine

import (
	"container/heap"

	"github.com/cespare/xxhash/v2"

	"github.com/roach88/mjgrid/internal/rng"
	"github.com/roach88/mjgrid/internal/rule"
)

// board is one state reached by the planner.
type board struct {
	state    []byte
	parent   int
	depth    int
	backward int
	forward  int
}

func (b *board) rank(r *rng.RNG, depthCoefficient float64) float64 {
	var v float64
	if depthCoefficient < 0 {
		v = 1000 - float64(b.depth)
	} else {
		v = float64(b.forward+b.backward) + 2*depthCoefficient*float64(b.depth)
	}
	return v + 0.0001*r.Float64()
}

type frontierEntry struct {
	board    int
	priority float64
}

// frontier is a min-heap on priority.
type frontier []frontierEntry

func (f frontier) Len() int           { return len(f) }
func (f frontier) Less(i, j int) bool { return f[i].priority < f[j].priority }
func (f frontier) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)        { *f = append(*f, x.(frontierEntry)) }
func (f *frontier) Pop() any {
	old := *f
	e := old[len(old)-1]
	*f = old[:len(old)-1]
	return e
}

// searchParams configures a planning run.
type searchParams struct {
	rules []*rule.Rule
	space space
	c     int
	// all expands a state by every maximal set of non-overlapping matches
	// instead of by one match.
	all              bool
	limit            int
	depthCoefficient float64
}

// plan runs A* from present towards future and returns the states of the
// trajectory, present excluded. It returns an empty trajectory when present
// already satisfies future and nil when no trajectory was found within the
// limit. A negative limit means no limit.
func plan(present []byte, future []uint32, p searchParams, r *rng.RNG) [][]byte {
	n := p.space.size()
	bpot := make([][]int32, p.c)
	fpot := make([][]int32, p.c)
	for c := range bpot {
		bpot[c] = make([]int32, n)
		fpot[c] = make([]int32, n)
	}

	backwardPotentials(bpot, future, p.space, p.rules)
	rootBackward := backwardEstimate(bpot, present)
	forwardPotentials(fpot, present, p.space, p.rules)
	rootForward := forwardEstimate(fpot, future)
	if rootBackward < 0 || rootForward < 0 {
		return nil
	}
	if rootBackward == 0 {
		return [][]byte{}
	}

	boards := []*board{{state: append([]byte(nil), present...), parent: -1, backward: rootBackward, forward: rootForward}}
	visited := map[uint64]int{xxhash.Sum64(present): 0}
	open := &frontier{{0, boards[0].rank(r, p.depthCoefficient)}}

	for open.Len() > 0 && (p.limit < 0 || len(boards) < p.limit) {
		parent := heap.Pop(open).(frontierEntry).board
		pb := boards[parent]

		var children [][]byte
		if p.all {
			children = allChildren(pb.state, p.space, p.rules)
		} else {
			children = oneChildren(pb.state, p.space, p.rules)
		}

		for _, child := range children {
			h := xxhash.Sum64(child)
			if k, ok := visited[h]; ok {
				old := boards[k]
				if pb.depth+1 < old.depth {
					old.depth = pb.depth + 1
					old.parent = parent
					if old.backward >= 0 && old.forward >= 0 {
						heap.Push(open, frontierEntry{k, old.rank(r, p.depthCoefficient)})
					}
				}
				continue
			}

			back := backwardEstimate(bpot, child)
			forwardPotentials(fpot, child, p.space, p.rules)
			fwd := forwardEstimate(fpot, future)
			if back < 0 || fwd < 0 {
				continue
			}
			b := &board{state: child, parent: parent, depth: pb.depth + 1, backward: back, forward: fwd}
			boards = append(boards, b)
			visited[h] = len(boards) - 1
			if fwd == 0 {
				return trajectory(boards, len(boards)-1)
			}
			heap.Push(open, frontierEntry{len(boards) - 1, b.rank(r, p.depthCoefficient)})
		}
	}
	return nil
}

// trajectory walks parents back to the root and returns the states in
// forward order, root excluded.
func trajectory(boards []*board, k int) [][]byte {
	var out [][]byte
	for b := boards[k]; b.parent >= 0; b = boards[b.parent] {
		out = append(out, b.state)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// oneChildren returns every state one rule application away.
func oneChildren(state []byte, sp space, rules []*rule.Rule) [][]byte {
	var out [][]byte
	for _, r := range rules {
		for i := range state {
			x, y, z := sp.coords(i)
			if sp.matches(state, r, x, y, z) {
				child := append([]byte(nil), state...)
				sp.apply(child, r, x, y, z)
				out = append(out, child)
			}
		}
	}
	return out
}

type tile struct {
	r       int
	x, y, z int
}

// cover is the bookkeeping of allChildren: how many visible matches cover
// each cell.
type cover struct {
	state   []byte
	sp      space
	rules   []*rule.Rule
	tiles   []tile
	visible []bool
	amounts []int
	out     [][]byte
}

// allChildren enumerates the states reached by applying a maximal set of
// non-overlapping matches at once.
func allChildren(state []byte, sp space, rules []*rule.Rule) [][]byte {
	c := &cover{state: state, sp: sp, rules: rules, amounts: make([]int, len(state))}
	for i := range state {
		x, y, z := sp.coords(i)
		for ri, r := range rules {
			if !sp.matches(state, r, x, y, z) {
				continue
			}
			c.tiles = append(c.tiles, tile{ri, x, y, z})
			sp.forInput(r, x, y, z, func(_, j int) bool {
				c.amounts[j]++
				return true
			})
		}
	}
	if len(c.tiles) == 0 {
		return nil
	}
	c.visible = make([]bool, len(c.tiles))
	for l := range c.visible {
		c.visible[l] = true
	}
	c.enumerate(nil)
	return c.out
}

func (c *cover) enumerate(solution []tile) {
	most, at := 0, -1
	for i, a := range c.amounts {
		if a > most {
			most, at = a, i
		}
	}
	if at < 0 {
		child := append([]byte(nil), c.state...)
		for _, t := range solution {
			c.sp.apply(child, c.rules[t.r], t.x, t.y, t.z)
		}
		c.out = append(c.out, child)
		return
	}

	var candidates []tile
	for l, t := range c.tiles {
		if c.visible[l] && c.covers(t, at) {
			candidates = append(candidates, t)
		}
	}
	for _, t := range candidates {
		var hidden []int
		for l, o := range c.tiles {
			if c.visible[l] && c.overlap(t, o) {
				hidden = append(hidden, l)
			}
		}
		for _, l := range hidden {
			c.hide(l, false)
		}
		c.enumerate(append(solution, t))
		for _, l := range hidden {
			c.hide(l, true)
		}
	}
}

func (c *cover) cells(t tile) []int {
	var out []int
	c.sp.forInput(c.rules[t.r], t.x, t.y, t.z, func(_, i int) bool {
		out = append(out, i)
		return true
	})
	return out
}

func (c *cover) covers(t tile, i int) bool {
	for _, j := range c.cells(t) {
		if j == i {
			return true
		}
	}
	return false
}

func (c *cover) overlap(a, b tile) bool {
	for _, i := range c.cells(a) {
		if c.covers(b, i) {
			return true
		}
	}
	return false
}

func (c *cover) hide(l int, show bool) {
	c.visible[l] = show
	d := -1
	if show {
		d = 1
	}
	for _, i := range c.cells(c.tiles[l]) {
		c.amounts[i] += d
	}
}

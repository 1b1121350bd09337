package engine

import (
	"math"

	"github.com/roach88/mjgrid/internal/rng"
)

// PathNode draws one shortest (or longest) path from a Start cell to the
// nearest Finish cell across Substrate cells, painting it with Value.
// Start, Finish and Substrate are wave masks over the grid alphabet.
//
// Distances come from a breadth-first sweep outward from every finish
// cell. The pen starts on the start cell with the lowest distance (the
// highest when Longest is set) and steps downhill until it reaches a
// finish cell. Start and finish cells keep their values.
type PathNode struct {
	Start, Finish, Substrate uint32
	Value                    byte

	// Inertia prefers continuing in the current direction.
	Inertia bool
	// Longest picks the farthest start instead of the nearest.
	Longest bool
	// Edges and Vertices allow diagonal steps across cell edges and
	// cell corners.
	Edges, Vertices bool
}

type step [3]int

var cardinals = []step{{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1}}

// directions lists the moves available in a grid of the given depth.
func (p *PathNode) directions(is3D bool) []step {
	ds := make([]step, 0, 26)
	for _, d := range cardinals {
		if d[2] != 0 && !is3D {
			continue
		}
		ds = append(ds, d)
	}
	if p.Edges {
		ds = append(ds, step{-1, -1, 0}, step{-1, 1, 0}, step{1, -1, 0}, step{1, 1, 0})
		if is3D {
			ds = append(ds,
				step{-1, 0, -1}, step{-1, 0, 1}, step{1, 0, -1}, step{1, 0, 1},
				step{0, -1, -1}, step{0, -1, 1}, step{0, 1, -1}, step{0, 1, 1})
		}
	}
	if p.Vertices && is3D {
		for _, dx := range []int{-1, 1} {
			for _, dy := range []int{-1, 1} {
				for _, dz := range []int{-1, 1} {
					ds = append(ds, step{dx, dy, dz})
				}
			}
		}
	}
	return ds
}

func (p *PathNode) run(ctx *Context) bool {
	s := spaceOf(ctx.Grid)
	state := ctx.Grid.State()
	dirs := p.directions(s.mz > 1)

	gen := make([]int, s.size())
	var starts, frontier []int
	for i, v := range state {
		gen[i] = -1
		if p.Start&(1<<v) != 0 {
			starts = append(starts, i)
		}
		if p.Finish&(1<<v) != 0 {
			gen[i] = 0
			frontier = append(frontier, i)
		}
	}
	if len(starts) == 0 || len(frontier) == 0 {
		return false
	}

	for len(frontier) > 0 {
		i := frontier[0]
		frontier = frontier[1:]
		x, y, z := s.coords(i)
		for _, d := range dirs {
			n, ok := s.index(x+d[0], y+d[1], z+d[2])
			if !ok || gen[n] != -1 {
				continue
			}
			v := state[n]
			if p.Substrate&(1<<v) != 0 {
				gen[n] = gen[i] + 1
				frontier = append(frontier, n)
			} else if p.Start&(1<<v) != 0 {
				gen[n] = gen[i] + 1
			}
		}
	}

	local := rng.New(ctx.RNG.Child())
	pen, best := -1, 0.0
	for _, i := range starts {
		if gen[i] <= 0 {
			continue
		}
		score := float64(gen[i]) + 0.1*local.Float64()
		if pen < 0 || (p.Longest && score > best) || (!p.Longest && score < best) {
			pen, best = i, score
		}
	}
	if pen < 0 {
		return false
	}

	var dir step
	for {
		dir = p.direction(s, gen, pen, dir, dirs, local)
		x, y, z := s.coords(pen)
		pen, _ = s.index(x+dir[0], y+dir[1], z+dir[2])
		if gen[pen] == 0 {
			return true
		}
		ctx.Grid.SetAt(pen, p.Value)
		ctx.Record(s.coords(pen))
	}
}

// direction picks the next downhill step from i. The previous step dir is
// kept under inertia when it still descends.
func (p *PathNode) direction(s space, gen []int, i int, dir step, dirs []step, r *rng.RNG) step {
	x, y, z := s.coords(i)
	want := gen[i] - 1
	descends := func(d step) bool {
		n, ok := s.index(x+d[0], y+d[1], z+d[2])
		return ok && gen[n] == want
	}

	moving := dir != step{}
	diagonal := p.Edges || p.Vertices
	if !diagonal && p.Inertia && moving && descends(dir) {
		return dir
	}

	var candidates []step
	for _, d := range dirs {
		if descends(d) {
			candidates = append(candidates, d)
		}
	}
	if diagonal && p.Inertia && moving {
		best, bestScore := candidates[0], math.Inf(-1)
		for _, c := range candidates {
			if score := cosine(c, dir) + 0.1*r.Float64(); score > bestScore {
				best, bestScore = c, score
			}
		}
		return best
	}
	return candidates[r.IntN(len(candidates))]
}

func cosine(a, b step) float64 {
	dot := float64(a[0]*b[0] + a[1]*b[1] + a[2]*b[2])
	la := math.Sqrt(float64(a[0]*a[0] + a[1]*a[1] + a[2]*a[2]))
	lb := math.Sqrt(float64(b[0]*b[0] + b[1]*b[1] + b[2]*b[2]))
	return dot / (la * lb)
}

func (p *PathNode) reset() {}

func (p *PathNode) validate() error {
	if p.Start == 0 || p.Finish == 0 {
		return NewInvalidNodeError(p.Kind(), "path needs start and finish values")
	}
	return nil
}

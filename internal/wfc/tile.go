package wfc

import (
	"fmt"

	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rng"
	"github.com/roach88/mjgrid/internal/rule"
)

// TileSpec is one square tile of Size×Size values, row-major with y
// growing downwards.
type TileSpec struct {
	Name     string
	Pattern  []byte
	Weight   float64
	Symmetry rule.Subgroup
}

// Adjacency states that B may sit next to A. Horizontal pairs place B at
// +x of A (left/right); vertical pairs place B at +y of A (top/bottom).
type Adjacency struct {
	A, B     string
	Vertical bool
}

// Tile is a tileset model. Every tile expands into the dihedral variants its
// symmetry allows, and each adjacency is carried through the same
// transforms so rotated tiles keep fitting together.
type Tile struct {
	Size    int
	Overlap int
	C       int

	data       [][]byte
	weights    []float64
	byName     map[string][]int
	propagator [][][]int
}

var _ Model = (*Tile)(nil)

// NewTile builds a tile model over c values.
func NewTile(tiles []TileSpec, adjacencies []Adjacency, size, overlap, c int) (*Tile, error) {
	if size < 1 {
		return nil, fmt.Errorf("wfc: tile size %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("wfc: tile overlap %d with size %d", overlap, size)
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("wfc: empty tileset")
	}

	t := &Tile{Size: size, Overlap: overlap, C: c, byName: make(map[string][]int)}
	bases := make(map[string][]byte, len(tiles))
	for _, spec := range tiles {
		if _, dup := bases[spec.Name]; dup {
			return nil, fmt.Errorf("wfc: duplicate tile %q", spec.Name)
		}
		if len(spec.Pattern) != size*size {
			return nil, fmt.Errorf("wfc: tile %q has %d cells, want %d", spec.Name, len(spec.Pattern), size*size)
		}
		for _, v := range spec.Pattern {
			if int(v) >= c {
				return nil, fmt.Errorf("wfc: tile %q uses value %d outside %d values", spec.Name, v, c)
			}
		}
		bases[spec.Name] = spec.Pattern

		weight := spec.Weight
		if weight == 0 {
			weight = 1
		}
		var kept [][]byte
		for k, variant := range squareVariants(spec.Pattern, size) {
			if !spec.Symmetry[k] || containsPattern(kept, variant) {
				continue
			}
			kept = append(kept, variant)
			t.byName[spec.Name] = append(t.byName[spec.Name], len(t.data))
			t.data = append(t.data, variant)
			t.weights = append(t.weights, weight)
		}
	}

	dense := make([][][]bool, 4)
	for d := range dense {
		dense[d] = make([][]bool, len(t.data))
		for p := range dense[d] {
			dense[d][p] = make([]bool, len(t.data))
		}
	}
	for _, adj := range adjacencies {
		a, ok := bases[adj.A]
		if !ok {
			return nil, fmt.Errorf("wfc: adjacency names unknown tile %q", adj.A)
		}
		b, ok := bases[adj.B]
		if !ok {
			return nil, fmt.Errorf("wfc: adjacency names unknown tile %q", adj.B)
		}
		dir := 0
		if adj.Vertical {
			dir = 1
		}
		av, bv := squareVariants(a, size), squareVariants(b, size)
		for k := 0; k < 8; k++ {
			ai := t.find(adj.A, av[k])
			bi := t.find(adj.B, bv[k])
			if ai < 0 || bi < 0 {
				continue
			}
			d := transformDir(k, dir)
			dense[d][ai][bi] = true
			dense[Opposite[d]][bi][ai] = true
		}
	}

	t.propagator = make([][][]int, 4)
	for d := range dense {
		t.propagator[d] = make([][]int, len(t.data))
		for p1 := range dense[d] {
			for p2, ok := range dense[d][p1] {
				if ok {
					t.propagator[d][p1] = append(t.propagator[d][p1], p2)
				}
			}
		}
	}
	return t, nil
}

func (t *Tile) Propagator() [][][]int { return t.propagator }
func (t *Tile) Weights() []float64 { return t.weights }
func (t *Tile) PatternSize() int { return 1 }

// OutputDims places tiles Size-Overlap apart along x and y.
func (t *Tile) OutputDims(mx, my, mz int) (int, int, int) {
	step := t.Size - t.Overlap
	return step*mx + t.Overlap, step*my + t.Overlap, mz
}

// PatternsOf marks every variant of the named tiles.
func (t *Tile) PatternsOf(names []string) ([]bool, error) {
	out := make([]bool, len(t.data))
	for _, name := range names {
		idx, ok := t.byName[name]
		if !ok {
			return nil, fmt.Errorf("wfc: unknown tile %q", name)
		}
		for _, i := range idx {
			out[i] = true
		}
	}
	return out, nil
}

// Votes writes, for every wave cell, the most supported value of each
// sub-cell of its tile footprint.
func (t *Tile) Votes(w *Wave, cfg Config, out grid.Ops, r *rng.RNG) {
	omx, omy, _ := out.Dims()
	s := t.Size
	step := s - t.Overlap
	votes := make([][]int, s*s)
	for i := range votes {
		votes[i] = make([]int, t.C)
	}

	for y := 0; y < cfg.MY; y++ {
		for x := 0; x < cfg.MX; x++ {
			cell := x + y*cfg.MX
			for i := range votes {
				clear(votes[i])
			}
			for p, tile := range t.data {
				if !w.Possible(cell, p) {
					continue
				}
				for di, v := range tile {
					votes[di][v]++
				}
			}
			for dy := 0; dy < s; dy++ {
				for dx := 0; dx < s; dx++ {
					ox, oy := x*step+dx, y*step+dy
					if ox < omx && oy < omy {
						out.SetAt(ox+oy*omx, argmaxVote(votes[dx+dy*s], r))
					}
				}
			}
		}
	}
}

func (t *Tile) find(name string, data []byte) int {
	for _, i := range t.byName[name] {
		if string(t.data[i]) == string(data) {
			return i
		}
	}
	return -1
}

func containsPattern(list [][]byte, p []byte) bool {
	for _, q := range list {
		if string(q) == string(p) {
			return true
		}
	}
	return false
}

// transformDir maps direction d (0..3) through dihedral element k. A
// rotation takes (dx, dy) to (dy, -dx); the reflection negates dx.
func transformDir(k, d int) int {
	dx, dy := DX[d], DY[d]
	for i := 0; i < k/2; i++ {
		dx, dy = dy, -dx
	}
	if k%2 == 1 {
		dx = -dx
	}
	for i := 0; i < 4; i++ {
		if DX[i] == dx && DY[i] == dy {
			return i
		}
	}
	return d
}

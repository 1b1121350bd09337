package wfc

import (
	"fmt"

	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rng"
	"github.com/roach88/mjgrid/internal/rule"
)

// Overlap learns N×N patterns from a sample. Neighbouring patterns must
// agree on their overlap.
type Overlap struct {
	N int
	C int

	patterns   [][]byte
	weights    []float64
	propagator [][][]int
}

var _ Model = (*Overlap)(nil)

// NewOverlap extracts every N×N window of sample (smx by smy values below
// c) together with its symmetry variants. Weights are occurrence counts.
// With periodicInput the windows wrap around the sample edges.
func NewOverlap(sample []byte, smx, smy, c, n int, periodicInput bool, symmetry rule.Subgroup) (*Overlap, error) {
	if n < 1 {
		return nil, fmt.Errorf("wfc: pattern size %d", n)
	}
	if len(sample) != smx*smy {
		return nil, fmt.Errorf("wfc: sample has %d cells, want %dx%d", len(sample), smx, smy)
	}
	for _, v := range sample {
		if int(v) >= c {
			return nil, fmt.Errorf("wfc: sample value %d outside %d values", v, c)
		}
	}

	xmax, ymax := smx, smy
	if !periodicInput {
		xmax, ymax = smx-n+1, smy-n+1
	}
	if xmax < 1 || ymax < 1 {
		return nil, fmt.Errorf("wfc: sample %dx%d is smaller than pattern size %d", smx, smy, n)
	}

	o := &Overlap{N: n, C: c}
	index := make(map[string]int)
	for y := 0; y < ymax; y++ {
		for x := 0; x < xmax; x++ {
			base := window(sample, smx, smy, x, y, n)
			for k, variant := range squareVariants(base, n) {
				if !symmetry[k] {
					continue
				}
				key := string(variant)
				if i, ok := index[key]; ok {
					o.weights[i]++
					continue
				}
				index[key] = len(o.patterns)
				o.patterns = append(o.patterns, variant)
				o.weights = append(o.weights, 1)
			}
		}
	}
	if len(o.patterns) == 0 {
		return nil, fmt.Errorf("wfc: no patterns extracted")
	}

	o.propagator = make([][][]int, 4)
	for d := 0; d < 4; d++ {
		o.propagator[d] = make([][]int, len(o.patterns))
		for t1, p1 := range o.patterns {
			for t2, p2 := range o.patterns {
				if agree(p1, p2, DX[d], DY[d], n) {
					o.propagator[d][t1] = append(o.propagator[d][t1], t2)
				}
			}
		}
	}
	return o, nil
}

func (o *Overlap) Propagator() [][][]int { return o.propagator }
func (o *Overlap) Weights() []float64 { return o.weights }
func (o *Overlap) PatternSize() int { return o.N }
func (o *Overlap) Patterns() [][]byte { return o.patterns }

func (o *Overlap) OutputDims(mx, my, mz int) (int, int, int) { return mx, my, mz }

// PatternsStartingWith marks the patterns whose top-left value is in wave.
func (o *Overlap) PatternsStartingWith(wave uint32) []bool {
	out := make([]bool, len(o.patterns))
	for i, p := range o.patterns {
		out[i] = wave&(1<<p[0]) != 0
	}
	return out
}

// Votes lets every observable cell vote for the values its remaining
// patterns place on the cells they cover.
func (o *Overlap) Votes(w *Wave, cfg Config, out grid.Ops, r *rng.RNG) {
	mx, my := cfg.MX, cfg.MY
	votes := make([]int, o.C)
	for y := 0; y < my; y++ {
		for x := 0; x < mx; x++ {
			clear(votes)
			for dy := 0; dy < o.N; dy++ {
				sy := y - dy
				if sy < 0 {
					sy += my
				}
				for dx := 0; dx < o.N; dx++ {
					sx := x - dx
					if sx < 0 {
						sx += mx
					}
					if !cfg.Periodic && (sx+o.N > mx || sy+o.N > my) {
						continue
					}
					s := sx + sy*mx
					for p, pat := range o.patterns {
						if w.Possible(s, p) {
							votes[pat[dx+dy*o.N]]++
						}
					}
				}
			}
			out.SetAt(x+y*mx, argmaxVote(votes, r))
		}
	}
}

func window(sample []byte, smx, smy, x, y, n int) []byte {
	out := make([]byte, n*n)
	for dy := 0; dy < n; dy++ {
		for dx := 0; dx < n; dx++ {
			out[dx+dy*n] = sample[(x+dx)%smx+((y+dy)%smy)*smx]
		}
	}
	return out
}

// agree reports whether p2 placed at (dx, dy) from p1 matches on the
// overlapping cells.
func agree(p1, p2 []byte, dx, dy, n int) bool {
	xmin, xmax := max(dx, 0), min(dx+n, n)
	ymin, ymax := max(dy, 0), min(dy+n, n)
	for y := ymin; y < ymax; y++ {
		for x := xmin; x < xmax; x++ {
			if p1[x+n*y] != p2[x-dx+n*(y-dy)] {
				return false
			}
		}
	}
	return true
}

func rotate(p []byte, n int) []byte {
	out := make([]byte, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			out[x+y*n] = p[n-1-y+x*n]
		}
	}
	return out
}

func reflect(p []byte, n int) []byte {
	out := make([]byte, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			out[x+y*n] = p[n-1-x+y*n]
		}
	}
	return out
}

// squareVariants returns the eight dihedral images of an n×n pattern in
// subgroup order: e, b, a, ba, a², ba², a³, ba³ where a rotates and b
// reflects.
func squareVariants(p []byte, n int) [8][]byte {
	var out [8][]byte
	out[0] = p
	out[1] = reflect(p, n)
	out[2] = rotate(p, n)
	out[3] = reflect(out[2], n)
	out[4] = rotate(out[2], n)
	out[5] = reflect(out[4], n)
	out[6] = rotate(out[4], n)
	out[7] = reflect(out[6], n)
	return out
}

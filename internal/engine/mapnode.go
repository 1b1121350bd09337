package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rule"
)

// ScaleFactor is a rational scale Num/Den along one axis.
type ScaleFactor struct {
	Num, Den int
}

// Apply scales a length or coordinate, rounding down.
func (s ScaleFactor) Apply(v int) int {
	return v * s.Num / s.Den
}

func (s ScaleFactor) String() string {
	if s.Den == 1 {
		return strconv.Itoa(s.Num)
	}
	return fmt.Sprintf("%d/%d", s.Num, s.Den)
}

// ParseScale reads three space separated factors such as "2 2 1" or
// "1/2 1/2 1".
func ParseScale(s string) ([3]ScaleFactor, error) {
	var out [3]ScaleFactor
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return out, fmt.Errorf("scale %q: want three factors", s)
	}
	for i, p := range parts {
		f, err := parseFactor(p)
		if err != nil {
			return out, fmt.Errorf("scale %q: %w", s, err)
		}
		out[i] = f
	}
	return out, nil
}

func parseFactor(s string) (ScaleFactor, error) {
	num, den, frac := strings.Cut(s, "/")
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return ScaleFactor{}, fmt.Errorf("bad factor %q", s)
	}
	d := 1
	if frac {
		d, err = strconv.Atoi(den)
		if err != nil || d < 1 {
			return ScaleFactor{}, fmt.Errorf("bad factor %q", s)
		}
	}
	return ScaleFactor{n, d}, nil
}

// MapNode rewrites the current grid into Grid, a grid of scaled size and
// its own alphabet, then runs its children on the new grid in sequence.
//
// Every rule is tested at every source position on a torus and written at
// the scaled position, also wrapping.
type MapNode struct {
	Grid     *grid.Grid
	Rules    []*rule.Rule
	Scale    [3]ScaleFactor
	Children []Node

	n int
}

// NewMap creates a MapNode writing into target.
func NewMap(target *grid.Grid, scale [3]ScaleFactor, rules []*rule.Rule, children ...Node) *MapNode {
	return &MapNode{Grid: target, Rules: rules, Scale: scale, Children: children, n: -1}
}

func (m *MapNode) run(ctx *Context) bool {
	if m.n >= 0 {
		return runSequence(m.Children, &m.n, ctx)
	}

	mx, my, mz := ctx.Grid.Dims()
	tx, ty, tz := m.Scale[0].Apply(mx), m.Scale[1].Apply(my), m.Scale[2].Apply(mz)
	if m.Grid.MX != tx || m.Grid.MY != ty || m.Grid.MZ != tz {
		m.Grid.Resize(max(tx, 1), max(ty, 1), max(tz, 1))
	}
	m.Grid.Clear()

	for _, r := range m.Rules {
		for z := 0; z < mz; z++ {
			for y := 0; y < my; y++ {
				for x := 0; x < mx; x++ {
					if rule.MatchesWrapped(ctx.Grid, r, x, y, z) {
						rule.ApplyWrapped(m.Grid, r, m.Scale[0].Apply(x), m.Scale[1].Apply(y), m.Scale[2].Apply(z), nil)
					}
				}
			}
		}
	}

	ctx.SwapGrid(m.Grid)
	m.n = 0
	if len(m.Children) > 0 {
		Reset(m.Children[0])
	}
	return true
}

func (m *MapNode) reset() {
	m.n = -1
	for _, c := range m.Children {
		Reset(c)
	}
}

package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Neighbourhood kernels, laid out x fastest then y then z over the 3x3
// (or 3x3x3) block around a cell. The centre never counts.
var (
	VonNeumann2D = []int{0, 1, 0, 1, 0, 1, 0, 1, 0}
	Moore2D      = []int{1, 1, 1, 1, 0, 1, 1, 1, 1}

	VonNeumann3D = []int{
		0, 0, 0, 0, 1, 0, 0, 0, 0,
		0, 1, 0, 1, 0, 1, 0, 1, 0,
		0, 0, 0, 0, 1, 0, 0, 0, 0,
	}
	NoCorners3D = []int{
		0, 1, 0, 1, 1, 1, 0, 1, 0,
		1, 1, 1, 1, 0, 1, 1, 1, 1,
		0, 1, 0, 1, 1, 1, 0, 1, 0,
	}
)

// Kernel returns the named neighbourhood for a 2D or 3D grid.
func Kernel(name string, is2D bool) ([]int, error) {
	switch {
	case is2D && name == "VonNeumann":
		return VonNeumann2D, nil
	case is2D && name == "Moore":
		return Moore2D, nil
	case !is2D && name == "VonNeumann":
		return VonNeumann3D, nil
	case !is2D && name == "NoCorners":
		return NoCorners3D, nil
	}
	return nil, fmt.Errorf("unknown neighbourhood %q", name)
}

// maxSum bounds a neighbour count: 26 cells around a voxel, plus zero.
const maxSum = 28

// ConvolutionRule turns a cell holding Input into Output when the number
// of kernel neighbours holding one of Values is in Sums. A nil Sums always
// passes. P below 1 lets the rule fire on only that fraction of cells.
type ConvolutionRule struct {
	Input, Output byte
	Values        []byte
	Sums          []bool
	P             float64
}

// ParseSums reads a sum set such as "2,5..7".
func ParseSums(s string) ([]bool, error) {
	sums := make([]bool, maxSum)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "..")
		if !isRange {
			hi = lo
		}
		a, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("sum %q: %w", part, err)
		}
		b, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("sum %q: %w", part, err)
		}
		if a < 0 || b >= maxSum || a > b {
			return nil, fmt.Errorf("sum %q out of range 0..%d", part, maxSum-1)
		}
		for i := a; i <= b; i++ {
			sums[i] = true
		}
	}
	return sums, nil
}

// ConvolutionNode is a cellular automaton step. Every cell counts its
// kernel neighbours per value in the state before the step, then takes the
// first rule that fires for it. Steps > 0 caps how many steps the node
// takes until its next reset. Periodic wraps the kernel around every
// bounded axis as well as the grid's own periodic axes.
type ConvolutionNode struct {
	Rules    []ConvolutionRule
	Kernel   []int
	Periodic bool
	Steps    int

	counter  int
	sumfield [][]int
}

func (c *ConvolutionNode) run(ctx *Context) bool {
	if c.Steps > 0 && c.counter >= c.Steps {
		return false
	}
	c.computeSums(ctx)

	state := ctx.Grid.State()
	s := spaceOf(ctx.Grid)
	changed := false
	for i := range state {
		v := state[i]
		for _, r := range c.Rules {
			if r.Input != v || r.Output == v || !c.fires(ctx, r, i) {
				continue
			}
			ctx.Grid.SetAt(i, r.Output)
			ctx.Record(s.coords(i))
			changed = true
			break
		}
	}
	c.counter++
	return changed
}

func (c *ConvolutionNode) fires(ctx *Context, r ConvolutionRule, i int) bool {
	if r.P < 1 && ctx.RNG.Float64() >= r.P {
		return false
	}
	if r.Sums == nil {
		return true
	}
	total := 0
	for _, v := range r.Values {
		total += c.sumfield[i][v]
	}
	return total < len(r.Sums) && r.Sums[total]
}

func (c *ConvolutionNode) computeSums(ctx *Context) {
	s := spaceOf(ctx.Grid)
	if c.Periodic {
		s.wrap = [3]bool{true, true, true}
	}
	state := ctx.Grid.State()
	values := ctx.Grid.Alphabet().NumValues()
	if len(c.sumfield) != len(state) || (len(state) > 0 && len(c.sumfield[0]) != values) {
		c.sumfield = make([][]int, len(state))
		for i := range c.sumfield {
			c.sumfield[i] = make([]int, values)
		}
	}
	is3D := len(c.Kernel) == 27

	for i := range state {
		sums := c.sumfield[i]
		clear(sums)
		x, y, z := s.coords(i)
		for k, w := range c.Kernel {
			if w == 0 {
				continue
			}
			dx, dy, dz := k%3-1, (k/3)%3-1, 0
			if is3D {
				dz = k/9 - 1
			}
			if n, ok := s.index(x+dx, y+dy, z+dz); ok {
				sums[state[n]] += w
			}
		}
	}
}

func (c *ConvolutionNode) reset() {
	c.counter = 0
}

// Counter is how many steps the node took since its last reset.
func (c *ConvolutionNode) Counter() int { return c.counter }

func (c *ConvolutionNode) validate() error {
	if len(c.Rules) == 0 {
		return NewInvalidNodeError(c.Kind(), "convolution has no rules")
	}
	if len(c.Kernel) != 9 && len(c.Kernel) != 27 {
		return NewInvalidNodeError(c.Kind(), "convolution kernel must have 9 or 27 weights")
	}
	return nil
}

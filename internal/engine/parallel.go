package engine

import "github.com/roach88/mjgrid/internal/rule"

// ParallelNode applies every match of the current state at once. All
// matches are found against the state before the step and written into a
// buffer. A write is dropped when it equals the pre-step value of its cell,
// so where two matches write one cell the last write that changes it wins:
// with B*->W* then BB->BR on "BB" the result is "WR", because BB->BR writing
// B over the first cell is no change and leaves W in place.
//
// Fields, temperature and observations do not apply; every match is taken.
type ParallelNode struct {
	ruleNode

	newstate []byte
}

// NewParallel creates a ParallelNode.
func NewParallel(cfg RuleConfig) *ParallelNode {
	return &ParallelNode{ruleNode: newRuleNode(cfg)}
}

func (n *ParallelNode) validate() error { return n.ruleNode.validate(n.Kind()) }

func (n *ParallelNode) run(ctx *Context) bool {
	if n.stepsExhausted() {
		return false
	}
	size := ctx.Grid.Len()
	if len(n.newstate) != size {
		n.newstate = make([]byte, size)
	}

	mx, my, _ := ctx.Grid.Dims()
	seen := make([][]bool, len(n.Rules))
	var pending []match
	n.scanLattice(ctx, func(ri int, r *rule.Rule, sx, sy, sz, si int) {
		if seen[ri] == nil {
			seen[ri] = make([]bool, size)
		}
		if !seen[ri][si] && rule.Matches(ctx.Grid, r, sx, sy, sz) {
			seen[ri][si] = true
			pending = append(pending, match{ri, sx, sy, sz})
		}
	})

	start := len(ctx.Changes)
	applied := 0
	state := ctx.Grid.State()
	for _, m := range pending {
		r := n.Rules[m.r]
		if ctx.RNG.Float64() > r.P {
			continue
		}
		changed := false
		forOutput(r, func(dx, dy, dz int, v byte) {
			c, si, ok := ctx.cell(m.x+dx, m.y+dy, m.z+dz)
			if ok && v != state[si] {
				n.newstate[si] = v
				ctx.Record(c.X, c.Y, c.Z)
				changed = true
			}
		})
		if changed {
			applied++
		}
	}

	for _, c := range ctx.Changes[start:] {
		i := c.X + c.Y*mx + c.Z*mx*my
		state[i] = n.newstate[i]
	}
	n.counter++
	return applied > 0
}

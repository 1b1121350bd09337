package engine

import "github.com/roach88/mjgrid/internal/rule"

// AllNode applies every non-overlapping match in one step. Matches are
// taken greedily in heuristic or shuffled order and claim their written
// cells in the grid mask.
type AllNode struct {
	ruleNode
}

// NewAll creates an AllNode.
func NewAll(cfg RuleConfig) *AllNode {
	n := &AllNode{ruleNode: newRuleNode(cfg)}
	n.searchAll = true
	return n
}

func (n *AllNode) validate() error { return n.ruleNode.validate(n.Kind()) }

func (n *AllNode) run(ctx *Context) bool {
	if !n.computeMatches(ctx) {
		return false
	}
	n.lastMatchedTurn = ctx.Turn()
	if n.trajectory != nil {
		return n.replay(ctx)
	}
	if len(n.matches) == 0 {
		return false
	}

	var order []int
	if n.steered() {
		order = n.heuristicOrder(ctx)
	} else {
		order = make([]int, len(n.matches))
		for i := range order {
			order[i] = i
		}
		ctx.RNG.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	mx, my, _ := ctx.Grid.Dims()
	start := len(ctx.Changes)
	for _, k := range order {
		m := n.matches[k]
		n.unmark(m, mx, my)
		r := n.Rules[m.r]
		if !passes(ctx, r) {
			n.lastMatchedTurn = -1
			continue
		}
		n.fit(ctx, r, m)
	}

	mask := ctx.Grid.Mask()
	for _, c := range ctx.Changes[start:] {
		mask[c.X+c.Y*mx+c.Z*mx*my] = false
	}
	for _, m := range n.matches {
		n.unmark(m, mx, my)
	}
	n.matches = n.matches[:0]
	n.counter++
	return len(ctx.Changes) > start
}

// fit applies m unless one of its written cells is already claimed. Every
// written cell is recorded, changed or not, so matches it blocked are found
// again next step.
func (n *AllNode) fit(ctx *Context, r *rule.Rule, m match) {
	if !rule.Matches(ctx.Grid, r, m.x, m.y, m.z) {
		return
	}
	mask := ctx.Grid.Mask()
	claimed := false
	forOutput(r, func(dx, dy, dz int, _ byte) {
		if _, si, ok := ctx.cell(m.x+dx, m.y+dy, m.z+dz); ok && mask[si] {
			claimed = true
		}
	})
	if claimed {
		return
	}
	forOutput(r, func(dx, dy, dz int, v byte) {
		c, si, ok := ctx.cell(m.x+dx, m.y+dy, m.z+dz)
		if !ok {
			return
		}
		mask[si] = true
		ctx.Grid.SetAt(si, v)
		ctx.Record(c.X, c.Y, c.Z)
	})
}

// forOutput visits the written cells of r.
func forOutput(r *rule.Rule, fn func(dx, dy, dz int, v byte)) {
	i := 0
	for dz := 0; dz < r.OMZ; dz++ {
		for dy := 0; dy < r.OMY; dy++ {
			for dx := 0; dx < r.OMX; dx++ {
				if v := r.Output[i]; v != rule.NoOp {
					fn(dx, dy, dz, v)
				}
				i++
			}
		}
	}
}

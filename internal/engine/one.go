package engine

import "github.com/roach88/mjgrid/internal/rule"

// OneNode applies a single match per step, picked uniformly at random or,
// when fields are configured, by heuristic.
type OneNode struct {
	ruleNode
}

// NewOne creates a OneNode.
func NewOne(cfg RuleConfig) *OneNode {
	return &OneNode{ruleNode: newRuleNode(cfg)}
}

func (n *OneNode) validate() error { return n.ruleNode.validate(n.Kind()) }

func (n *OneNode) run(ctx *Context) bool {
	if !n.computeMatches(ctx) {
		return false
	}
	n.lastMatchedTurn = ctx.Turn()
	if n.trajectory != nil {
		return n.replay(ctx)
	}

	var m match
	var ok bool
	if n.steered() {
		m, ok = n.pickHeuristic(ctx)
	} else {
		m, ok = n.pickRandom(ctx)
	}
	if !ok {
		return false
	}
	rule.Apply(ctx.Grid, n.Rules[m.r], m.x, m.y, m.z, ctx.Record)
	n.counter++
	return true
}

// pickRandom draws matches until one still holds and passes its rule's
// probability. Every drawn match leaves the list.
func (n *OneNode) pickRandom(ctx *Context) (match, bool) {
	mx, my, _ := ctx.Grid.Dims()
	for len(n.matches) > 0 {
		k := ctx.RNG.IntN(len(n.matches))
		m := n.matches[k]
		last := len(n.matches) - 1
		n.matches[k] = n.matches[last]
		n.matches = n.matches[:last]
		n.unmark(m, mx, my)

		r := n.Rules[m.r]
		if !rule.Matches(ctx.Grid, r, m.x, m.y, m.z) {
			continue
		}
		if !passes(ctx, r) {
			// The dropped match is no longer tracked; rescan next time.
			n.lastMatchedTurn = -1
			continue
		}
		return m, true
	}
	return match{}, false
}

// pickHeuristic drops stale matches and returns the one with the best key.
// Matches that fail their probability draw stay in the list. Once an
// observed goal is reached nothing is picked, and the goal is rebuilt on the
// next run.
func (n *OneNode) pickHeuristic(ctx *Context) (match, bool) {
	if n.futureComputed && goalReached(ctx.Grid.State(), n.future) {
		n.futureComputed = false
		return match{}, false
	}
	mx, my, _ := ctx.Grid.Dims()
	best, arg := -1000.0, -1
	first, seen := 0.0, false
	for k := 0; k < len(n.matches); k++ {
		m := n.matches[k]
		r := n.Rules[m.r]
		if !rule.Matches(ctx.Grid, r, m.x, m.y, m.z) {
			n.unmark(m, mx, my)
			last := len(n.matches) - 1
			n.matches[k] = n.matches[last]
			n.matches = n.matches[:last]
			k--
			continue
		}
		h, ok := n.heuristic(ctx, m)
		if !ok || !passes(ctx, r) {
			continue
		}
		if !seen {
			first, seen = h, true
		}
		if key := n.selectionKey(h, first, ctx.RNG.Float64()); key > best {
			best, arg = key, k
		}
	}
	if arg < 0 {
		return match{}, false
	}
	return n.matches[arg], true
}

package engine

import (
	"math"
	"sort"

	"github.com/roach88/mjgrid/internal/field"
	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rng"
	"github.com/roach88/mjgrid/internal/rule"
)

// RuleConfig is the shared configuration of One, All and Parallel nodes.
type RuleConfig struct {
	Rules []*rule.Rule

	// Steps caps how many times the node may apply. Zero means no cap.
	Steps int

	// Fields is indexed by value. A non-nil entry biases selection towards
	// lower potential for cells written with that value.
	Fields []*field.Field

	// Temperature softens heuristic selection. Zero picks the best match
	// with a tiny random tie-break.
	Temperature float64

	// Observations is indexed by value. When set, the node steers towards
	// the observed goal state instead of matching blindly.
	Observations []*Observation

	// Search plans the whole path to the observed goal before the first
	// step and then replays it one state per step.
	Search bool
	// Limit caps how many states a search may visit. Negative means no cap.
	Limit int
	// DepthCoefficient weighs path length against the distance estimates.
	// A negative value searches depth first.
	DepthCoefficient float64
}

type match struct {
	r       int
	x, y, z int
}

// ruleNode holds the match cache shared by rule node kinds.
type ruleNode struct {
	RuleConfig

	counter         int
	matches         []match
	matchMask       [][]bool
	lastMatchedTurn int
	epoch           int

	potentials [][]int32

	// searchAll expands planner states by whole non-overlapping match sets.
	searchAll      bool
	future         []uint32
	futureComputed bool
	trajectory     [][]byte
}

func newRuleNode(cfg RuleConfig) ruleNode {
	return ruleNode{RuleConfig: cfg, lastMatchedTurn: -1}
}

func (n *ruleNode) validate(kind string) error {
	if len(n.Rules) == 0 {
		return NewInvalidNodeError(kind, "rule node has no rules")
	}
	for _, r := range n.Rules {
		if r == nil {
			return NewInvalidNodeError(kind, "nil rule")
		}
	}
	return nil
}

func (n *ruleNode) hasFields() bool {
	for _, f := range n.Fields {
		if f != nil {
			return true
		}
	}
	return false
}

// steered reports whether matches are chosen by heuristic rather than at
// random.
func (n *ruleNode) steered() bool {
	return n.hasFields() || (n.Observations != nil && !n.Search)
}

// Counter reports how many times the node has applied since its last reset.
func (n *ruleNode) Counter() int { return n.counter }

func (n *ruleNode) reset() {
	n.lastMatchedTurn = -1
	n.counter = 0
	n.matches = n.matches[:0]
	for _, m := range n.matchMask {
		clear(m)
	}
	n.futureComputed = false
	n.trajectory = nil
}

func (n *ruleNode) stepsExhausted() bool {
	return n.Steps > 0 && n.counter >= n.Steps
}

// computeMatches refreshes the match list and the field potentials. It
// returns false when the node cannot run this turn.
func (n *ruleNode) computeMatches(ctx *Context) bool {
	if n.stepsExhausted() {
		return false
	}
	if n.Observations != nil && !n.futureComputed && !n.observe(ctx) {
		return false
	}

	size := ctx.Grid.Len()
	if len(n.matchMask) != len(n.Rules) || (len(n.matchMask) > 0 && len(n.matchMask[0]) != size) || n.epoch != ctx.Epoch {
		n.matchMask = make([][]bool, len(n.Rules))
		for r := range n.matchMask {
			n.matchMask[r] = make([]bool, size)
		}
		n.epoch = ctx.Epoch
		n.lastMatchedTurn = -1
	}

	if n.lastMatchedTurn >= 0 {
		n.scanChanges(ctx)
	} else {
		n.scanAll(ctx)
	}

	if n.hasFields() {
		n.ensurePotentials(ctx.Grid.Alphabet().NumValues(), size)
		anySuccess, anyComputation := false, false
		for v, f := range n.Fields {
			if f == nil || (n.counter > 0 && !f.Recompute) {
				continue
			}
			ok := f.Compute(n.potentials[v], ctx.Grid)
			if !ok && f.Essential {
				return false
			}
			anySuccess = anySuccess || ok
			anyComputation = true
		}
		if anyComputation && !anySuccess {
			return false
		}
	}
	return true
}

// observe turns the observations into a goal. It resets observed cells,
// then either plans a trajectory or computes backward potentials that steer
// the heuristic. It returns false when the goal cannot exist.
func (n *ruleNode) observe(ctx *Context) bool {
	state := ctx.Grid.State()
	before := append([]byte(nil), state...)
	if len(n.future) != len(state) {
		n.future = make([]uint32, len(state))
	}
	ok := futureOf(n.future, state, n.Observations)
	n.recordDiff(ctx, before)
	if !ok {
		return false
	}
	n.futureComputed = true

	sp := spaceOf(ctx.Grid)
	values := ctx.Grid.Alphabet().NumValues()
	if !n.Search {
		n.ensurePotentials(values, len(state))
		backwardPotentials(n.potentials, n.future, sp, n.Rules)
		return true
	}

	n.trajectory = nil
	tries := 20
	if n.Limit < 0 {
		tries = 1
	}
	params := searchParams{
		rules:            n.Rules,
		space:            sp,
		c:                values,
		all:              n.searchAll,
		limit:            n.Limit,
		depthCoefficient: n.DepthCoefficient,
	}
	for k := 0; k < tries && n.trajectory == nil; k++ {
		n.trajectory = plan(state, n.future, params, rng.New(ctx.RNG.Uint64()))
	}
	if n.trajectory == nil && ctx.Logger != nil {
		ctx.Logger.Warn("search found no trajectory", "limit", n.Limit, "tries", tries)
	}
	return true
}

// replay copies the next planned state into the grid. It returns false once
// the trajectory is used up.
func (n *ruleNode) replay(ctx *Context) bool {
	if n.counter >= len(n.trajectory) {
		return false
	}
	state := ctx.Grid.State()
	before := append([]byte(nil), state...)
	copy(state, n.trajectory[n.counter])
	n.recordDiff(ctx, before)
	n.counter++
	return true
}

// recordDiff logs every cell whose value differs from before.
func (n *ruleNode) recordDiff(ctx *Context, before []byte) {
	mx, my, _ := ctx.Grid.Dims()
	for i, v := range ctx.Grid.State() {
		if v != before[i] {
			ctx.Record(i%mx, (i%(mx*my))/mx, i/(mx*my))
		}
	}
}

// ensurePotentials sizes one potential array per value. Values without a
// field keep an all-zero potential.
func (n *ruleNode) ensurePotentials(values, size int) {
	if len(n.potentials) != values {
		n.potentials = make([][]int32, values)
	}
	for v := range n.potentials {
		if len(n.potentials[v]) != size {
			n.potentials[v] = make([]int32, size)
		}
	}
}

func (n *ruleNode) add(r, x, y, z, si int) {
	n.matchMask[r][si] = true
	n.matches = append(n.matches, match{r, x, y, z})
}

// candidates calls fn for every anchor whose rule input, placed so that the
// cell (x, y, z) falls under it, fits inside the grid. Anchors on periodic
// axes are folded back onto the grid and never fall off it.
func (n *ruleNode) candidates(ctx *Context, r *rule.Rule, x, y, z int, fn func(sx, sy, sz, si int)) {
	mx, my, mz := ctx.Grid.Dims()
	w := grid.Wraps(ctx.Grid)
	fx, fy, fz := r.Footprint()
	v := ctx.Grid.At(x + y*mx + z*mx*my)
	if int(v) >= len(r.IShifts) {
		return
	}
	for _, s := range r.IShifts[v] {
		sx, okx := placement(x-s.X, fx, mx, w[0])
		sy, oky := placement(y-s.Y, fy, my, w[1])
		sz, okz := placement(z-s.Z, fz, mz, w[2])
		if !okx || !oky || !okz {
			continue
		}
		fn(sx, sy, sz, sx+sy*mx+sz*mx*my)
	}
}

// placement folds an anchor coordinate a on a periodic axis of length m, or
// checks that an extent f placed at a fits on a bounded one.
func placement(a, f, m int, periodic bool) (int, bool) {
	if periodic {
		return grid.Wrap(a, m, true)
	}
	return a, a >= 0 && a+f <= m
}

// lattice returns the cells a full scan visits along one axis: every
// stride-th cell, which is enough to hit every placement at least once. A
// periodic axis runs one stride further, folded, to reach placements across
// the seam.
func lattice(stride, m int, periodic bool) []int {
	end := m
	if periodic {
		end = m + stride - 1
	}
	var out []int
	for v := stride - 1; v < end; v += stride {
		out = append(out, v%m)
	}
	return out
}

// scanLattice calls fn for every candidate anchor of every rule. An anchor
// may be reported more than once on a periodic grid.
func (n *ruleNode) scanLattice(ctx *Context, fn func(ri int, r *rule.Rule, sx, sy, sz, si int)) {
	mx, my, mz := ctx.Grid.Dims()
	w := grid.Wraps(ctx.Grid)
	for ri, r := range n.Rules {
		for _, z := range lattice(r.IMZ, mz, w[2]) {
			for _, y := range lattice(r.IMY, my, w[1]) {
				for _, x := range lattice(r.IMX, mx, w[0]) {
					n.candidates(ctx, r, x, y, z, func(sx, sy, sz, si int) {
						fn(ri, r, sx, sy, sz, si)
					})
				}
			}
		}
	}
}

// scanAll finds every match.
func (n *ruleNode) scanAll(ctx *Context) {
	n.matches = n.matches[:0]
	for _, m := range n.matchMask {
		clear(m)
	}
	n.scanLattice(ctx, func(ri int, r *rule.Rule, sx, sy, sz, si int) {
		if !n.matchMask[ri][si] && rule.Matches(ctx.Grid, r, sx, sy, sz) {
			n.add(ri, sx, sy, sz, si)
		}
	})
}

// scanChanges adds matches around cells written since the last scan.
func (n *ruleNode) scanChanges(ctx *Context) {
	for _, c := range ctx.ChangesSince(n.lastMatchedTurn) {
		for ri, r := range n.Rules {
			n.candidates(ctx, r, c.X, c.Y, c.Z, func(sx, sy, sz, si int) {
				if !n.matchMask[ri][si] && rule.Matches(ctx.Grid, r, sx, sy, sz) {
					n.add(ri, sx, sy, sz, si)
				}
			})
		}
	}
}

// heuristic scores applying m. ok is false when some written value cannot
// reach its field target.
func (n *ruleNode) heuristic(ctx *Context, m match) (float64, bool) {
	d, ok := field.DeltaPointwise(ctx.Grid, n.Rules[m.r], m.x, m.y, m.z, n.Fields, n.potentials)
	return float64(d), ok
}

// selectionKey turns a heuristic into a sortable key; larger keys win.
func (n *ruleNode) selectionKey(h, h0, u float64) float64 {
	if n.Temperature > 0 {
		return math.Pow(u, math.Exp((h-h0)/n.Temperature))
	}
	return -h + 0.001*u
}

type keyed struct {
	k   int
	key float64
}

// heuristicOrder returns indexes into matches ordered by descending key.
// Matches whose heuristic is undefined are left out.
func (n *ruleNode) heuristicOrder(ctx *Context) []int {
	var list []keyed
	first, seen := 0.0, false
	for k, m := range n.matches {
		h, ok := n.heuristic(ctx, m)
		if !ok {
			continue
		}
		if !seen {
			first, seen = h, true
		}
		list = append(list, keyed{k, n.selectionKey(h, first, ctx.RNG.Float64())})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].key > list[j].key })
	out := make([]int, len(list))
	for i, e := range list {
		out[i] = e.k
	}
	return out
}

// passes draws against the rule's probability. Rules with P == 1 never
// consume randomness.
func passes(ctx *Context, r *rule.Rule) bool {
	if r.P >= 1 {
		return true
	}
	return ctx.RNG.Float64() < r.P
}

func (n *ruleNode) unmark(m match, mx, my int) {
	n.matchMask[m.r][m.x+m.y*mx+m.z*mx*my] = false
}

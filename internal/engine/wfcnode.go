package engine

import (
	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rng"
	"github.com/roach88/mjgrid/internal/wfc"
)

// WFCState is the lifecycle of a WFC collapse.
type WFCState int

const (
	WFCInitial WFCState = iota
	WFCRunning
	WFCCompleted
	WFCFailed
)

func (s WFCState) String() string {
	switch s {
	case WFCInitial:
		return "initial"
	case WFCRunning:
		return "running"
	case WFCCompleted:
		return "completed"
	case WFCFailed:
		return "failed"
	}
	return "unknown"
}

// WFCNode collapses a wave of Model patterns sized after the current grid
// and renders the result into Grid. The current grid constrains the wave
// through Map: Map[v][p] says whether pattern p may sit on a cell holding
// value v. A value without a row allows every pattern.
//
// The first step initializes the wave, finds a seed that collapses without
// contradiction and switches to Grid. Each later step observes one cell.
// Once collapsed, the children run in sequence on Grid.
type WFCNode struct {
	Model    wfc.Model
	Grid     *grid.Grid
	Map      [][]bool
	Tries    int
	Periodic bool
	Shannon  bool
	Children []Node

	solver  *wfc.Solver
	cfg     wfc.Config
	state   WFCState
	pending bool
	seed    uint64
	local   *rng.RNG
	n       int
}

// DefaultTries is how many seeds a WFC node attempts before failing.
const DefaultTries = 1000

// NewWFC creates a WFC node rendering into target.
func NewWFC(model wfc.Model, target *grid.Grid, children ...Node) *WFCNode {
	return &WFCNode{Model: model, Grid: target, Tries: DefaultTries, Children: children, n: -1, pending: true}
}

// State reports how the latest collapse went. It survives Reset until the
// next collapse starts.
func (w *WFCNode) State() WFCState { return w.state }

func (w *WFCNode) run(ctx *Context) bool {
	if w.n >= 0 {
		return runSequence(w.Children, &w.n, ctx)
	}
	if w.pending {
		return w.start(ctx)
	}
	if w.state != WFCRunning {
		return false
	}

	switch w.solver.Step(w.local) {
	case wfc.Progress:
		if ctx.Animated {
			w.render()
		}
		return true
	case wfc.Done:
		w.render()
		w.state = WFCCompleted
		w.n = 0
		if len(w.Children) > 0 {
			Reset(w.Children[0])
		}
		return true
	default:
		w.state = WFCFailed
		return false
	}
}

func (w *WFCNode) start(ctx *Context) bool {
	w.pending = false
	mx, my, mz := ctx.Grid.Dims()
	if w.solver == nil || w.cfg.MX != mx || w.cfg.MY != my || w.cfg.MZ != mz {
		w.cfg = wfc.SolverConfig(w.Model, mx, my, mz, w.Periodic, w.Shannon)
		w.solver = wfc.NewSolver(w.cfg)
	}
	ox, oy, oz := w.Model.OutputDims(mx, my, mz)
	if w.Grid.MX != ox || w.Grid.MY != oy || w.Grid.MZ != oz {
		w.Grid.Resize(ox, oy, oz)
	}

	state := ctx.Grid.State()
	ok := w.solver.Init(func(cell, p int) bool {
		v := int(state[cell])
		if v >= len(w.Map) || w.Map[v] == nil {
			return true
		}
		return w.Map[v][p]
	})
	if !ok {
		w.fail(ctx, "initial constraints contradict")
		return false
	}

	seed, ok := w.solver.GoodSeed(ctx.RNG, max(w.Tries, 1))
	if !ok {
		w.fail(ctx, "no seed collapsed without contradiction")
		return false
	}
	w.seed = seed
	w.local = rng.New(seed)
	w.state = WFCRunning
	w.Grid.Clear()
	ctx.SwapGrid(w.Grid)
	return true
}

func (w *WFCNode) fail(ctx *Context, reason string) {
	w.state = WFCFailed
	if ctx.Logger != nil {
		ctx.Logger.Debug("wfc failed", "reason", reason, "tries", w.Tries)
	}
}

// render writes the vote image. Ties are broken from the collapse seed so
// the picture does not depend on how often it was rendered.
func (w *WFCNode) render() {
	w.Model.Votes(w.solver.Wave(), w.cfg, w.Grid, rng.New(w.seed))
}

func (w *WFCNode) reset() {
	w.n = -1
	w.pending = true
	for _, c := range w.Children {
		Reset(c)
	}
}

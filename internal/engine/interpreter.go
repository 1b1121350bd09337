package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/rng"
)

// Interpreter drives a program tree over a grid.
//
// Thread-safety model:
//   - Reset, Step and Run must be called from one goroutine
//   - Counter may be read from any goroutine
type Interpreter struct {
	root    Node
	start   grid.Ops
	ctx     *Context
	origin  bool
	logger  *slog.Logger
	metrics *Metrics
	clock   *Clock
	running bool

	lastStart int
}

// InterpreterOption configures an Interpreter.
type InterpreterOption func(*Interpreter)

// WithOrigin seeds the center cell with value 1 on every reset.
func WithOrigin(origin bool) InterpreterOption {
	return func(i *Interpreter) {
		i.origin = origin
	}
}

// WithLogger sets the logger for reset, step and completion events.
func WithLogger(l *slog.Logger) InterpreterOption {
	return func(i *Interpreter) {
		i.logger = l
	}
}

// WithMetrics records step and run counters.
func WithMetrics(m *Metrics) InterpreterOption {
	return func(i *Interpreter) {
		i.metrics = m
	}
}

// WithAnimated makes WFC nodes render partial results every step.
func WithAnimated(animated bool) InterpreterOption {
	return func(i *Interpreter) {
		i.ctx.Animated = animated
	}
}

// New creates an interpreter running root over g. The tree is checked
// before anything runs.
func New(root Node, g grid.Ops, opts ...InterpreterOption) (*Interpreter, error) {
	if g == nil {
		return nil, NewInvalidNodeError("", "interpreter needs a grid")
	}
	if err := validate(root); err != nil {
		return nil, err
	}
	i := &Interpreter{
		root:   root,
		start:  g,
		ctx:    &Context{Grid: g, RNG: rng.New(0), First: []int{0}},
		logger: slog.Default(),
		clock:  NewClock(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.ctx.Logger = i.logger
	return i, nil
}

// Reset prepares a fresh run from seed: the grid is cleared (and seeded at
// the origin when enabled), the change log emptied and every node reset.
func (i *Interpreter) Reset(seed uint64) {
	i.ctx.RNG.Reseed(seed)
	i.ctx.SwapGrid(i.start)
	i.start.Clear()
	if i.origin && i.start.Alphabet().NumValues() > 1 {
		mx, my, mz := i.start.Dims()
		i.start.SetAt(mx/2+(my/2)*mx+(mz/2)*mx*my, 1)
	}
	i.ctx.resetLog()
	i.ctx.Counter = 0
	i.clock.Reset()
	Reset(i.root)
	i.running = true
	i.lastStart = 0
	i.logger.Debug("interpreter reset", "seed", seed, "origin", i.origin)
}

// Step runs the root once. It returns false when the run is over, either
// because this step made no progress or because it already ended.
func (i *Interpreter) Step() bool {
	if !i.running {
		return false
	}
	before := len(i.ctx.Changes)
	progressed := Go(i.root, i.ctx)
	i.ctx.NextTurn()
	i.ctx.Counter = i.clock.Tick()
	i.lastStart = before
	i.metrics.recordStep(len(i.ctx.Changes) - before)

	if !progressed {
		i.running = false
		i.logger.Debug("interpreter finished", "steps", i.ctx.Counter)
		i.metrics.recordRun("completed", i.ctx.Counter)
	}
	return progressed
}

// Run resets with seed and steps until the program ends or maxSteps steps
// have run. Zero means no limit. It returns the number of steps executed,
// counting the final step that made no progress.
func (i *Interpreter) Run(seed uint64, maxSteps int) int {
	n, _ := i.RunContext(context.Background(), seed, maxSteps, nil)
	return n
}

// RunContext is Run with cancellation and a step hook. onStep, when set,
// sees the grid right after the reset (step 0) and after every step. A
// cancelled run stops between steps and returns ctx.Err().
func (i *Interpreter) RunContext(ctx context.Context, seed uint64, maxSteps int, onStep func(step int)) (int, error) {
	i.Reset(seed)
	if onStep != nil {
		onStep(0)
	}
	for i.running && (maxSteps <= 0 || i.ctx.Counter < maxSteps) {
		if err := ctx.Err(); err != nil {
			i.logger.Debug("interpreter cancelled", "steps", i.ctx.Counter)
			return i.ctx.Counter, err
		}
		i.Step()
		if onStep != nil {
			onStep(i.ctx.Counter)
		}
	}
	if i.running {
		i.logger.Debug("interpreter hit step limit", "steps", i.ctx.Counter)
		i.metrics.recordRun("limit", i.ctx.Counter)
	}
	return i.ctx.Counter, nil
}

// SetAnimated toggles per-step rendering of WFC nodes.
func (i *Interpreter) SetAnimated(animated bool) {
	i.ctx.Animated = animated
}

// LastStepChanges lists the writes of the most recent step. The slice is
// only valid until the next step.
func (i *Interpreter) LastStepChanges() []Position {
	return i.ctx.Changes[i.lastStart:]
}

func (i *Interpreter) IsRunning() bool { return i.running }
func (i *Interpreter) Counter() int { return i.clock.Current() }

// Grid returns the grid currently being rewritten. Map and WFC nodes
// replace it mid-run.
func (i *Interpreter) Grid() grid.Ops { return i.ctx.Grid }

// Seed returns the seed of the current run.
func (i *Interpreter) Seed() uint64 { return i.ctx.RNG.Seed() }

// StateToBytes snapshots the current grid.
func (i *Interpreter) StateToBytes() []byte {
	return i.ctx.Grid.StateToBytes()
}

// StateFromBytes restores a snapshot into the current grid. Cached matches
// are dropped so the next step rescans.
func (i *Interpreter) StateFromBytes(b []byte) error {
	if err := i.ctx.Grid.StateFromBytes(b); err != nil {
		if errors.Is(err, grid.ErrDimensionMismatch) || errors.Is(err, grid.ErrValueOutOfRange) {
			return NewStateMismatchError(len(b), i.ctx.Grid.Len(), err)
		}
		return err
	}
	i.ctx.Epoch++
	return nil
}

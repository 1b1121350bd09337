package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/mjgrid/internal/compiler"
	"github.com/roach88/mjgrid/internal/engine"
	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/recording"
	"github.com/roach88/mjgrid/internal/store"
	"github.com/roach88/mjgrid/internal/testutil"
)

// Harness is the scenario execution engine. It runs a model with the
// scenario's seed, records every distinct state and keeps the run in a
// private store.
type Harness struct {
	store  *store.Store
	ids    recording.IDGenerator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// The run ID is fixed per scenario so results are reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load and compile the model
// 3. Run it, capturing a frame per step
// 4. Persist the run and read the final frame back
// 5. Evaluate assertions and return the result
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		ids:    testutil.NewFixedRunIDGenerator("scenario-" + scenario.Name),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()

	model, err := compiler.Load(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	in, rec, err := h.play(model, scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to run model: %w", err)
	}

	result := NewResult()
	if err := h.persist(ctx, scenario, in, rec, result); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	summarize(in.Grid(), result)

	actx := &AssertionContext{
		Grid: in.Grid(),
		Rerun: func() (*Result, error) {
			again, err := compiler.Load(scenario.Model)
			if err != nil {
				return nil, err
			}
			in, rec, err := h.play(again, scenario)
			if err != nil {
				return nil, err
			}
			r := NewResult()
			r.Steps = in.Counter()
			r.Frames = rec.Frames()
			return r, nil
		},
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// play runs model to completion or to the scenario's step limit, capturing
// the initial state and then every step.
func (h *Harness) play(model *compiler.Model, s *Scenario) (*engine.Interpreter, *recording.Recorder, error) {
	in, err := model.Interpreter(engine.WithLogger(h.logger))
	if err != nil {
		return nil, nil, err
	}
	rec := recording.NewRecorder(h.ids)
	_, err = in.RunContext(context.Background(), s.Seed, s.MaxSteps, func(step int) {
		rec.CaptureStep(recording.Adapt(in.Grid()), step)
	})
	if err != nil {
		return nil, nil, err
	}
	return in, rec, nil
}

// persist stores the run and its frames, then fills result from what the
// store gives back.
func (h *Harness) persist(ctx context.Context, s *Scenario, in *engine.Interpreter, rec *recording.Recorder, result *Result) error {
	frames := rec.Frames()
	first := frames[0]
	run := store.Run{
		ID:       rec.ID,
		Model:    s.Model,
		Seed:     s.Seed,
		GridType: first.GridType,
		Palette:  first.Palette,
	}
	if err := h.store.CreateRun(ctx, run); err != nil {
		return err
	}
	if err := h.store.WriteFrames(ctx, rec.ID, frames); err != nil {
		return err
	}

	status := store.StatusLimit
	if !in.IsRunning() {
		status = store.StatusCompleted
	}
	if err := h.store.FinishRun(ctx, rec.ID, in.Counter(), status); err != nil {
		return err
	}

	stored, err := h.store.GetRun(ctx, rec.ID)
	if err != nil {
		return err
	}
	last, err := h.store.LatestFrame(ctx, rec.ID)
	if err != nil {
		return err
	}
	saved, err := h.store.ReadFrames(ctx, rec.ID)
	if err != nil {
		return err
	}

	result.RunID = stored.ID
	result.Steps = stored.Steps
	result.Completed = stored.Status == store.StatusCompleted
	result.Hash = last.Hash
	result.Frames = saved
	return nil
}

// summarize renders the final grid and counts its values.
func summarize(g grid.Ops, result *Result) {
	result.Grid = grid.Render(g)
	alpha := g.Alphabet()
	for _, ch := range alpha.Chars() {
		result.Counts[string(ch)] = 0
	}
	for i := 0; i < g.Len(); i++ {
		if ch, ok := alpha.Char(g.At(i)); ok {
			result.Counts[string(ch)]++
		}
	}
}

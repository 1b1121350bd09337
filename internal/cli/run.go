package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/mjgrid/internal/compiler"
	"github.com/roach88/mjgrid/internal/engine"
	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/recording"
	"github.com/roach88/mjgrid/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Seed       uint64
	Steps      int
	Animated   bool
	Database   string
	MetricsOut string

	// RunIDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to recording.UUIDv7Generator.
	RunIDGenerator recording.IDGenerator
}

// RunResult is what run prints.
type RunResult struct {
	Model     string `json:"model"`
	Seed      uint64 `json:"seed"`
	Steps     int    `json:"steps"`
	Completed bool   `json:"completed"`
	Hash      string `json:"hash"`
	Grid      string `json:"grid"`
	RunID     string `json:"run_id,omitempty"`
	Frames    int    `json:"frames,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <model.cue|model-dir>",
		Short: "Run a model and print the final grid",
		Long: `Run a model from a seed until no node can make progress or the
step limit is reached, then print the final grid.

With --db the run is recorded to SQLite: every step in --animated mode,
otherwise only the final state. --metrics-out writes the run's Prometheus
counters in text exposition format.

Example:
  mjgrid run ./models/growth.cue --seed 42
  mjgrid run ./models/maze.cue --seed 7 --steps 500 --db ./runs.db --animated
  mjgrid run ./models/dungeon --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModel(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&opts.Steps, "steps", 0, "maximum steps (0 = until done)")
	cmd.Flags().BoolVar(&opts.Animated, "animated", false, "record every step and render WFC progress")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run to this SQLite database")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to this file")

	return cmd
}

func runModel(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	logger, closeLog, err := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open log file", err)
	}
	defer closeLog()

	if opts.Steps < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --steps %d", opts.Steps))
	}

	logger.Debug("loading model", "path", path)
	model, err := LoadModel(path)
	if err != nil {
		return loadFailure(formatter, err)
	}

	reg := prometheus.NewRegistry()
	in, err := model.Interpreter(
		engine.WithLogger(logger),
		engine.WithMetrics(engine.NewMetrics(reg)),
		engine.WithAnimated(opts.Animated),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid model", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rec *recording.Recorder
	if opts.Database != "" {
		gen := opts.RunIDGenerator
		if gen == nil {
			gen = recording.UUIDv7Generator{}
		}
		rec = recording.NewRecorder(gen)
	}

	logger.Info("run starting", "model", model.Name, "seed", opts.Seed, "max_steps", opts.Steps)
	steps, err := in.RunContext(ctx, opts.Seed, opts.Steps, func(step int) {
		if rec != nil && opts.Animated {
			rec.CaptureStep(recording.Adapt(in.Grid()), step)
		}
	})
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return WrapExitError(ExitFailure, "run failed", err)
	}
	if rec != nil && !opts.Animated {
		rec.CaptureStep(recording.Adapt(in.Grid()), steps)
	}
	logger.Info("run finished", "steps", steps, "completed", !in.IsRunning(), "interrupted", interrupted)

	final := in.StateToBytes()
	result := RunResult{
		Model:     model.Name,
		Seed:      opts.Seed,
		Steps:     steps,
		Completed: !in.IsRunning(),
		Hash:      recording.Hash(final),
		Grid:      grid.Render(in.Grid()),
	}

	if rec != nil {
		modelPath, err := filepath.Abs(path)
		if err != nil {
			modelPath = path
		}
		if err := saveRun(context.Background(), opts.Database, modelPath, model, opts.Seed, in, rec, logger); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		result.RunID = rec.ID
		result.Frames = len(rec.Frames())
	}

	if opts.MetricsOut != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsOut, reg); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
		logger.Debug("metrics written", "path", opts.MetricsOut)
	}

	if opts.Format == "json" {
		if err := formatter.SuccessWithRun(result, result.RunID); err != nil {
			return err
		}
	} else {
		fmt.Fprint(formatter.Writer, result.Grid)
		formatter.VerboseLog("steps=%d completed=%t hash=%s", result.Steps, result.Completed, result.Hash)
		if result.RunID != "" {
			formatter.VerboseLog("recorded run %s (%d frames)", result.RunID, result.Frames)
		}
	}
	if interrupted {
		return NewExitError(ExitFailure, "interrupted")
	}
	return nil
}

// saveRun writes a finished run and its frames to the database at dbPath.
// The model path is stored so replay can re-run the seed.
func saveRun(ctx context.Context, dbPath, modelPath string, model *compiler.Model, seed uint64, in *engine.Interpreter, rec *recording.Recorder, logger *slog.Logger) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	frames := rec.Frames()
	first := frames[0]
	if err := st.CreateRun(ctx, store.Run{
		ID:       rec.ID,
		Model:    modelPath,
		Seed:     seed,
		GridType: first.GridType,
		Palette:  first.Palette,
	}); err != nil {
		return err
	}
	if err := st.WriteFrames(ctx, rec.ID, frames); err != nil {
		return err
	}
	status := store.StatusLimit
	if !in.IsRunning() {
		status = store.StatusCompleted
	}
	if err := st.FinishRun(ctx, rec.ID, in.Counter(), status); err != nil {
		return err
	}
	logger.Info("run recorded", "id", rec.ID, "model", model.Name, "frames", len(frames), "db", dbPath)
	return nil
}

// loadFailure reports a model load error with its code and returns the
// command error.
func loadFailure(formatter *OutputFormatter, err error) error {
	code, msg := ErrCodeGeneric, err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, msg = loadErr.Code, loadErr.Error()
	}
	_ = formatter.Error(code, msg, nil)
	return WrapExitError(ExitCommandError, "failed to load model", err)
}

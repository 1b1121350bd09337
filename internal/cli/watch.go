package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/mjgrid/internal/engine"
	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/recording"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Seed     uint64
	Steps    int
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <model.cue|model-dir>",
		Short: "Re-run a model whenever its CUE files change",
		Long: `Run a model, print the final grid, then run it again each time the
model file (or any .cue file of a model directory) is written.

Load errors are reported and watching continues. Stop with Ctrl-C.

Example:
  mjgrid watch ./models/growth.cue --seed 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&opts.Steps, "steps", 0, "maximum steps (0 = until done)")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 100*time.Millisecond, "wait this long after the last change before re-running")

	return cmd
}

func runWatch(opts *WatchOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	logger, closeLog, err := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open log file", err)
	}
	defer closeLog()

	if opts.Debounce <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --debounce %s", opts.Debounce))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid model path", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("model path not found: %s", path), err)
	}

	// Editors often replace files instead of writing them, so the
	// directory is watched and events are filtered.
	dir, match := abs, func(name string) bool { return strings.HasSuffix(name, ".cue") }
	if !info.IsDir() {
		dir = filepath.Dir(abs)
		match = func(name string) bool { return name == abs }
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create watcher", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return WrapExitError(ExitCommandError, "failed to watch model", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	render := func() { renderWatched(opts, abs, formatter, logger) }
	render()
	logger.Info("watching", "path", dir)

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !match(filepath.Clean(event.Name)) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("model changed", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(opts.Debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-timerC:
			timer, timerC = nil, nil
			render()
		}
	}
}

// renderWatched loads and runs the model once and prints the result. Load
// errors are printed and do not end the watch.
func renderWatched(opts *WatchOptions, path string, formatter *OutputFormatter, logger *slog.Logger) {
	model, err := LoadModel(path)
	if err != nil {
		_ = loadFailure(formatter, err)
		return
	}
	in, err := model.Interpreter(engine.WithLogger(logger))
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return
	}
	steps := in.Run(opts.Seed, opts.Steps)
	logger.Info("model run", "model", model.Name, "steps", steps, "completed", !in.IsRunning())

	if opts.Format == "json" {
		_ = formatter.Success(RunResult{
			Model:     model.Name,
			Seed:      opts.Seed,
			Steps:     steps,
			Completed: !in.IsRunning(),
			Hash:      recording.Hash(in.StateToBytes()),
			Grid:      grid.Render(in.Grid()),
		})
		return
	}
	writeWatchFrame(formatter.Writer, model.Name, opts.Seed, steps, grid.Render(in.Grid()))
}

func writeWatchFrame(w io.Writer, name string, seed uint64, steps int, rendered string) {
	fmt.Fprintf(w, "# %s seed=%d steps=%d\n", name, seed, steps)
	fmt.Fprint(w, rendered)
	fmt.Fprintln(w)
}

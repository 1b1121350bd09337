package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mjgrid/internal/compiler"
	"github.com/roach88/mjgrid/internal/grid"
	"github.com/roach88/mjgrid/internal/recording"
	"github.com/roach88/mjgrid/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Frame    int  // -1 means the latest frame
	NoVerify bool // skip re-running the model
}

// ReplayResult holds the replay of one recorded run.
type ReplayResult struct {
	Run    store.Run `json:"run"`
	Frame  int       `json:"frame"`
	Step   int       `json:"step"`
	Frames int       `json:"frames"`
	Hash   string    `json:"hash"`
	Grid   string    `json:"grid"`

	// Verified is nil when the determinism check did not run.
	Verified   *bool  `json:"verified,omitempty"`
	RerunHash  string `json:"rerun_hash,omitempty"`
	VerifyNote string `json:"verify_note,omitempty"`

	// SameState lists other runs with a frame in the restored state.
	SameState []string `json:"same_state,omitempty"`
}

// RunListResult holds the runs of a database.
type RunListResult struct {
	Runs  []store.Run `json:"runs"`
	Total int         `json:"total"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id]",
		Short: "Replay a recorded run and verify determinism",
		Long: `Restore a recorded frame and print its grid.

Without a run ID the runs in the database are listed. With one, the latest
frame (or --frame N) is restored from the database. The model is then run
again with the recorded seed and step count and its final state hash is
compared with the recorded one.

Exit codes:
  0 - Replay succeeded and the run is deterministic
  1 - Determinism verification failed (hashes differ)
  2 - Command error (database or run not found, etc.)

Examples:
  mjgrid replay --db ./runs.db
  mjgrid replay --db ./runs.db 01929f3e-...
  mjgrid replay --db ./runs.db 01929f3e-... --frame 12 --no-verify`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListRuns(opts, cmd)
			}
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Frame, "frame", -1, "frame sequence number to restore (default latest)")
	cmd.Flags().BoolVar(&opts.NoVerify, "no-verify", false, "skip the determinism check")

	return cmd
}

func openReplayStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runListRuns(opts *ReplayOptions, cmd *cobra.Command) error {
	st, err := openReplayStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	result := RunListResult{Runs: runs, Total: len(runs)}

	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  seed=%d steps=%d %s  %s\n", r.ID, r.Seed, r.Steps, r.Status, r.Model)
	}
	return nil
}

func runReplay(opts *ReplayOptions, runID string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	logger, closeLog, err := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open log file", err)
	}
	defer closeLog()

	st, err := openReplayStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.GetRun(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID), err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	frames, err := st.ReadFrames(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read frames", err)
	}
	if len(frames) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s has no frames", runID))
	}

	var frame recording.Frame
	if opts.Frame < 0 {
		frame = frames[len(frames)-1]
	} else {
		frame, err = st.ReadFrame(ctx, runID, opts.Frame)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("frame %d", opts.Frame), err)
		}
	}

	g, err := restoreFrame(frame)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to restore frame", err)
	}
	logger.Debug("frame restored", "run", runID, "seq", frame.Seq, "step", frame.Step)

	result := ReplayResult{
		Run:    run,
		Frame:  frame.Seq,
		Step:   frame.Step,
		Frames: len(frames),
		Hash:   frame.Hash,
		Grid:   grid.Render(g),
	}

	others, err := st.RunsReaching(ctx, frame.Hash)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to look up matching runs", err)
	}
	for _, id := range others {
		if id != run.ID {
			result.SameState = append(result.SameState, id)
		}
	}

	if !opts.NoVerify {
		verifyRun(run, frames[len(frames)-1], &result)
		logger.Info("determinism check", "run", runID, "note", result.VerifyNote)
	}

	if opts.Format == "json" {
		if err := formatter.SuccessWithRun(result, run.ID); err != nil {
			return err
		}
	} else {
		writeReplayText(formatter.Writer, result)
	}

	if result.Verified != nil && !*result.Verified {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s is not reproducible", runID))
	}
	return nil
}

// restoreFrame rebuilds a grid of the frame's geometry and palette and
// loads its state.
func restoreFrame(f recording.Frame) (grid.Ops, error) {
	g, err := recording.NewGrid(f.GridType, f.Palette)
	if err != nil {
		return nil, err
	}
	if err := recording.Restore(f, recording.Adapt(g)); err != nil {
		return nil, err
	}
	return g, nil
}

// verifyRun re-runs the recorded model and compares its final hash with
// the last recorded frame. A model that can no longer be loaded leaves
// Verified nil.
func verifyRun(run store.Run, last recording.Frame, result *ReplayResult) {
	model, err := compiler.Load(run.Model)
	if err != nil {
		result.VerifyNote = fmt.Sprintf("skipped: %v", err)
		return
	}
	in, err := model.Interpreter()
	if err != nil {
		result.VerifyNote = fmt.Sprintf("skipped: %v", err)
		return
	}
	in.Run(run.Seed, run.Steps)

	result.RerunHash = recording.Hash(in.StateToBytes())
	ok := result.RerunHash == last.Hash
	result.Verified = &ok
	if ok {
		result.VerifyNote = "deterministic"
	} else {
		result.VerifyNote = "final state differs"
	}
}

func writeReplayText(w io.Writer, result ReplayResult) {
	fmt.Fprint(w, result.Grid)
	fmt.Fprintf(w, "\nrun %s  seed=%d  frame %d/%d (step %d)\n",
		result.Run.ID, result.Run.Seed, result.Frame, result.Frames-1, result.Step)
	if len(result.SameState) > 0 {
		fmt.Fprintf(w, "same state in %d other run(s): %s\n", len(result.SameState), strings.Join(result.SameState, ", "))
	}
	switch {
	case result.Verified == nil && result.VerifyNote == "":
	case result.Verified == nil:
		fmt.Fprintf(w, "- determinism check %s\n", result.VerifyNote)
	case *result.Verified:
		fmt.Fprintln(w, "✓ Deterministic")
	default:
		fmt.Fprintf(w, "✗ Not deterministic: recorded %s, re-run %s\n", result.Hash, result.RerunHash)
	}
}

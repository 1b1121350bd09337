package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/mjgrid/internal/engine"
	"github.com/roach88/mjgrid/internal/recording"
)

// maxBatchSeeds bounds how many runs one batch may request.
const maxBatchSeeds = 100000

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	Seeds      string
	Jobs       int
	Steps      int
	MetricsOut string
}

// SeedResult is the outcome of one run of a batch.
type SeedResult struct {
	Seed      uint64 `json:"seed"`
	Steps     int    `json:"steps"`
	Completed bool   `json:"completed"`
	Hash      string `json:"hash"`
}

// BatchResult holds the outcome of every seed, in seed-list order.
type BatchResult struct {
	Model   string       `json:"model"`
	Runs    []SeedResult `json:"runs"`
	Total   int          `json:"total"`
	Limited int          `json:"limited"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch <model.cue|model-dir>",
		Short: "Run a model for many seeds concurrently",
		Long: `Run independent copies of a model, one per seed, on up to --jobs
goroutines and report the step count and final state hash of each.

Seeds are a comma-separated list of numbers and inclusive ranges.

Example:
  mjgrid batch ./models/growth.cue --seeds 1-100
  mjgrid batch ./models/maze.cue --seeds 1,5,9-12 --jobs 4 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Seeds, "seeds", "1-10", "seeds to run, e.g. 1-100 or 1,2,7-9")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", runtime.NumCPU(), "concurrent runs")
	cmd.Flags().IntVar(&opts.Steps, "steps", 0, "maximum steps per run (0 = until done)")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to this file")

	return cmd
}

func runBatch(opts *BatchOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	logger, closeLog, err := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open log file", err)
	}
	defer closeLog()

	seeds, err := ParseSeeds(opts.Seeds)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --seeds", err)
	}
	if opts.Jobs < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --jobs %d", opts.Jobs))
	}

	// Compile once up front so a broken model fails before any goroutine starts.
	model, err := LoadModel(path)
	if err != nil {
		return loadFailure(formatter, err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)
	runs, err := batchRuns(parentCtx, path, seeds, opts.Jobs, opts.Steps, metrics, logger)
	if err != nil {
		return WrapExitError(ExitFailure, "batch failed", err)
	}

	result := BatchResult{Model: model.Name, Runs: runs, Total: len(runs)}
	for _, r := range runs {
		if !r.Completed {
			result.Limited++
		}
	}

	if opts.MetricsOut != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsOut, reg); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	writeBatchText(formatter.Writer, result)
	return nil
}

// batchRuns runs the model at path once per seed with at most jobs runs in
// flight. Every run compiles its own copy of the model, so no node or grid
// is shared between goroutines. Results keep the order of seeds.
func batchRuns(ctx context.Context, path string, seeds []uint64, jobs, maxSteps int, metrics *engine.Metrics, logger *slog.Logger) ([]SeedResult, error) {
	results := make([]SeedResult, len(seeds))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, seed := range seeds {
		g.Go(func() error {
			model, err := LoadModel(path)
			if err != nil {
				return err
			}
			in, err := model.Interpreter(engine.WithLogger(logger), engine.WithMetrics(metrics))
			if err != nil {
				return err
			}
			steps, err := in.RunContext(gCtx, seed, maxSteps, nil)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = SeedResult{
				Seed:      seed,
				Steps:     steps,
				Completed: !in.IsRunning(),
				Hash:      recording.Hash(in.StateToBytes()),
			}
			logger.Debug("batch run finished", "seed", seed, "steps", steps)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ParseSeeds parses a comma-separated list of seeds and inclusive ranges
// such as "1-3,7". Order is kept and duplicates are allowed.
func ParseSeeds(list string) ([]uint64, error) {
	var seeds []uint64
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty seed in %q", list)
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.ParseUint(strings.TrimSpace(lo), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("seed %q: %w", part, err)
		}
		to := from
		if isRange {
			to, err = strconv.ParseUint(strings.TrimSpace(hi), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("seed %q: %w", part, err)
			}
			if to < from {
				return nil, fmt.Errorf("seed range %q is descending", part)
			}
		}
		if to-from >= maxBatchSeeds || len(seeds)+int(to-from+1) > maxBatchSeeds {
			return nil, fmt.Errorf("more than %d seeds", maxBatchSeeds)
		}
		for s := from; ; s++ {
			seeds = append(seeds, s)
			if s == to {
				break
			}
		}
	}
	return seeds, nil
}

func writeBatchText(w io.Writer, result BatchResult) {
	fmt.Fprintf(w, "%-12s %8s  %s\n", "SEED", "STEPS", "HASH")
	for _, r := range result.Runs {
		mark := ""
		if !r.Completed {
			mark = " (limit)"
		}
		fmt.Fprintf(w, "%-12d %8d  %s%s\n", r.Seed, r.Steps, r.Hash, mark)
	}
	fmt.Fprintf(w, "\n%d runs, %d stopped at the step limit\n", result.Total, result.Limited)
}

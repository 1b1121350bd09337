package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

// RootOptions are the persistent flags shared by every subcommand.
type RootOptions struct {
	Verbose bool
	Format  string // text or json
	LogFile string // JSON log copy, in addition to stderr
}

// ValidFormats lists the values accepted by --format.
var ValidFormats = []string{"text", "json"}

// NewRootCommand builds the mjgrid command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "mjgrid",
		Short:   "mjgrid - grid rewriting with rules and wave function collapse",
		Version: Version,
		Long: `Run probabilistic rewrite-rule models over 2D and 3D grids.

Models are CUE files describing an alphabet, a grid size and a tree of
rule nodes. Runs are reproducible from their seed and can be recorded
to SQLite for replay.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.LogFile, "log-file", "", "also write JSON logs to this file")

	cmd.AddCommand(
		NewRunCommand(opts),
		NewValidateCommand(opts),
		NewBatchCommand(opts),
		NewReplayCommand(opts),
		NewTestCommand(opts),
		NewWatchCommand(opts),
	)
	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mjgrid/internal/engine"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Model  string `json:"model"`
	Values string `json:"values"`
	Size   [3]int `json:"size"`
	Nodes  int    `json:"nodes"`
	Origin bool   `json:"origin"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model.cue|model-dir>",
		Short: "Compile a model without running it",
		Long: `Compile a CUE model and report the first problem with an error code.

Error codes:
  E003-E006  the CUE files could not be found, loaded or built
  E101-E104  model-level fields (model, values, size, symmetry)
  E110-E114  node fields (kind, rules, fields, map scale, WFC)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	model, err := LoadModel(path)
	if err != nil {
		_ = loadFailure(formatter, err)
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	nodes := 0
	engine.Walk(model.Root, func(engine.Node) { nodes++ })
	mx, my, mz := model.Grid.Dims()

	result := ValidationResult{
		Valid:  true,
		Model:  model.Name,
		Values: model.Grid.Alphabet().String(),
		Size:   [3]int{mx, my, mz},
		Nodes:  nodes,
		Origin: model.Origin,
	}
	formatter.VerboseLog("%s: %d nodes, %d cells", path, nodes, model.Grid.Len())

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is valid (%dx%dx%d, values %q, %d nodes)\n",
		result.Model, result.Size[0], result.Size[1], result.Size[2], result.Values, result.Nodes)
	return nil
}

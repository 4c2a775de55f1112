// Package cli — inspect.go implements the "nbrun inspect" command, which
// reports how papermill will inject parameters into a notebook.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/nbrun/internal/config"
	"github.com/shinji-kodama/nbrun/internal/notebook"
)

// NewInspectCommand creates the "inspect" cobra command.
func NewInspectCommand() *cobra.Command {
	var trainInfo string

	cmd := &cobra.Command{
		Use:   "inspect <notebook>",
		Short: "Show a notebook's parameters cell",
		Long: `Show which cells of a notebook are tagged "parameters".

With --train-info, also check that the given parameters can be injected
(the notebook must have exactly one parameters cell).

Examples:
  nbrun inspect apphub/image_classification/mnist/mnist.ipynb
  nbrun inspect mnist.ipynb --train-info "-p epochs 2"`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), args[0], trainInfo)
		},
	}

	cmd.Flags().StringVar(&trainInfo, "train-info", "", "Papermill argument string to check")

	return cmd
}

func runInspect(w io.Writer, path, trainInfo string) error {
	nb, err := notebook.Load(path)
	if err != nil {
		return err
	}

	params, err := config.SplitParams(trainInfo)
	if err != nil {
		return err
	}
	names, err := notebook.ParameterNames(params)
	if err != nil {
		return err
	}
	if err := notebook.Check(nb, params); err != nil {
		return err
	}

	cells := nb.ParametersCells()
	if IsJSONOutput() {
		printJSON(w, map[string]interface{}{
			"notebook":        path,
			"cells":           len(nb.Cells),
			"parametersCells": append([]int{}, cells...),
			"parameters":      append([]string{}, names...),
		})
		return nil
	}

	fmt.Fprintf(w, "%s: %d cells\n", path, len(nb.Cells))
	if len(cells) == 0 {
		fmt.Fprintf(w, "  no cell tagged %q\n", notebook.ParametersTag)
	} else {
		fmt.Fprintf(w, "  parameters cells: %v\n", cells)
	}
	if len(names) > 0 {
		fmt.Fprintf(w, "  injected: %s\n", strings.Join(names, ", "))
	}
	return nil
}

// Package cli — init.go implements the "nbrun init" command, which writes
// a fill-in-the-blanks run template for a new example.
package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/nbrun/internal/config"
)

// defaultTrainInfo is the short-training argument string most apphub
// examples use in nightly runs.
const defaultTrainInfo = "-p epochs 2 -p batch_size 2 -p steps_per_epoch 10 -p validation_steps 5"

type initFlags struct {
	dir       string
	sourceDir string
	trainInfo string
	force     bool
}

// NewInitCommand creates the "init" cobra command.
func NewInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init <example-name>",
		Short: "Write a run template for an example notebook",
		Long: `Write run_notebook.yaml for an example notebook.

The example name must match the notebook file name without .ipynb.
Edit source_dir and train_info in the generated file before running.

Examples:
  nbrun init mnist --source-dir image_classification/mnist
  nbrun init lung_segmentation --dir test/apphub_scripts/lung_segmentation`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.dir, "dir", ".", "Directory to write the template into")
	cmd.Flags().StringVar(&flags.sourceDir, "source-dir", "", "Example directory relative to the apphub root")
	cmd.Flags().StringVar(&flags.trainInfo, "train-info", defaultTrainInfo, "Papermill argument string")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite an existing template")

	return cmd
}

func runInit(w io.Writer, exampleName string, flags *initFlags) error {
	tmpl := &config.Template{
		ExampleName: exampleName,
		SourceDir:   flags.sourceDir,
		TrainInfo:   flags.trainInfo,
	}
	tmpl.ApplyDefaults()
	if err := tmpl.Validate(); err != nil {
		return err
	}
	if _, err := config.SplitParams(tmpl.TrainInfo); err != nil {
		return err
	}

	path := filepath.Join(flags.dir, config.DefaultFileName)
	if err := config.Write(path, tmpl, flags.force); err != nil {
		return err
	}

	if IsJSONOutput() {
		printJSON(w, map[string]interface{}{"template": path, "exampleName": exampleName})
		return nil
	}
	fmt.Fprintf(w, "Wrote %s\n", path)
	return nil
}

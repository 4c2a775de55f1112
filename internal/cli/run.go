// Package cli — run.go implements the "nbrun run" command.
//
// The run command loads an example's run template, resolves the notebook
// paths, and hands the papermill invocation to the selected executor. A
// notebook that fails makes the command fail with ExitNotebookFailed and an
// error naming the notebook; papermill's stderr is left in the log file.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/nbrun/internal/config"
	"github.com/shinji-kodama/nbrun/internal/docker"
	"github.com/shinji-kodama/nbrun/internal/model"
	"github.com/shinji-kodama/nbrun/internal/notebook"
	"github.com/shinji-kodama/nbrun/internal/runner"
)

// runFlags holds the template overrides accepted by the run command.
type runFlags struct {
	kernel    string
	trainInfo string
	command   string
	executor  string
	image     string
	check     bool
	dryRun    bool
}

// NewRunCommand creates the "run" cobra command.
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [template]",
		Short: "Run an example notebook and fail if it errors",
		Long: `Run the notebook described by a run template.

The template argument may be a run_notebook.yaml file or the directory
containing one; it defaults to ./run_notebook.yaml. Flags override the
corresponding template fields for this run only.

Examples:
  nbrun run
  nbrun run test/apphub_scripts/mnist
  nbrun run --train-info "-p epochs 1" --kernel python3
  nbrun run --executor docker --image fastestimator/nightly:latest`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return runRun(cmd.Context(), cmd, target, flags)
		},
	}

	cmd.Flags().StringVar(&flags.kernel, "kernel", "", "Kernel name passed to papermill with -k")
	cmd.Flags().StringVar(&flags.trainInfo, "train-info", "", "Papermill argument string, e.g. \"-p epochs 2\"")
	cmd.Flags().StringVar(&flags.command, "command", "", "Notebook execution command (default: papermill)")
	cmd.Flags().StringVar(&flags.executor, "executor", "", "Where to run the command: local, docker")
	cmd.Flags().StringVar(&flags.image, "image", "", "Container image for the docker executor")
	cmd.Flags().BoolVar(&flags.check, "check", false, "Check the notebook's parameters cell before running")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the command line without running it")

	return cmd
}

// templatePath resolves the run command's positional argument to a
// template file path.
func templatePath(target string) string {
	if target == "" {
		return config.DefaultFileName
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, config.DefaultFileName)
	}
	return target
}

// applyOverrides copies explicitly set flags onto the template.
func applyOverrides(cmd *cobra.Command, tmpl *config.Template, flags *runFlags) {
	if cmd.Flags().Changed("kernel") {
		tmpl.Kernel = flags.kernel
	}
	if cmd.Flags().Changed("train-info") {
		tmpl.TrainInfo = flags.trainInfo
	}
	if cmd.Flags().Changed("command") {
		tmpl.Command = flags.command
	}
	if cmd.Flags().Changed("executor") {
		tmpl.Executor = flags.executor
	}
	if cmd.Flags().Changed("image") {
		tmpl.Image = flags.image
	}
	if flags.check {
		tmpl.CheckNotebook = true
	}
	tmpl.ApplyDefaults()
}

// runRun is the main logic function for the run command.
func runRun(ctx context.Context, cmd *cobra.Command, target string, flags *runFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Load the template and apply flag overrides.
	path := templatePath(target)
	tmpl, err := config.Load(path)
	if err != nil {
		return err
	}
	applyOverrides(cmd, tmpl, flags)
	VerboseLog("Loaded run template %s", path)

	// Step 2: Resolve paths relative to the template's directory.
	run, err := tmpl.Resolve(filepath.Dir(path))
	if err != nil {
		return err
	}
	VerboseLog("Input notebook:  %s", run.Input)
	VerboseLog("Output notebook: %s", run.Output)
	VerboseLog("Log file:        %s", run.LogFile)

	// Step 3: Optional pre-flight check of the parameters cell.
	if tmpl.CheckNotebook {
		nb, err := notebook.Load(run.Input)
		if err != nil {
			return err
		}
		if err := notebook.Check(nb, run.Params); err != nil {
			return err
		}
		VerboseLog("Notebook check passed (%d parameters cell)", len(nb.ParametersCells()))
	}

	out := cmd.OutOrStdout()

	if flags.dryRun {
		inv := runner.New(nil, tmpl.Command).Invocation(run)
		printRunResult(out, run, inv, "dry-run")
		return nil
	}

	// Step 4: Build the executor and run.
	executor, cleanup, err := newExecutor(ctx, tmpl)
	if err != nil {
		return err
	}
	defer cleanup()

	r := runner.New(executor, tmpl.Command)
	inv := r.Invocation(run)
	VerboseLog("Running %s", runner.CommandLine(inv))

	if err := r.Run(ctx, run); err != nil {
		return err
	}

	printRunResult(out, run, inv, "passed")
	return nil
}

// newExecutor builds the executor selected by the template. The returned
// cleanup func releases any client it opened.
func newExecutor(ctx context.Context, tmpl *config.Template) (runner.Executor, func(), error) {
	switch tmpl.ExecutorKind() {
	case model.ExecutorDocker:
		c, err := docker.NewClient()
		if err != nil {
			return nil, nil, err
		}
		if err := c.Ping(ctx); err != nil {
			_ = c.Close()
			return nil, nil, err
		}
		VerboseLog("Connected to Docker daemon, image %s", tmpl.Image)

		ex := docker.NewContainerExecutor(c, tmpl.Image)
		if verbose {
			ex.Stdout = os.Stderr
		}
		return ex, func() { _ = c.Close() }, nil

	default:
		ex := runner.NewLocalExecutor()
		if verbose {
			ex.Stdout = os.Stderr
		}
		return ex, func() {}, nil
	}
}

// printRunResult writes the outcome of a run. A passing run is silent in
// text mode, like the tool itself; JSON mode always reports.
func printRunResult(w io.Writer, run model.NotebookRun, inv model.Invocation, status string) {
	if IsJSONOutput() {
		printJSON(w, map[string]interface{}{
			"status":  status,
			"input":   run.Input,
			"output":  run.Output,
			"logFile": run.LogFile,
			"kernel":  run.Kernel,
			"command": runner.CommandLine(inv),
		})
		return
	}

	if status == "dry-run" {
		fmt.Fprintln(w, runner.CommandLine(inv))
		return
	}
	VerboseLog("%s %s -> %s", status, run.Input, run.Output)
}

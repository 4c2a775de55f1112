package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/shinji-kodama/nbrun/internal/model"
)

// Runner runs notebooks through an Executor.
type Runner struct {
	executor Executor
	command  string
}

// New creates a Runner that invokes command (e.g. "papermill") through executor.
// An empty command selects model.DefaultCommand.
func New(executor Executor, command string) *Runner {
	if command == "" {
		command = model.DefaultCommand
	}
	return &Runner{executor: executor, command: command}
}

// Invocation returns the command line Run would execute for run.
func (r *Runner) Invocation(run model.NotebookRun) model.Invocation {
	return model.NewInvocation(r.command, run)
}

// Run executes the notebook described by run.
//
// Any previous log file is removed first, then the tool's standard error is
// appended to a fresh one. A non-zero exit status yields a CLIError with
// ExitNotebookFailed whose message names the input notebook.
func (r *Runner) Run(ctx context.Context, run model.NotebookRun) error {
	if err := run.Validate(); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid notebook run", err)
	}

	failed := fmt.Sprintf("%s fail", run.Input)

	// Without a log there is nowhere to put the tool's stderr, so the run
	// fails the same way a failing notebook does.
	logFile, err := PrepareLog(run.LogFile)
	if err != nil {
		return model.WrapCLIError(model.ExitNotebookFailed, failed, err)
	}
	defer func() { _ = logFile.Close() }()

	code, err := r.executor.Execute(ctx, r.Invocation(run), logFile)
	if err != nil {
		return err
	}
	if code != 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.WrapCLIError(model.ExitNotebookFailed, failed, ctxErr)
		}
		return model.NewCLIError(model.ExitNotebookFailed, failed)
	}
	return nil
}

// PrepareLog deletes any existing log at path and opens a new one for
// appending.
func PrepareLog(path string) (*os.File, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove previous log %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}
	return f, nil
}

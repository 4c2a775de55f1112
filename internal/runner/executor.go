package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/kballard/go-shellquote"

	"github.com/shinji-kodama/nbrun/internal/model"
)

// Executor runs an invocation to completion.
//
// Execute streams the tool's standard error to stderr and returns the tool's
// exit status. A non-nil error means the tool could not be run at all (not
// found, daemon unreachable); a tool that ran and failed is reported through
// the exit status with a nil error.
type Executor interface {
	Execute(ctx context.Context, inv model.Invocation, stderr io.Writer) (int, error)
}

// LocalExecutor runs the tool as a child process.
type LocalExecutor struct {
	// Stdout receives the tool's standard output. Nil discards it.
	Stdout io.Writer
}

// NewLocalExecutor creates a LocalExecutor that discards standard output.
func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{}
}

// Execute runs inv.Command with inv.Args in inv.Dir and waits for it to exit.
func (e *LocalExecutor) Execute(ctx context.Context, inv model.Invocation, stderr io.Writer) (int, error) {
	// #nosec G204 -- the command and arguments come from the run template
	cmd := exec.CommandContext(ctx, inv.Command, inv.Args...)
	cmd.Dir = inv.Dir
	// Cancelling ctx (Ctrl-C, SIGTERM) kills the tool.
	cmd.Stdout = e.Stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	// A non-zero exit is a result, not an execution failure.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code, nil
		}
		// Killed by a signal: ExitCode reports -1.
		return 1, nil
	}

	// Cancelled before the tool could start: report it as a failed run so
	// the caller attaches the context error.
	if ctx.Err() != nil {
		return 1, nil
	}

	return 0, model.WrapCLIError(model.ExitGeneralError,
		fmt.Sprintf("failed to start %s", inv.Command), err)
}

// CommandLine renders an invocation as a copy-pasteable shell command.
func CommandLine(inv model.Invocation) string {
	return shellquote.Join(append([]string{inv.Command}, inv.Args...)...)
}

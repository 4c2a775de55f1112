// Package model defines the domain types for the nbrun CLI.
//
// All types in this package are transient: a run is described by a
// template file on disk, resolved into a NotebookRun, turned into an
// Invocation and handed to an executor. Nothing is persisted besides the
// output notebook and the stderr log written by the external tool.
package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultKernel is the Jupyter kernel pinned for every run unless the
// template overrides it. Nightly CI images register a kernel under this name.
const DefaultKernel = "nightly-build"

// DefaultCommand is the notebook-execution tool invoked for each run.
const DefaultCommand = "papermill"

// ExecutorKind selects where the external tool is executed.
type ExecutorKind string

const (
	// ExecutorLocal runs the tool as a child process of nbrun.
	ExecutorLocal ExecutorKind = "local"

	// ExecutorDocker runs the tool inside a throwaway container.
	// The container image must provide the tool and the pinned kernel.
	ExecutorDocker ExecutorKind = "docker"
)

// String returns the string representation of ExecutorKind.
func (k ExecutorKind) String() string {
	return string(k)
}

// IsValid checks whether the ExecutorKind value is one of the
// predefined executors.
func (k ExecutorKind) IsValid() bool {
	switch k {
	case ExecutorLocal, ExecutorDocker:
		return true
	default:
		return false
	}
}

// ParseExecutorKind converts a string to an ExecutorKind.
// Returns an error if the string does not match any known executor.
func ParseExecutorKind(s string) (ExecutorKind, error) {
	kind := ExecutorKind(strings.ToLower(s))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid executor: %q (valid: local, docker)", s)
	}
	return kind, nil
}

// NotebookRun is a fully resolved description of one notebook execution.
// All paths are absolute.
type NotebookRun struct {
	// Input is the source notebook inside the apphub tree.
	Input string `json:"input"`

	// Output is where the executed notebook is written. It always lives in
	// the run directory, next to the template.
	Output string `json:"output"`

	// Params are the pass-through arguments for the tool, already split
	// into words (e.g. ["-p", "epochs", "2"]).
	Params []string `json:"params"`

	// Kernel is the Jupyter kernel name passed with -k.
	Kernel string `json:"kernel"`

	// LogFile receives the tool's standard error in append mode.
	LogFile string `json:"logFile"`

	// WorkDir is the run directory (the directory holding the template).
	WorkDir string `json:"workDir"`
}

// Validate checks the invariants every run must satisfy before the
// external tool is invoked.
func (r NotebookRun) Validate() error {
	if r.Input == "" {
		return fmt.Errorf("input notebook path must not be empty")
	}
	if r.Output == "" {
		return fmt.Errorf("output notebook path must not be empty")
	}
	if r.LogFile == "" {
		return fmt.Errorf("log file path must not be empty")
	}
	if r.Kernel == "" {
		return fmt.Errorf("kernel name must not be empty")
	}
	return nil
}

// BuildArgs returns the tool arguments for this run in the order the tool
// expects them: input, output, pass-through params, then the kernel flag.
func (r NotebookRun) BuildArgs() []string {
	args := make([]string, 0, len(r.Params)+4)
	args = append(args, r.Input, r.Output)
	args = append(args, r.Params...)
	args = append(args, "-k", r.Kernel)
	return args
}

// Invocation is the concrete command line handed to an executor.
type Invocation struct {
	// Command is the executable name or path (e.g. "papermill").
	Command string

	// Args are the arguments following the command.
	Args []string

	// Dir is the working directory for the command.
	Dir string

	// Mounts lists the host directories the command reads or writes.
	// Executors that isolate the filesystem must expose them.
	Mounts []string
}

// NewInvocation builds the Invocation for a run using the given command.
func NewInvocation(command string, run NotebookRun) Invocation {
	return Invocation{
		Command: command,
		Args:    run.BuildArgs(),
		Dir:     run.WorkDir,
		Mounts: uniqueDirs(
			run.WorkDir,
			filepath.Dir(run.Input),
			filepath.Dir(run.Output),
			filepath.Dir(run.LogFile),
		),
	}
}

// uniqueDirs drops empty and repeated entries, keeping first-seen order.
func uniqueDirs(dirs ...string) []string {
	seen := make(map[string]bool, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d == "" || d == "." || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// ExitCode defines standard CLI exit codes.
// These codes allow scripts and CI systems to programmatically determine
// the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitTemplateNotFound indicates the run template file was not found.
	ExitTemplateNotFound ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitNotebookFailed indicates the external tool exited non-zero.
	ExitNotebookFailed ExitCode = 4

	// ExitInvalidNotebook indicates the notebook could not be read or
	// failed the pre-flight check.
	ExitInvalidNotebook ExitCode = 5

	// ExitInvalidParams indicates the train_info argument string could
	// not be parsed.
	ExitInvalidParams ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// Package runner executes one notebook through the external
// notebook-execution tool and turns its exit status into an error.
//
// The failure model is deliberately thin: the tool's exit code is the only
// signal, and its standard error, appended to the run's log file, is the
// only diagnostic artifact. There are no retries and no timeout.
//
// Where the tool runs is abstracted behind Executor. LocalExecutor shells
// out with os/exec; the docker package provides a container-backed one.
package runner

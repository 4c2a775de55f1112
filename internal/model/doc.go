// Package model defines the domain types and value objects for the
// nbrun CLI.
//
// This package contains pure data structures with no external dependencies.
// A NotebookRun describes one execution of an apphub example notebook, and
// an Invocation is the concrete command line derived from it.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model

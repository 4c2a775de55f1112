// Package cli implements the cobra-based CLI commands for nbrun.
//
// Each subcommand (run, init, inspect) is defined in its own file within
// this package. This file defines the root command, the global flags and
// the error/exit-code handling shared by all of them.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/nbrun/internal/model"
)

// Global flag variables shared across all subcommands, bound to persistent
// flags on the root command.
var (
	// jsonOutput switches command results and errors to JSON.
	jsonOutput bool

	// verbose enables [verbose] trace lines on stderr.
	verbose bool
)

// Build information, injected from the main package.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates the root command with every subcommand registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nbrun",
		Short: "Run apphub example notebooks through papermill",
		Long: `nbrun executes a single apphub example notebook with papermill and fails
with a non-zero exit code when the notebook fails.

Each example keeps a run_notebook.yaml template next to its test script.
The executed notebook (<example>_out.ipynb) and papermill's stderr log
(run_notebook.txt) are written next to that template.`,

		// Errors are printed by Execute in text or JSON form.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewInspectCommand())

	return rootCmd
}

// Execute runs the root command and exits with the code carried by a
// model.CLIError, or ExitGeneralError for any other error.
//
// SIGINT and SIGTERM cancel the command's context, which kills a running
// tool or container before nbrun exits.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := executeContext(ctx, rootCmd, os.Stderr)
	stop()

	if code != model.ExitSuccess {
		os.Exit(int(code))
	}
}

// executeContext runs rootCmd with ctx, prints any error to errOut and
// returns the exit code.
func executeContext(ctx context.Context, rootCmd *cobra.Command, errOut io.Writer) model.ExitCode {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return model.ExitSuccess
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(errOut, cliErr.Message, cliErr.Err)
		return cliErr.Code
	}

	printError(errOut, err.Error(), nil)
	return model.ExitGeneralError
}

// printError writes an error in text or JSON form depending on --json.
// Errors always go to stderr; stdout is reserved for results.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		detail := map[string]interface{}{"message": message}
		if underlying != nil {
			detail["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(map[string]interface{}{"error": detail}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(data))
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

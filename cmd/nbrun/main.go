// Package main is the entry point for the nbrun CLI.
//
// nbrun runs an apphub example notebook through papermill and exits
// non-zero when the notebook fails. All functionality lives in the
// internal/cli package, which defines the cobra commands.
//
// Build-time variables (version, commit, date) are injected via ldflags
// during the release process and default to "dev", "none" and "unknown".
package main

import (
	"github.com/shinji-kodama/nbrun/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}

// Package docker runs the notebook-execution tool inside a container.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Labelling run containers so stray ones can be identified
//   - A runner.Executor that creates a container from a CI image,
//     streams its standard error into the run log and reports its exit code
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker

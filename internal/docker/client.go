package docker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/nbrun/internal/model"
)

// defaultPingTimeout bounds the daemon health check. Docker Desktop on
// macOS can take a few seconds to answer.
const defaultPingTimeout = 5 * time.Second

// windowsPipe is the named pipe Docker Desktop listens on.
const windowsPipe = `//./pipe/docker_engine`

// Client wraps the Docker Engine SDK client.
//
// Usage:
//
//	c, err := docker.NewClient()
//	if err != nil { /* handle */ }
//	defer c.Close()
//	if err := c.Ping(ctx); err != nil { /* Docker not running */ }
type Client struct {
	inner *client.Client
}

// NewClient creates a Docker client. DOCKER_HOST wins when set; otherwise
// the platform's default socket locations are probed in order.
//
// Returns a model.CLIError with ExitDockerNotRunning if no socket is found
// or the client cannot be created.
func NewClient() (*Client, error) {
	if host := os.Getenv("DOCKER_HOST"); host != "" {
		return newClientWithHost(host)
	}

	host, err := detectDockerHost()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
	}
	return newClientWithHost(host)
}

func newClientWithHost(host string) (*Client, error) {
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}
	return &Client{inner: c}, nil
}

// socketCandidates lists the Unix socket paths to probe for goos, most
// preferred first. home may be empty.
func socketCandidates(goos, home string) []string {
	paths := []string{"/var/run/docker.sock"}
	if goos == "darwin" && home != "" {
		// Newer Docker Desktop releases may skip the /var/run symlink.
		paths = append(paths, filepath.Join(home, ".docker", "run", "docker.sock"))
	}
	return paths
}

func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "linux", "darwin":
		home, _ := os.UserHomeDir()
		return detectUnixSocket(socketCandidates(runtime.GOOS, home))

	case "windows":
		// os.Stat does not work on named pipes, so probe with a dial.
		if err := probeNamedPipe(windowsPipe, time.Second); err != nil {
			return "", fmt.Errorf("Docker named pipe not found at %s: %w", windowsPipe, err)
		}
		return "npipe://" + windowsPipe, nil

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// detectUnixSocket returns the host URI for the first path that exists.
// Existence does not prove the daemon is listening; Ping checks that.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("Docker socket not found at any of: %v (is Docker running?)", paths)
}

// Ping verifies that the Docker daemon is reachable within
// defaultPingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker daemon is not responding (is Docker running?)",
			err,
		)
	}
	return nil
}

// Close releases the client's resources. It is safe to call more than once.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// Inner returns the underlying Docker SDK client.
func (c *Client) Inner() *client.Client {
	return c.inner
}

package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/shinji-kodama/nbrun/internal/model"
)

// containerAPI is the subset of the Docker SDK client the executor uses.
// *client.Client satisfies it.
type containerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// ContainerExecutor runs invocations in a fresh container per run. The
// image must contain the tool and register the pinned kernel.
type ContainerExecutor struct {
	api   containerAPI
	image string

	// Stdout receives the container's standard output. Nil discards it.
	Stdout io.Writer
}

// NewContainerExecutor creates an executor that runs image through c.
func NewContainerExecutor(c *Client, image string) *ContainerExecutor {
	return &ContainerExecutor{api: c.Inner(), image: image}
}

// buildContainerSpec returns the container and host configuration for inv.
// Every directory in inv.Mounts is bind-mounted at the same path so the
// absolute paths in the argument vector stay valid inside the container.
func buildContainerSpec(image string, inv model.Invocation) (*container.Config, *container.HostConfig) {
	cfg := &container.Config{
		Image:      image,
		Cmd:        append([]string{inv.Command}, inv.Args...),
		WorkingDir: inv.Dir,
		Labels:     BuildLabels(inv),
	}

	mounts := make([]mount.Mount, 0, len(inv.Mounts))
	for _, dir := range inv.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: dir,
			Target: dir,
		})
	}

	return cfg, &container.HostConfig{Mounts: mounts}
}

// Execute creates, starts and waits for the run container. Standard error
// is demultiplexed into stderr as it is produced. The container is removed
// afterwards whatever the outcome.
func (e *ContainerExecutor) Execute(ctx context.Context, inv model.Invocation, stderr io.Writer) (int, error) {
	cfg, hostCfg := buildContainerSpec(e.image, inv)

	created, err := e.api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return 0, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create container from image %q", e.image), err)
	}
	// Removal uses a context that survives cancellation so an interrupted
	// run (Ctrl-C, SIGTERM) still removes the container.
	defer func() {
		_ = e.api.ContainerRemove(context.WithoutCancel(ctx), created.ID, container.RemoveOptions{Force: true})
	}()

	waitCh, errCh := e.api.ContainerWait(ctx, created.ID, container.WaitConditionNextExit)

	if err := e.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return 0, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to start container %s", shortID(created.ID)), err)
	}

	logs, err := e.api.ContainerLogs(ctx, created.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return 0, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to attach to container %s", shortID(created.ID)), err)
	}
	defer func() { _ = logs.Close() }()
	// Unblock StdCopy as soon as the run is cancelled.
	stopClose := context.AfterFunc(ctx, func() { _ = logs.Close() })
	defer stopClose()

	stdout := e.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	if _, err := stdcopy.StdCopy(stdout, stderr, logs); err != nil {
		if ctx.Err() != nil {
			return interruptedStatus, nil
		}
		return 0, fmt.Errorf("failed to read container output: %w", err)
	}

	select {
	case resp := <-waitCh:
		if resp.Error != nil && resp.Error.Message != "" {
			return 0, fmt.Errorf("container %s: %s", shortID(created.ID), resp.Error.Message)
		}
		return int(resp.StatusCode), nil
	case err := <-errCh:
		if ctx.Err() != nil {
			return interruptedStatus, nil
		}
		return 0, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed waiting for container %s", shortID(created.ID)), err)
	}
}

// interruptedStatus is reported when the run is cancelled before the
// container exits.
const interruptedStatus = 1

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

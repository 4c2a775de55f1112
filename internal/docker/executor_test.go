package docker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/nbrun/internal/model"
)

// fakeAPI is an in-memory containerAPI. It replays a multiplexed log stream
// and reports a fixed exit status.
type fakeAPI struct {
	stdout, stderr string
	status         int64
	createErr      error

	// hang makes ContainerLogs return a stream that never ends on its own,
	// like a container that is still running.
	hang bool

	config  *container.Config
	host    *container.HostConfig
	started bool
	removed bool
}

func (f *fakeAPI) ContainerCreate(_ context.Context, cfg *container.Config, host *container.HostConfig,
	_ *network.NetworkingConfig, _ *ocispec.Platform, _ string) (container.CreateResponse, error) {
	if f.createErr != nil {
		return container.CreateResponse{}, f.createErr
	}
	f.config, f.host = cfg, host
	return container.CreateResponse{ID: "0123456789abcdef0123"}, nil
}

func (f *fakeAPI) ContainerStart(context.Context, string, container.StartOptions) error {
	f.started = true
	return nil
}

func (f *fakeAPI) ContainerLogs(context.Context, string, container.LogsOptions) (io.ReadCloser, error) {
	if f.hang {
		r, _ := io.Pipe()
		return r, nil
	}
	var buf bytes.Buffer
	_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(f.stdout))
	_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(f.stderr))
	return io.NopCloser(&buf), nil
}

func (f *fakeAPI) ContainerWait(context.Context, string, container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	waitCh := make(chan container.WaitResponse, 1)
	if !f.hang {
		waitCh <- container.WaitResponse{StatusCode: f.status}
	}
	return waitCh, make(chan error)
}

func (f *fakeAPI) ContainerRemove(context.Context, string, container.RemoveOptions) error {
	f.removed = true
	return nil
}

func testInvocation() model.Invocation {
	return model.NewInvocation(model.DefaultCommand, model.NotebookRun{
		Input:   "/repo/apphub/mnist/mnist.ipynb",
		Output:  "/repo/test/mnist/mnist_out.ipynb",
		Params:  []string{"-p", "epochs", "2"},
		Kernel:  model.DefaultKernel,
		LogFile: "/repo/test/mnist/run_notebook.txt",
		WorkDir: "/repo/test/mnist",
	})
}

func TestBuildContainerSpec(t *testing.T) {
	inv := testInvocation()
	cfg, host := buildContainerSpec("fastestimator/nightly:latest", inv)

	assert.Equal(t, "fastestimator/nightly:latest", cfg.Image)
	assert.Equal(t, []string{
		"papermill",
		"/repo/apphub/mnist/mnist.ipynb",
		"/repo/test/mnist/mnist_out.ipynb",
		"-p", "epochs", "2",
		"-k", "nightly-build",
	}, []string(cfg.Cmd))
	assert.Equal(t, "/repo/test/mnist", cfg.WorkingDir)

	require.Len(t, host.Mounts, 2)
	for _, m := range host.Mounts {
		assert.Equal(t, mount.TypeBind, m.Type)
		assert.Equal(t, m.Source, m.Target, "paths must be identical inside the container")
	}
}

func TestBuildLabels(t *testing.T) {
	labels := BuildLabels(testInvocation())

	assert.Equal(t, ManagedByValue, labels[LabelManagedBy])
	assert.Equal(t, "mnist.ipynb", labels[LabelNotebook])
	assert.Equal(t, "nightly-build", labels[LabelKernel])
	assert.Equal(t, "/repo/test/mnist", labels[LabelRunDir])

	bare := BuildLabels(model.Invocation{Command: "papermill"})
	assert.NotContains(t, bare, LabelNotebook)
	assert.NotContains(t, bare, LabelKernel)
}

func TestContainerExecutor_Execute(t *testing.T) {
	api := &fakeAPI{stdout: "ignored\n", stderr: "Executing: 100%\n", status: 0}
	ex := &ContainerExecutor{api: api, image: "img"}

	var stderr bytes.Buffer
	code, err := ex.Execute(context.Background(), testInvocation(), &stderr)
	require.NoError(t, err)

	assert.Equal(t, 0, code)
	assert.Equal(t, "Executing: 100%\n", stderr.String())
	assert.True(t, api.started)
	assert.True(t, api.removed, "container must be removed after the run")
	assert.Equal(t, ManagedByValue, api.config.Labels[LabelManagedBy])
}

func TestContainerExecutor_NonZeroExit(t *testing.T) {
	api := &fakeAPI{stderr: "PapermillExecutionError\n", status: 1}
	ex := &ContainerExecutor{api: api, image: "img"}

	var stderr bytes.Buffer
	code, err := ex.Execute(context.Background(), testInvocation(), &stderr)
	require.NoError(t, err, "a failing notebook is reported through the exit code")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "PapermillExecutionError")
	assert.True(t, api.removed)
}

// TestContainerExecutor_Cancelled checks that cancelling a run while the
// container is still running returns promptly and removes the container.
func TestContainerExecutor_Cancelled(t *testing.T) {
	api := &fakeAPI{hang: true}
	ex := &ContainerExecutor{api: api, image: "img"}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	done := make(chan struct{})
	var code int
	var err error
	go func() {
		code, err = ex.Execute(ctx, testInvocation(), io.Discard)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return after cancellation")
	}

	require.NoError(t, err)
	assert.NotEqual(t, 0, code)
	assert.True(t, api.started)
	assert.True(t, api.removed, "container must be removed after an interrupted run")
}

func TestContainerExecutor_CreateError(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("no such image")}
	ex := &ContainerExecutor{api: api, image: "missing"}

	_, err := ex.Execute(context.Background(), testInvocation(), io.Discard)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
	assert.False(t, api.removed, "nothing to remove when create failed")
}

func TestSocketCandidates(t *testing.T) {
	assert.Equal(t, []string{"/var/run/docker.sock"}, socketCandidates("linux", "/home/u"))
	assert.Equal(t, []string{"/var/run/docker.sock", "/Users/u/.docker/run/docker.sock"},
		socketCandidates("darwin", "/Users/u"))
	assert.Equal(t, []string{"/var/run/docker.sock"}, socketCandidates("darwin", ""))
}

func TestDetectUnixSocket(t *testing.T) {
	dir := t.TempDir()

	_, err := detectUnixSocket([]string{dir + "/missing.sock"})
	assert.Error(t, err)

	host, err := detectUnixSocket([]string{dir + "/missing.sock", dir})
	require.NoError(t, err)
	assert.Equal(t, "unix://"+dir, host)
}

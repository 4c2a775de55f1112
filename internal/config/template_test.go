package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/nbrun/internal/model"
)

// writeTemplate writes YAML content to a run template in a fresh temp dir
// and returns the template path.
func writeTemplate(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeTemplate(t, `
example_name: mnist
source_dir: image_classification/mnist
train_info: "-p epochs 2 -p batch_size 2"
`)

	tmpl, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mnist", tmpl.ExampleName)
	assert.Equal(t, "image_classification/mnist", tmpl.SourceDir)
	assert.Equal(t, model.DefaultKernel, tmpl.Kernel)
	assert.Equal(t, DefaultApphubDir, tmpl.ApphubDir)
	assert.Equal(t, DefaultLogFile, tmpl.LogFile)
	assert.Equal(t, model.DefaultCommand, tmpl.Command)
	assert.Equal(t, model.ExecutorLocal, tmpl.ExecutorKind())
	assert.False(t, tmpl.CheckNotebook)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitTemplateNotFound, cliErr.Code)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("example_name: mnist\nepochs: 2\n"))
	assert.Error(t, err)
}

func TestParse_EmptyTemplateFailsValidation(t *testing.T) {
	tmpl, err := Parse(nil)
	require.NoError(t, err)
	assert.Error(t, tmpl.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		tmpl     Template
		hasError bool
	}{
		{"minimal", Template{ExampleName: "mnist"}, false},
		{"missing name", Template{}, true},
		{"blank name", Template{ExampleName: "  "}, true},
		{"name is a path", Template{ExampleName: "a/b"}, true},
		{"bad executor", Template{ExampleName: "mnist", Executor: "ssh"}, true},
		{"docker without image", Template{ExampleName: "mnist", Executor: "docker"}, true},
		{"docker with image", Template{ExampleName: "mnist", Executor: "docker", Image: "fe/nightly:latest"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := tt.tmpl
			tmpl.ApplyDefaults()
			err := tmpl.Validate()
			if tt.hasError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestResolve_Layout checks the derived paths: the input follows the apphub
// layout, while output and log always land next to the template.
func TestResolve_Layout(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "test", "apphub_scripts", "mnist")

	tmpl := &Template{
		ExampleName: "mnist",
		SourceDir:   "image_classification/mnist",
		TrainInfo:   "-p epochs 2 -p batch_size 2",
	}
	tmpl.ApplyDefaults()

	run, err := tmpl.Resolve(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "apphub", "image_classification", "mnist", "mnist.ipynb"), run.Input)
	assert.Equal(t, filepath.Join(dir, "mnist_out.ipynb"), run.Output)
	assert.Equal(t, filepath.Join(dir, "run_notebook.txt"), run.LogFile)
	assert.Equal(t, dir, run.WorkDir)
	assert.Equal(t, "nightly-build", run.Kernel)
	assert.Equal(t, []string{"-p", "epochs", "2", "-p", "batch_size", "2"}, run.Params)
}

// TestResolve_OutputIgnoresSourceDir verifies the output notebook stays in
// the run directory even when the source lives somewhere unrelated.
func TestResolve_OutputIgnoresSourceDir(t *testing.T) {
	dir := t.TempDir()
	elsewhere := t.TempDir()

	for _, tmpl := range []*Template{
		{ExampleName: "lung_segmentation", SourceDir: "semantic_segmentation/unet"},
		{ExampleName: "lung_segmentation", ApphubDir: elsewhere},
		{ExampleName: "lung_segmentation", ApphubDir: elsewhere, SourceDir: "../../deep/down"},
	} {
		tmpl.ApplyDefaults()
		run, err := tmpl.Resolve(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "lung_segmentation_out.ipynb"), run.Output)
	}
}

func TestResolve_AbsoluteLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "custom.log")
	tmpl := &Template{ExampleName: "mnist", LogFile: logPath}
	tmpl.ApplyDefaults()

	run, err := tmpl.Resolve(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, logPath, run.LogFile)
}

func TestSplitParams(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
		hasError bool
	}{
		{"", nil, false},
		{"-p epochs 2", []string{"-p", "epochs", "2"}, false},
		{`-p name "two words"`, []string{"-p", "name", "two words"}, false},
		{`-r path '/tmp/a b'`, []string{"-r", "path", "/tmp/a b"}, false},
		{`-p name "unterminated`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			params, err := SplitParams(tt.input)
			if tt.hasError {
				var cliErr *model.CLIError
				require.True(t, errors.As(err, &cliErr))
				assert.Equal(t, model.ExitInvalidParams, cliErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.expected), len(params))
			if len(tt.expected) > 0 {
				assert.Equal(t, tt.expected, params)
			}
		})
	}
}

// TestWrite_RoundTrip writes a template with init-style values and loads it
// back, and checks that existing files are protected without --force.
func TestWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	tmpl := &Template{ExampleName: "mnist", SourceDir: "image_classification/mnist", TrainInfo: "-p epochs 2"}
	tmpl.ApplyDefaults()

	require.NoError(t, Write(path, tmpl, false))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, tmpl, loaded)

	assert.Error(t, Write(path, tmpl, false), "existing template must not be overwritten")
	assert.NoError(t, Write(path, tmpl, true))
}

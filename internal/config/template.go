package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/nbrun/internal/model"
)

const (
	// DefaultFileName is the template file looked up when no path is given.
	DefaultFileName = "run_notebook.yaml"

	// DefaultLogFile is the stderr capture file written next to the template.
	DefaultLogFile = "run_notebook.txt"

	// DefaultApphubDir locates the apphub tree relative to the template
	// directory (test/apphub_scripts/<example>/ -> <repo>/apphub).
	DefaultApphubDir = "../../../apphub"

	// OutputSuffix is appended to the example name to form the output notebook.
	OutputSuffix = "_out.ipynb"

	notebookExt = ".ipynb"
)

// Template is the on-disk run template. Only example_name is required;
// everything else has a default.
type Template struct {
	// ExampleName must match the notebook file name without extension.
	ExampleName string `yaml:"example_name"`

	// SourceDir is the example directory relative to the apphub root.
	SourceDir string `yaml:"source_dir"`

	// TrainInfo is the free-form papermill argument string, e.g.
	// "-p epochs 2 -p batch_size 2 -p steps_per_epoch 10 -p validation_steps 5".
	TrainInfo string `yaml:"train_info"`

	Kernel    string `yaml:"kernel,omitempty"`
	ApphubDir string `yaml:"apphub_dir,omitempty"`
	LogFile   string `yaml:"log_file,omitempty"`
	Command   string `yaml:"command,omitempty"`

	// Executor is "local" (default) or "docker".
	Executor string `yaml:"executor,omitempty"`

	// Image is the container image used by the docker executor.
	Image string `yaml:"image,omitempty"`

	// CheckNotebook enables the pre-flight parameters-cell check.
	CheckNotebook bool `yaml:"check_notebook,omitempty"`
}

// Load reads a template file and applies defaults.
//
// Returns a CLIError with ExitTemplateNotFound if the file does not exist.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.WrapCLIError(
				model.ExitTemplateNotFound,
				fmt.Sprintf("run template not found: %s", path),
				err,
			)
		}
		return nil, fmt.Errorf("failed to read run template: %w", err)
	}

	return Parse(data)
}

// Parse decodes template YAML and applies defaults. Unknown keys are
// rejected so that typos in hand-edited templates surface early.
func Parse(data []byte) (*Template, error) {
	var tmpl Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty file decodes to io.EOF; treat it as an empty template and
	// let Validate report the missing fields.
	if err := dec.Decode(&tmpl); err != nil && !errors.Is(err, io.EOF) {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to parse run template", err)
	}
	tmpl.ApplyDefaults()
	return &tmpl, nil
}

// ApplyDefaults fills in every optional field left empty.
func (t *Template) ApplyDefaults() {
	if t.Kernel == "" {
		t.Kernel = model.DefaultKernel
	}
	if t.ApphubDir == "" {
		t.ApphubDir = DefaultApphubDir
	}
	if t.LogFile == "" {
		t.LogFile = DefaultLogFile
	}
	if t.Command == "" {
		t.Command = model.DefaultCommand
	}
	if t.Executor == "" {
		t.Executor = model.ExecutorLocal.String()
	}
}

// Validate checks that the template can be resolved into a run.
func (t *Template) Validate() error {
	name := strings.TrimSpace(t.ExampleName)
	if name == "" {
		return model.NewCLIError(model.ExitGeneralError, "example_name must be set in the run template")
	}
	if strings.ContainsAny(name, `/\`) {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("example_name %q must be a file name, not a path", name))
	}

	kind, err := model.ParseExecutorKind(t.Executor)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid run template", err)
	}
	if kind == model.ExecutorDocker && t.Image == "" {
		return model.NewCLIError(model.ExitGeneralError, "image must be set when executor is docker")
	}
	return nil
}

// ExecutorKind returns the parsed executor. Call Validate first.
func (t *Template) ExecutorKind() model.ExecutorKind {
	kind, err := model.ParseExecutorKind(t.Executor)
	if err != nil {
		return model.ExecutorLocal
	}
	return kind
}

// SplitParams splits the train_info string into shell words, honouring
// quotes so values with spaces survive ("-p name 'two words'").
func SplitParams(trainInfo string) ([]string, error) {
	params, err := shellquote.Split(trainInfo)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidParams,
			fmt.Sprintf("cannot parse train_info %q", trainInfo), err)
	}
	return params, nil
}

// Resolve turns the template into an absolute NotebookRun, treating dir as
// the directory that holds the template. The output notebook and the log
// file are always placed in dir, wherever the source notebook lives.
func (t *Template) Resolve(dir string) (model.NotebookRun, error) {
	if err := t.Validate(); err != nil {
		return model.NotebookRun{}, err
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return model.NotebookRun{}, fmt.Errorf("failed to resolve run directory %q: %w", dir, err)
	}

	params, err := SplitParams(t.TrainInfo)
	if err != nil {
		return model.NotebookRun{}, err
	}

	name := strings.TrimSpace(t.ExampleName)
	apphub := resolveFrom(absDir, t.ApphubDir)
	sourceDir := filepath.Join(apphub, t.SourceDir)

	return model.NotebookRun{
		Input:   filepath.Join(sourceDir, name+notebookExt),
		Output:  filepath.Join(absDir, name+OutputSuffix),
		Params:  params,
		Kernel:  t.Kernel,
		LogFile: resolveFrom(absDir, t.LogFile),
		WorkDir: absDir,
	}, nil
}

// resolveFrom joins p onto base unless p is already absolute.
func resolveFrom(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// Write serialises a template to path. It refuses to overwrite an existing
// file unless force is set.
func Write(path string, t *Template, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return model.NewCLIError(model.ExitGeneralError,
				fmt.Sprintf("run template already exists: %s (use --force to overwrite)", path))
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# nbrun run template. Fill in the blanks, then run `nbrun run` in this directory.\n")
	buf.WriteString("# train_info is passed to papermill as-is; -p NAME VALUE overrides a variable\n")
	buf.WriteString("# in the notebook cell tagged \"parameters\" (there must be exactly one).\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("failed to encode run template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode run template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create template directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write run template: %w", err)
	}
	return nil
}

package docker

import (
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/nbrun/internal/model"
)

// Label keys set on every run container. They let `docker ps --filter
// label=nbrun.managed-by=nbrun` find containers left behind by an
// interrupted run.
const (
	// LabelPrefix namespaces nbrun labels.
	LabelPrefix = "nbrun."

	// LabelManagedBy marks containers created by nbrun.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelNotebook is the input notebook's file name.
	LabelNotebook = LabelPrefix + "notebook"

	// LabelKernel is the kernel pinned with -k.
	LabelKernel = LabelPrefix + "kernel"

	// LabelRunDir is the host run directory.
	LabelRunDir = LabelPrefix + "run-dir"
)

// ManagedByValue is the value of LabelManagedBy.
const ManagedByValue = "nbrun"

// BuildLabels derives the container labels for an invocation. The notebook
// and kernel are read from the argument vector produced by
// model.NotebookRun.BuildArgs.
func BuildLabels(inv model.Invocation) map[string]string {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelRunDir:    inv.Dir,
	}
	if len(inv.Args) > 0 && strings.HasSuffix(inv.Args[0], ".ipynb") {
		labels[LabelNotebook] = filepath.Base(inv.Args[0])
	}
	if n := len(inv.Args); n >= 2 && inv.Args[n-2] == "-k" {
		labels[LabelKernel] = inv.Args[n-1]
	}
	return labels
}

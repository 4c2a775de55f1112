// Package config loads and resolves nbrun run templates.
//
// A run template is a small YAML file (run_notebook.yaml) placed in an
// example's script directory. It names the example notebook, where it lives
// under the apphub tree, and the papermill arguments to inject. Resolving a
// template turns it into an absolute model.NotebookRun whose output notebook
// and log file always sit next to the template.
package config

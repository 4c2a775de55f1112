// Package notebook reads Jupyter notebooks far enough to check how papermill
// will inject parameters into them.
//
// Notebooks are JSON, but hand-edited ones occasionally carry trailing
// commas, so files are passed through github.com/tidwall/jsonc before being
// decoded with encoding/json. Only cell types and tags are decoded; sources
// and outputs are ignored.
package notebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/nbrun/internal/model"
)

// ParametersTag is the cell tag papermill looks for when injecting parameters.
const ParametersTag = "parameters"

// Cell holds the parts of a notebook cell relevant to parameter injection.
type Cell struct {
	CellType string       `json:"cell_type"`
	Metadata CellMetadata `json:"metadata"`
}

// CellMetadata is the "metadata" object of a cell.
type CellMetadata struct {
	Tags []string `json:"tags,omitempty"`
}

// HasTag reports whether the cell carries the given tag.
func (c Cell) HasTag(tag string) bool {
	return slices.Contains(c.Metadata.Tags, tag)
}

// Notebook is a decoded .ipynb file.
type Notebook struct {
	// Path is the file the notebook was loaded from.
	Path string `json:"-"`

	Cells         []Cell `json:"cells"`
	NBFormat      int    `json:"nbformat"`
	NBFormatMinor int    `json:"nbformat_minor"`
}

// Load reads and decodes the notebook at path.
//
// Returns a CLIError with ExitInvalidNotebook if the file is missing or is
// not a notebook.
func Load(path string) (*Notebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.WrapCLIError(model.ExitInvalidNotebook,
				fmt.Sprintf("notebook not found: %s", path), err)
		}
		return nil, fmt.Errorf("failed to read notebook %s: %w", path, err)
	}

	nb, err := Parse(data)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidNotebook,
			fmt.Sprintf("failed to parse notebook %s", path), err)
	}
	nb.Path = path
	return nb, nil
}

// Parse decodes notebook JSON.
func Parse(data []byte) (*Notebook, error) {
	var nb Notebook
	if err := json.Unmarshal(jsonc.ToJSON(data), &nb); err != nil {
		return nil, err
	}
	if nb.NBFormat == 0 {
		return nil, fmt.Errorf("missing nbformat version")
	}
	return &nb, nil
}

// ParametersCells returns the indexes of cells tagged "parameters". The
// cell type is not considered: papermill injects after the first tagged
// cell whatever its type.
func (nb *Notebook) ParametersCells() []int {
	var idx []int
	for i, c := range nb.Cells {
		if c.HasTag(ParametersTag) {
			idx = append(idx, i)
		}
	}
	return idx
}

package notebook

import (
	"fmt"
	"strings"

	"github.com/shinji-kodama/nbrun/internal/model"
)

// parameterFlags are the papermill flags that take a NAME VALUE pair.
var parameterFlags = map[string]bool{
	"-p":               true,
	"--parameters":     true,
	"-r":               true,
	"--parameters_raw": true,
}

// ParameterNames extracts the names of parameters set through -p/-r style
// flags from a split argument list. Other flags are passed through to
// papermill untouched and ignored here.
func ParameterNames(params []string) ([]string, error) {
	var names []string
	for i := 0; i < len(params); i++ {
		if !parameterFlags[params[i]] {
			continue
		}
		if i+2 >= len(params) {
			return nil, model.NewCLIError(model.ExitInvalidParams,
				fmt.Sprintf("%s expects NAME VALUE, got %q", params[i], strings.Join(params[i+1:], " ")))
		}
		names = append(names, params[i+1])
		i += 2
	}
	return names, nil
}

// Check verifies that papermill can inject params into nb: when any
// parameter is set, the notebook must have exactly one parameters cell.
func Check(nb *Notebook, params []string) error {
	names, err := ParameterNames(params)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}

	switch cells := nb.ParametersCells(); len(cells) {
	case 1:
		return nil
	case 0:
		return model.NewCLIError(model.ExitInvalidNotebook,
			fmt.Sprintf("%s has no cell tagged %q but parameters %s were given",
				nb.Path, ParametersTag, strings.Join(names, ", ")))
	default:
		return model.NewCLIError(model.ExitInvalidNotebook,
			fmt.Sprintf("%s has %d cells tagged %q (cells %v); exactly one is required",
				nb.Path, len(cells), ParametersTag, cells))
	}
}

// Where: internal/command/compile.go
// What: CLI adapter for the compile workflow and KRM mode.
package command

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kubed-io/fx/internal/infra/servicedoc"
	"github.com/kubed-io/fx/internal/usecase/compile"
)

func runCompile(_ context.Context, cli CLI, deps Dependencies) int {
	args := cli.Compile
	opts := compile.Options{Draft: args.Draft}

	if args.KRM {
		input, err := io.ReadAll(deps.In)
		if err != nil {
			return exitWithError(deps.ErrOut, fmt.Errorf("read resource list: %w", err))
		}
		output, err := compile.ProcessResourceList(input, opts)
		if output != nil {
			if writeErr := writeOutput(deps.Out, "", output); writeErr != nil {
				return exitWithError(deps.ErrOut, writeErr)
			}
		}
		if err != nil {
			return exitWithError(deps.ErrOut, err)
		}
		return 0
	}

	doc, name, err := readDocument(args.Path, deps.In)
	if err != nil {
		return exitWithError(deps.ErrOut, err)
	}
	result, err := compile.Compile(doc, opts)
	if err != nil {
		return exitWithError(deps.ErrOut, fmt.Errorf("%s: %w", name, err))
	}
	if err := writeOutput(deps.Out, args.Output, result.YAML); err != nil {
		return exitWithError(deps.ErrOut, err)
	}
	return 0
}

// readDocument returns the document bytes and a display name.
func readDocument(path string, in io.Reader) ([]byte, string, error) {
	if strings.TrimSpace(path) == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}
		return data, "stdin", nil
	}
	docPath, err := servicedoc.Locate(path)
	if err != nil {
		return nil, "", err
	}
	_, data, err := servicedoc.Load(docPath)
	if err != nil {
		return nil, "", err
	}
	return data, docPath, nil
}

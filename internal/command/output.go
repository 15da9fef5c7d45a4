// Where: internal/command/output.go
// What: Output helpers for command adapters.
// Why: Centralize UserInterface construction and raw document output.
package command

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kubed-io/fx/internal/infra/ui"
)

func consoleUI(out io.Writer, emoji bool) ui.UserInterface {
	return ui.NewConsoleUI(out, emoji)
}

// writeOutput writes data to path, or to out when path is empty.
func writeOutput(out io.Writer, path string, data []byte) error {
	path = strings.TrimSpace(path)
	if path == "" {
		_, err := out.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

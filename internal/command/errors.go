// Where: internal/command/errors.go
// What: Shared CLI error output.
package command

import (
	"errors"
	"io"

	"github.com/kubed-io/fx/internal/infra/ui"
)

var errUnknownCommand = errors.New("unknown command")

// exitWithError prints an error message to the output writer and returns
// exit code 1 for CLI error handling.
func exitWithError(out io.Writer, err error) int {
	ui.NewWithEmoji(out, false).Error(err.Error())
	return 1
}

// Where: cmd/fx/main.go
// What: CLI entrypoint.
// Why: Execute fx commands with configured dependencies.
package main

import (
	"os"

	"github.com/kubed-io/fx/internal/command"
)

func main() {
	os.Exit(command.Run(os.Args[1:], buildDependencies()))
}

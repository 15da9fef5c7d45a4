// Where: internal/infra/packager/errors.go
// What: Packager error types.
package packager

import (
	"fmt"
	"strings"
)

// EmptyPackageError is returned when nothing would be archived, including
// when the source directory does not exist.
type EmptyPackageError struct {
	SourceDir string
	Patterns  []string
	Err       error
}

func (e *EmptyPackageError) Error() string {
	msg := fmt.Sprintf("no files to package in %s", e.SourceDir)
	if len(e.Patterns) > 0 {
		msg += fmt.Sprintf(" (include: %s)", strings.Join(e.Patterns, ", "))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EmptyPackageError) Unwrap() error {
	return e.Err
}

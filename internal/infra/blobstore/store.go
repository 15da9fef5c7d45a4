// Where: internal/infra/blobstore/store.go
// What: Blob store contract and error classification.
// Why: The publisher retries transient failures and stops on permanent ones.
package blobstore

import (
	"context"
	"errors"
)

// Store uploads an archive and returns its public location.
type Store interface {
	Upload(ctx context.Context, bucket, key string, body []byte) (string, error)
}

// PermanentError marks failures that retrying cannot fix, such as a
// missing bucket or denied access.
type PermanentError struct {
	Code string
	Err  error
}

func (e *PermanentError) Error() string {
	if e.Code == "" {
		return e.Err.Error()
	}
	return e.Code + ": " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether err carries a PermanentError.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

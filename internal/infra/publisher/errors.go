// Where: internal/infra/publisher/errors.go
// What: Upload failure reported after the retry loop ends.
package publisher

import "fmt"

// UploadError is terminal for the caller. Transient is true when the loop
// gave up on retryable failures rather than a permanent store error.
type UploadError struct {
	Bucket    string
	Key       string
	Attempts  int
	Transient bool
	Err       error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s/%s failed after %d attempt(s): %v", e.Bucket, e.Key, e.Attempts, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Where: internal/infra/publisher/publisher.go
// What: Checksums an archive and uploads it with retry and backoff.
// Why: A publish must either confirm the upload or fail without side effects.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/kubed-io/fx/internal/domain/service"
	"github.com/kubed-io/fx/internal/infra/blobstore"
	digest "github.com/opencontainers/go-digest"
)

const (
	DefaultMaxAttempts     = 5
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
)

// RetryPolicy bounds the upload loop. Zero values take the defaults.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Jitter is the randomization factor applied to each interval.
	Jitter float64
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultInitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = DefaultMaxInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	return p
}

// Result describes a confirmed upload.
type Result struct {
	Bucket   string
	Key      string
	URL      string
	Checksum service.Checksum
	Attempts int
}

type Publisher struct {
	store  blobstore.Store
	policy RetryPolicy
	logger *slog.Logger
}

func New(store blobstore.Store, policy RetryPolicy, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{store: store, policy: policy.withDefaults(), logger: logger}
}

// Checksum returns the sha256 digest of data.
func Checksum(data []byte) service.Checksum {
	return service.Checksum{
		Type: service.ChecksumSHA256,
		Sum:  digest.SHA256.FromBytes(data).Encoded(),
	}
}

// Publish uploads archive to bucket/key. The checksum is computed before
// the first attempt; permanent store errors end the loop immediately.
func (p *Publisher) Publish(ctx context.Context, archive []byte, bucket, key string) (Result, error) {
	if p.store == nil {
		return Result{}, fmt.Errorf("blob store is not configured")
	}
	if len(archive) == 0 {
		return Result{}, fmt.Errorf("archive is empty")
	}

	sum := Checksum(archive)
	attempts := 0
	operation := func() (string, error) {
		attempts++
		url, err := p.store.Upload(ctx, bucket, key, archive)
		if err != nil {
			if blobstore.IsPermanent(err) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		return url, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.policy.InitialInterval
	expo.MaxInterval = p.policy.MaxInterval
	expo.RandomizationFactor = p.policy.Jitter

	url, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(p.policy.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			p.logger.Warn("upload failed; retrying",
				"key", key,
				"attempt", attempts,
				"wait", wait,
				"error", err,
			)
		}),
	)
	if err != nil {
		return Result{}, &UploadError{
			Bucket:    bucket,
			Key:       key,
			Attempts:  attempts,
			Transient: !blobstore.IsPermanent(err),
			Err:       err,
		}
	}

	p.logger.Info("archive uploaded",
		"bucket", bucket,
		"key", key,
		"attempt", attempts,
		"checksum", sum.Sum,
	)
	return Result{
		Bucket:   bucket,
		Key:      key,
		URL:      url,
		Checksum: sum,
		Attempts: attempts,
	}, nil
}

// Where: internal/infra/blobstore/s3.go
// What: S3-compatible Store implementation.
// Why: Works with AWS S3, MinIO and the GCS interoperability endpoint.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const archiveContentType = "application/zip"

// PutObjectAPI is the subset of the S3 client used by S3Store.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client     PutObjectAPI
	urls       URLBuilder
	publicRead bool
}

func NewS3Store(client PutObjectAPI, urls URLBuilder, publicRead bool) *S3Store {
	return &S3Store{client: client, urls: urls, publicRead: publicRead}
}

func (s *S3Store) Upload(ctx context.Context, bucket, key string, body []byte) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("s3 client is nil")
	}
	if bucket == "" || key == "" {
		return "", &PermanentError{Err: fmt.Errorf("bucket and key are required")}
	}

	url, err := s.urls.ObjectURL(bucket, key)
	if err != nil {
		return "", &PermanentError{Err: err}
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(archiveContentType),
	}
	if s.publicRead {
		input.ACL = s3types.ObjectCannedACLPublicRead
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", classify(err)
	}
	return url, nil
}

var permanentCodes = map[string]struct{}{
	"NoSuchBucket":          {},
	"AccessDenied":          {},
	"AllAccessDisabled":     {},
	"InvalidAccessKeyId":    {},
	"SignatureDoesNotMatch": {},
	"InvalidBucketName":     {},
	"AccountProblem":        {},
	"InvalidArgument":       {},
	"EntityTooLarge":        {},
}

func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := permanentCodes[apiErr.ErrorCode()]; ok {
			return &PermanentError{Code: apiErr.ErrorCode(), Err: err}
		}
	}
	return err
}

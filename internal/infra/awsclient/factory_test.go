// Where: internal/infra/awsclient/factory_test.go
// What: Tests for AWS configuration loading.
package awsclient

import (
	"context"
	"testing"
)

func TestLoadConfigDefaultsRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	cfg, err := LoadConfig(context.Background(), Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Region != "us-east-1" {
		t.Fatalf("unexpected region: %s", cfg.Region)
	}
}

func TestLoadConfigUsesStaticCredentials(t *testing.T) {
	cfg, err := LoadConfig(context.Background(), Options{
		Region:          "eu-west-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	creds, err := cfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if creds.AccessKeyID != "AKIDEXAMPLE" || cfg.Region != "eu-west-1" {
		t.Fatalf("unexpected config: region=%s key=%s", cfg.Region, creds.AccessKeyID)
	}
}

func TestFactoryBuildsClients(t *testing.T) {
	factory := Factory{Options: Options{
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		PathStyle:       true,
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	}}
	s3Client, err := factory.S3(context.Background())
	if err != nil || s3Client == nil {
		t.Fatalf("s3 client: %v", err)
	}
	opts := s3Client.Options()
	if !opts.UsePathStyle || opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://127.0.0.1:9000" {
		t.Fatalf("unexpected s3 options: path=%v endpoint=%v", opts.UsePathStyle, opts.BaseEndpoint)
	}
	if opts.RetryMaxAttempts != 1 {
		t.Fatalf("sdk retries must be disabled, got %d", opts.RetryMaxAttempts)
	}
	if _, err := factory.DynamoDB(context.Background(), "http://127.0.0.1:8000"); err != nil {
		t.Fatalf("dynamodb client: %v", err)
	}
}

// Where: internal/infra/awsclient/factory.go
// What: AWS client factory for the S3 blob store and the DynamoDB ledger.
// Why: Encapsulate SDK configuration for custom and S3-compatible endpoints.
package awsclient

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kubed-io/fx/internal/meta"
)

// Options selects the region, endpoint and optional static credentials.
// Without static keys the SDK default credential chain is used.
type Options struct {
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// Factory builds SDK clients from Options.
type Factory struct {
	Options Options
}

// S3 returns a client with SDK retries disabled; callers own the retry loop.
func (f Factory) S3(ctx context.Context) (*s3.Client, error) {
	cfg, err := LoadConfig(ctx, f.Options)
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimSpace(f.Options.Endpoint)
	return s3.NewFromConfig(cfg, func(options *s3.Options) {
		if endpoint != "" {
			options.BaseEndpoint = aws.String(endpoint)
		}
		options.UsePathStyle = f.Options.PathStyle
		options.RetryMaxAttempts = 1
	}), nil
}

func (f Factory) DynamoDB(ctx context.Context, endpoint string) (*dynamodb.Client, error) {
	cfg, err := LoadConfig(ctx, f.Options)
	if err != nil {
		return nil, err
	}
	endpoint = strings.TrimSpace(endpoint)
	return dynamodb.NewFromConfig(cfg, func(options *dynamodb.Options) {
		if endpoint != "" {
			options.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// LoadConfig resolves the shared AWS configuration.
func LoadConfig(ctx context.Context, opts Options) (aws.Config, error) {
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = meta.DefaultRegion
	}

	loaders := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")
		loaders = append(loaders, config.WithCredentialsProvider(creds))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}
	return cfg, nil
}

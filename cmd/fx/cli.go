// Where: cmd/fx/cli.go
// What: CLI dependency wiring helpers.
// Why: Centralize construction of AWS-backed collaborators for testability.
package main

import (
	"context"
	"os"

	"github.com/kubed-io/fx/internal/command"
	"github.com/kubed-io/fx/internal/infra/awsclient"
	"github.com/kubed-io/fx/internal/infra/blobstore"
	"github.com/kubed-io/fx/internal/infra/config"
	"github.com/kubed-io/fx/internal/infra/ledger"
)

// buildDependencies constructs the runtime dependencies of the CLI. SDK
// clients are built lazily, only by commands that need them.
func buildDependencies() command.Dependencies {
	return command.Dependencies{
		Out:        os.Stdout,
		ErrOut:     os.Stderr,
		In:         os.Stdin,
		LoadConfig: config.Load,
		NewStore:   newStore,
		NewLedger:  newLedger,
	}
}

func awsFactory(cfg *config.Config) awsclient.Factory {
	return awsclient.Factory{Options: awsclient.Options{
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		PathStyle:       cfg.PathStyle,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	}}
}

func urlBuilder(cfg *config.Config) blobstore.URLBuilder {
	return blobstore.URLBuilder{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		PathStyle: cfg.PathStyle,
		PublicURL: cfg.PublicURL,
	}
}

func newStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	client, err := awsFactory(cfg).S3(ctx)
	if err != nil {
		return nil, err
	}
	return blobstore.NewS3Store(client, urlBuilder(cfg), cfg.PublicRead), nil
}

func newLedger(ctx context.Context, cfg *config.Config) (ledger.Recorder, error) {
	if cfg.Ledger.Table == "" {
		return ledger.Nop{}, nil
	}
	client, err := awsFactory(cfg).DynamoDB(ctx, cfg.Ledger.Endpoint)
	if err != nil {
		return nil, err
	}
	return ledger.NewDynamo(client, cfg.Ledger.Table), nil
}

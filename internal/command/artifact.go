// Where: internal/command/artifact.go
// What: CLI adapters for the pack and publish workflows.
package command

import (
	"context"
	"fmt"

	"github.com/kubed-io/fx/internal/infra/ledger"
	"github.com/kubed-io/fx/internal/usecase/artifact"
)

func runPack(ctx context.Context, cli CLI, deps Dependencies) int {
	rt, err := loadSession(cli, deps)
	if err != nil {
		return exitWithError(deps.ErrOut, err)
	}
	wf := artifact.Workflow{Config: rt.config, UI: rt.ui, Logger: rt.logger, Now: deps.Now}
	if _, err := wf.Pack(ctx, artifact.PackRequest{Path: cli.Pack.Path, Output: cli.Pack.Output}); err != nil {
		return exitWithError(deps.ErrOut, err)
	}
	return 0
}

func runPublish(ctx context.Context, cli CLI, deps Dependencies) int {
	rt, err := loadSession(cli, deps)
	if err != nil {
		return exitWithError(deps.ErrOut, err)
	}
	if deps.NewStore == nil {
		return exitWithError(deps.ErrOut, fmt.Errorf("publish: blob store is not configured"))
	}
	store, err := deps.NewStore(ctx, rt.config)
	if err != nil {
		return exitWithError(deps.ErrOut, fmt.Errorf("publish: %w", err))
	}
	var recorder ledger.Recorder = ledger.Nop{}
	if deps.NewLedger != nil && rt.config.Ledger.Table != "" {
		recorder, err = deps.NewLedger(ctx, rt.config)
		if err != nil {
			return exitWithError(deps.ErrOut, fmt.Errorf("publish: %w", err))
		}
	}

	wf := artifact.Workflow{
		Config: rt.config,
		Store:  store,
		Ledger: recorder,
		UI:     rt.ui,
		Logger: rt.logger,
		Now:    deps.Now,
	}
	_, err = wf.Publish(ctx, artifact.PublishRequest{
		Path:   cli.Publish.Path,
		Bucket: cli.Publish.Bucket,
		Dedupe: cli.Publish.Dedupe,
	})
	if err != nil {
		return exitWithError(deps.ErrOut, err)
	}
	return 0
}

// Where: internal/usecase/artifact/workflow.go
// What: Shared dependencies for the pack and publish workflows.
// Why: Keep store, ledger and clock injectable so tests run offline.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/kubed-io/fx/internal/domain/service"
	"github.com/kubed-io/fx/internal/infra/blobstore"
	"github.com/kubed-io/fx/internal/infra/config"
	"github.com/kubed-io/fx/internal/infra/ledger"
	"github.com/kubed-io/fx/internal/infra/packager"
	"github.com/kubed-io/fx/internal/infra/servicedoc"
	"github.com/kubed-io/fx/internal/infra/ui"
)

var errStoreNotConfigured = errors.New("blob store is not configured")

// Workflow runs pack and publish against one configuration.
type Workflow struct {
	Config *config.Config
	Store  blobstore.Store
	Ledger ledger.Recorder
	UI     ui.UserInterface
	Logger *slog.Logger
	Now    func() time.Time
}

func (w Workflow) config() *config.Config {
	if w.Config == nil {
		return config.Default()
	}
	return w.Config
}

func (w Workflow) ui() ui.UserInterface {
	if w.UI == nil {
		return ui.Discard()
	}
	return w.UI
}

func (w Workflow) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

func (w Workflow) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}

func (w Workflow) ledger() ledger.Recorder {
	if w.Ledger == nil {
		return ledger.Nop{}
	}
	return w.Ledger
}

// document is a located, decoded and validated service document.
type document struct {
	Path    string
	Service service.Service
}

func (d document) Dir() string {
	return filepath.Dir(d.Path)
}

func loadDocument(path string) (document, error) {
	docPath, err := servicedoc.Locate(path)
	if err != nil {
		return document{}, err
	}
	svc, _, err := servicedoc.Load(docPath)
	if err != nil {
		return document{}, err
	}
	if err := svc.Validate(); err != nil {
		return document{}, fmt.Errorf("%s: %w", filepath.Base(docPath), err)
	}
	return document{Path: docPath, Service: svc}, nil
}

// pack archives the document's package under the configured pack timeout.
func (w Workflow) pack(ctx context.Context, doc document) (packager.Manifest, error) {
	ctx, cancel := context.WithTimeout(ctx, w.config().Pack.Timeout)
	defer cancel()

	pkg := doc.Service.Spec.Package
	req := packager.Request{
		SourceDir:    doc.Dir(),
		Include:      pkg.Include,
		BuildCommand: pkg.BuildCmd,
		Exclude: []string{
			filepath.Base(doc.Path),
			filepath.Base(servicedoc.LockPath(doc.Path)),
		},
	}
	if pkg.Source != nil {
		req.Literal = pkg.Source.Literal
	}
	manifest, err := packager.New(w.logger()).Pack(ctx, req)
	if err != nil {
		return packager.Manifest{}, fmt.Errorf("pack %s: %w", doc.Service.PackageName(), err)
	}
	return manifest, nil
}

// Where: internal/usecase/artifact/publish.go
// What: Publish workflow: pack, upload with retry, write back, record.
// Why: The document is only rewritten after a confirmed upload.
package artifact

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kubed-io/fx/internal/domain/service"
	"github.com/kubed-io/fx/internal/infra/blobstore"
	"github.com/kubed-io/fx/internal/infra/config"
	"github.com/kubed-io/fx/internal/infra/ledger"
	"github.com/kubed-io/fx/internal/infra/publisher"
	"github.com/kubed-io/fx/internal/infra/servicedoc"
	"github.com/kubed-io/fx/internal/infra/ui"
)

type PublishRequest struct {
	Path string
	// Bucket overrides the configured bucket.
	Bucket string
	// Dedupe overrides the configured dedupe policy.
	Dedupe string
}

type PublishResult struct {
	Document string
	Bucket   string
	Key      string
	URL      string
	Checksum service.Checksum
	Attempts int
	// Skipped is set when the dedupe policy found the archive already
	// recorded in the document.
	Skipped bool
	// Updated is false when write-back found nothing to change.
	Updated  bool
	LedgerID string
}

// Publish packs the document's package, uploads it and records the
// resulting url and checksum in the document.
func (w Workflow) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	if w.Store == nil {
		return PublishResult{}, errStoreNotConfigured
	}
	cfg := w.config()
	bucket := strings.TrimSpace(req.Bucket)
	if bucket == "" {
		bucket = cfg.Bucket
	}
	dedupe := strings.TrimSpace(req.Dedupe)
	if dedupe == "" {
		dedupe = cfg.Dedupe
	}
	if dedupe != config.DedupeNever && dedupe != config.DedupeChecksum {
		return PublishResult{}, fmt.Errorf("unsupported dedupe policy %q", dedupe)
	}

	doc, err := loadDocument(req.Path)
	if err != nil {
		return PublishResult{}, err
	}
	svc := doc.Service
	var recorded service.Checksum
	var recordedURL string
	if src := svc.Spec.Package.Source; src != nil {
		kind, err := src.Kind()
		if err != nil {
			return PublishResult{}, err
		}
		if kind == service.SourceLiteral {
			return PublishResult{}, service.ConfigErrorf("", "package.source", "literal sources are compiled inline and cannot be published")
		}
		recorded = src.Digest()
		recordedURL = src.URL
	}

	manifest, err := w.pack(ctx, doc)
	if err != nil {
		return PublishResult{}, err
	}
	sum := publisher.Checksum(manifest.Archive)
	result := PublishResult{Document: doc.Path, Bucket: bucket, Checksum: sum}

	if dedupe == config.DedupeChecksum && recordedURL != "" && sum.Equal(recorded) {
		result.URL = recordedURL
		result.Skipped = true
		w.logger().Info("archive unchanged; skipping upload", "file", doc.Path, "checksum", sum.Sum)
		w.ui().Info(fmt.Sprintf("%s already published at %s", svc.PackageName(), recordedURL))
		return result, nil
	}

	keyData := blobstore.NewKeyData(svc.Metadata.Name, svc.Namespace(), svc.PackageName(), sum.Sum, w.now())
	key, err := blobstore.RenderKey(cfg.KeyPrefix, cfg.KeyTemplate, keyData)
	if err != nil {
		return PublishResult{}, err
	}
	result.Key = key

	uploadCtx, cancel := context.WithTimeout(ctx, cfg.Upload.Timeout)
	defer cancel()
	pub := publisher.New(w.Store, publisher.RetryPolicy{
		MaxAttempts:     cfg.Upload.MaxAttempts,
		InitialInterval: cfg.Upload.InitialInterval,
		MaxInterval:     cfg.Upload.MaxInterval,
		Jitter:          0.5,
	}, w.logger())
	published, err := pub.Publish(uploadCtx, manifest.Archive, bucket, key)
	if err != nil {
		return PublishResult{}, err
	}
	result.URL = published.URL
	result.Attempts = published.Attempts

	updated, err := servicedoc.WriteBack(doc.Path, published.URL, published.Checksum, servicedoc.WriteBackOptions{
		LockTimeout: cfg.LockTimeout,
		Logger:      w.logger(),
	})
	if err != nil {
		return result, err
	}
	result.Updated = updated

	entry, err := w.ledger().Record(ctx, ledger.Entry{
		Service:     svc.Metadata.Name,
		Namespace:   svc.Namespace(),
		Package:     svc.PackageName(),
		Bucket:      bucket,
		Key:         key,
		URL:         published.URL,
		Checksum:    sum.Sum,
		Size:        manifest.Size(),
		PublishedAt: w.now(),
	})
	if err != nil {
		w.logger().Warn("failed to record publish", "key", key, "error", err)
		w.ui().Warn(fmt.Sprintf("publish ledger not updated: %v", err))
	} else {
		result.LedgerID = entry.ID
	}

	rows := []ui.KeyValue{
		{Key: "Package", Value: svc.PackageName()},
		{Key: "Files", Value: len(manifest.Files)},
		{Key: "URL", Value: published.URL},
		{Key: "SHA256", Value: sum.Sum},
		{Key: "Attempts", Value: published.Attempts},
		{Key: "Document", Value: filepath.Base(doc.Path)},
	}
	if !updated {
		rows = append(rows, ui.KeyValue{Key: "Write-back", Value: "unchanged"})
	}
	w.ui().Block("🚀", "Published", rows)
	return result, nil
}

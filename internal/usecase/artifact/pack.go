// Where: internal/usecase/artifact/pack.go
// What: Pack workflow: build the archive and write it to disk.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kubed-io/fx/internal/domain/service"
	"github.com/kubed-io/fx/internal/infra/publisher"
	"github.com/kubed-io/fx/internal/infra/ui"
	"github.com/kubed-io/fx/internal/meta"
)

type PackRequest struct {
	// Path is a service document or a directory containing one.
	Path string
	// Output is the archive path. Empty writes to the OS temp dir.
	Output string
}

type PackResult struct {
	Document    string
	ArchivePath string
	Files       []string
	Size        int
	Checksum    service.Checksum
}

// Pack builds the package archive of the document at req.Path.
func (w Workflow) Pack(ctx context.Context, req PackRequest) (PackResult, error) {
	doc, err := loadDocument(req.Path)
	if err != nil {
		return PackResult{}, err
	}
	manifest, err := w.pack(ctx, doc)
	if err != nil {
		return PackResult{}, err
	}

	out := strings.TrimSpace(req.Output)
	if out == "" {
		name := fmt.Sprintf("%s-%s.zip", doc.Service.PackageName(), w.now().UTC().Format(meta.ArchiveTimeLayout))
		out = filepath.Join(os.TempDir(), name)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return PackResult{}, fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(out, manifest.Archive, 0o644); err != nil {
		return PackResult{}, fmt.Errorf("write archive: %w", err)
	}

	result := PackResult{
		Document:    doc.Path,
		ArchivePath: out,
		Files:       manifest.Files,
		Size:        manifest.Size(),
		Checksum:    publisher.Checksum(manifest.Archive),
	}
	w.logger().Info("package archived", "file", out, "files", len(result.Files), "checksum", result.Checksum.Sum)

	console := w.ui()
	console.List(result.Files)
	console.Block("📦", "Package", []ui.KeyValue{
		{Key: "Name", Value: doc.Service.PackageName()},
		{Key: "Archive", Value: out},
		{Key: "Files", Value: len(result.Files)},
		{Key: "Size", Value: fmt.Sprintf("%d bytes", result.Size)},
		{Key: "SHA256", Value: result.Checksum.Sum},
	})
	return result, nil
}

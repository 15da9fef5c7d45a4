// Where: internal/infra/packager/archive.go
// What: Deterministic zip writer and the literal source archiver.
package packager

import (
	"bytes"
	"fmt"
	"io/fs"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/kubed-io/fx/internal/meta"
)

// archiveEpoch is stamped on every entry; zip cannot store earlier dates.
var archiveEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

type entry struct {
	name string
	data []byte
	mode fs.FileMode
}

func writeZip(files []entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, file := range files {
		header := &zip.FileHeader{
			Name:     file.name,
			Method:   zip.Deflate,
			Modified: archiveEpoch,
		}
		header.SetMode(file.mode)
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", file.name, err)
		}
		if _, err := w.Write(file.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", file.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// LiteralArchiver zips inline source text as main.py.
type LiteralArchiver struct{}

func (LiteralArchiver) ArchiveLiteral(source string) ([]byte, error) {
	return writeZip([]entry{{name: meta.LiteralFileName, data: []byte(source), mode: 0o644}})
}

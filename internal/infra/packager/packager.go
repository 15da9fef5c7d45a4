// Where: internal/infra/packager/packager.go
// What: Selects source files by glob and builds a reproducible zip archive.
// Why: Identical inputs must produce identical bytes so checksums are stable.
package packager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kubed-io/fx/internal/domain/service"
	"github.com/kubed-io/fx/internal/meta"
	ignore "github.com/sabhiram/go-gitignore"
)

// Request describes one packaging run. Include patterns are slash
// separated and relative to SourceDir.
type Request struct {
	SourceDir    string
	Include      []string
	BuildCommand string
	// Literal, when non-empty, is archived as main.py.
	Literal string
	// Exclude names files that are never packaged, such as the service
	// document itself.
	Exclude []string
}

// Manifest is the canonical file list plus the archive bytes.
type Manifest struct {
	Files   []string
	Archive []byte
}

// Size returns the archive length in bytes.
func (m Manifest) Size() int {
	return len(m.Archive)
}

type Packager struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Packager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Packager{logger: logger}
}

// Pack expands the request against the filesystem and archives the result.
func (p *Packager) Pack(ctx context.Context, req Request) (Manifest, error) {
	if err := ctx.Err(); err != nil {
		return Manifest{}, err
	}
	for _, pattern := range req.Include {
		if err := checkPattern(pattern); err != nil {
			return Manifest{}, err
		}
	}

	dir := strings.TrimSpace(req.SourceDir)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("not a directory")
		}
		return Manifest{}, &EmptyPackageError{SourceDir: dir, Patterns: req.Include, Err: err}
	}

	fsys := os.DirFS(dir)
	ignored, err := loadIgnore(dir)
	if err != nil {
		return Manifest{}, err
	}

	excluded := make(map[string]struct{}, len(req.Exclude))
	for _, name := range req.Exclude {
		excluded[path.Clean(filepath.ToSlash(name))] = struct{}{}
	}

	selected := map[string]struct{}{}
	for _, pattern := range req.Include {
		if err := ctx.Err(); err != nil {
			return Manifest{}, err
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return Manifest{}, fmt.Errorf("expand %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			p.logger.Debug("include pattern matched nothing", "pattern", pattern)
		}
		for _, match := range matches {
			if _, skip := excluded[match]; skip {
				p.logger.Warn("include pattern matches an excluded file; not packaged", "pattern", pattern, "file", match)
				continue
			}
			if match == meta.IgnoreFileName || (ignored != nil && ignored.MatchesPath(match)) {
				p.logger.Debug("file ignored", "file", match)
				continue
			}
			if !regularFile(fsys, match) {
				continue
			}
			selected[match] = struct{}{}
		}
	}

	if build := BuildCommandFile(req.BuildCommand); build != "" {
		switch {
		case !fs.ValidPath(build):
			p.logger.Warn("build command is outside the source directory; not packaged", "file", build)
		case isExcluded(excluded, build):
			p.logger.Warn("build command is an excluded file; not packaged", "file", build)
		case regularFile(fsys, build):
			if _, ok := selected[build]; !ok {
				p.logger.Debug("force-including build command", "file", build)
			}
			selected[build] = struct{}{}
		default:
			p.logger.Warn("build command file not found; not packaged", "file", build)
		}
	}

	files := make([]entry, 0, len(selected)+1)
	if req.Literal != "" {
		delete(selected, meta.LiteralFileName)
		files = append(files, entry{name: meta.LiteralFileName, data: []byte(req.Literal), mode: 0o644})
	}
	for name := range selected {
		if err := ctx.Err(); err != nil {
			return Manifest{}, err
		}
		data, mode, err := readFile(fsys, name)
		if err != nil {
			return Manifest{}, fmt.Errorf("read %s: %w", name, err)
		}
		files = append(files, entry{name: name, data: data, mode: mode})
	}

	if len(files) == 0 {
		return Manifest{}, &EmptyPackageError{SourceDir: dir, Patterns: req.Include}
	}

	slices.SortFunc(files, func(a, b entry) int { return strings.Compare(a.name, b.name) })
	archive, err := writeZip(files)
	if err != nil {
		return Manifest{}, err
	}

	names := make([]string, len(files))
	for i, file := range files {
		names[i] = file.name
	}
	p.logger.Debug("package built", "files", len(names), "bytes", len(archive))
	return Manifest{Files: names, Archive: archive}, nil
}

// BuildCommandFile returns the file a buildcmd refers to: its first word
// with any leading ./ removed.
func BuildCommandFile(buildcmd string) string {
	fields := strings.Fields(buildcmd)
	if len(fields) == 0 {
		return ""
	}
	name := fields[0]
	for strings.HasPrefix(name, "./") {
		name = strings.TrimPrefix(name, "./")
	}
	return path.Clean(filepath.ToSlash(name))
}

func isExcluded(excluded map[string]struct{}, name string) bool {
	_, ok := excluded[name]
	return ok
}

func checkPattern(pattern string) error {
	clean := strings.TrimSpace(pattern)
	switch {
	case clean == "":
		return service.ConfigErrorf("", "spec.package.include", "empty pattern")
	case path.IsAbs(clean) || filepath.IsAbs(clean):
		return service.ConfigErrorf("", "spec.package.include", "%q must be relative to the service directory", pattern)
	case slices.Contains(strings.Split(clean, "/"), ".."):
		return service.ConfigErrorf("", "spec.package.include", "%q escapes the service directory", pattern)
	case !doublestar.ValidatePattern(clean):
		return service.ConfigErrorf("", "spec.package.include", "%q is not a valid glob", pattern)
	}
	return nil
}

func loadIgnore(dir string) (*ignore.GitIgnore, error) {
	file := filepath.Join(dir, meta.IgnoreFileName)
	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	matcher, err := ignore.CompileIgnoreFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", meta.IgnoreFileName, err)
	}
	return matcher, nil
}

func regularFile(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && info.Mode().IsRegular()
}

func readFile(fsys fs.FS, name string) ([]byte, fs.FileMode, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, 0, err
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, 0, err
	}
	mode := fs.FileMode(0o644)
	if info.Mode().Perm()&0o111 != 0 {
		mode = 0o755
	}
	return data, mode, nil
}

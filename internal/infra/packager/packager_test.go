// Where: internal/infra/packager/packager_test.go
// What: Tests for file selection and archive reproducibility.
// Why: Checksum idempotency depends on byte-identical archives.
package packager

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
	"github.com/kubed-io/fx/internal/domain/service"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		mode := os.FileMode(0o644)
		if filepath.Ext(name) == ".sh" {
			mode = 0o755
		}
		if err := os.WriteFile(full, []byte(content), mode); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	out := map[string]string{}
	for _, file := range zr.File {
		rc, err := file.Open()
		if err != nil {
			t.Fatalf("open %s: %v", file.Name, err)
		}
		body, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", file.Name, err)
		}
		out[file.Name] = string(body)
	}
	return out
}

func TestPackForceIncludesBuildCommand(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.py":          "def handler(): pass",
		"build.sh":         "#!/bin/sh\npip install -r requirements.txt",
		"requirements.txt": "requests",
	})

	manifest, err := New(nil).Pack(context.Background(), Request{
		SourceDir:    dir,
		Include:      []string{"*.py"},
		BuildCommand: "./build.sh --target .",
	})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if diff := cmp.Diff([]string{"build.sh", "main.py"}, manifest.Files); diff != "" {
		t.Fatalf("unexpected files (-want +got):\n%s", diff)
	}

	zr, err := zip.NewReader(bytes.NewReader(manifest.Archive), int64(manifest.Size()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	for _, file := range zr.File {
		want := os.FileMode(0o644)
		if file.Name == "build.sh" {
			want = 0o755
		}
		if got := file.Mode().Perm(); got != want {
			t.Fatalf("%s: mode %v, want %v", file.Name, got, want)
		}
	}
}

func TestPackBuildCommandOnly(t *testing.T) {
	dir := writeTree(t, map[string]string{"build.sh": "#!/bin/sh"})
	manifest, err := New(nil).Pack(context.Background(), Request{
		SourceDir:    dir,
		BuildCommand: "build.sh",
	})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if diff := cmp.Diff([]string{"build.sh"}, manifest.Files); diff != "" {
		t.Fatalf("unexpected files:\n%s", diff)
	}
}

func TestPackEmptyMatchSet(t *testing.T) {
	dir := writeTree(t, map[string]string{"README.md": "docs"})

	_, err := New(nil).Pack(context.Background(), Request{SourceDir: dir, Include: []string{"*.py"}})
	var emptyErr *EmptyPackageError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyPackageError, got %v", err)
	}
	if emptyErr.SourceDir != dir {
		t.Fatalf("unexpected source dir: %s", emptyErr.SourceDir)
	}
}

func TestPackMissingSourceDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := New(nil).Pack(context.Background(), Request{SourceDir: missing, Include: []string{"*.py"}})
	var emptyErr *EmptyPackageError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyPackageError, got %v", err)
	}
}

func TestPackGlobSemantics(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.py":            "a",
		"lib/util.py":        "b",
		"lib/deep/helper.py": "c",
		"static/index.html":  "d",
	})

	tests := []struct {
		name    string
		include []string
		want    []string
	}{
		{name: "star stays at top level", include: []string{"*.py"}, want: []string{"main.py"}},
		{name: "double star recurses", include: []string{"**/*.py"}, want: []string{"lib/deep/helper.py", "lib/util.py", "main.py"}},
		{name: "directory glob", include: []string{"lib/*.py"}, want: []string{"lib/util.py"}},
		{name: "union collapses duplicates", include: []string{"*.py", "main.py", "static/**"}, want: []string{"main.py", "static/index.html"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manifest, err := New(nil).Pack(context.Background(), Request{SourceDir: dir, Include: tt.include})
			if err != nil {
				t.Fatalf("pack: %v", err)
			}
			if diff := cmp.Diff(tt.want, manifest.Files); diff != "" {
				t.Fatalf("unexpected files (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPackHonorsIgnoreFileExceptBuildCommand(t *testing.T) {
	dir := writeTree(t, map[string]string{
		".fxignore":        "*_test.py\nscripts/\n",
		"main.py":          "a",
		"main_test.py":     "b",
		"scripts/build.sh": "#!/bin/sh",
	})

	manifest, err := New(nil).Pack(context.Background(), Request{
		SourceDir:    dir,
		Include:      []string{"**"},
		BuildCommand: "scripts/build.sh",
	})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if diff := cmp.Diff([]string{"main.py", "scripts/build.sh"}, manifest.Files); diff != "" {
		t.Fatalf("unexpected files (-want +got):\n%s", diff)
	}
}

func TestPackSkipsExcludedFiles(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"service.yaml": "kind: Service",
		"main.py":      "a",
	})

	manifest, err := New(nil).Pack(context.Background(), Request{
		SourceDir: dir,
		Include:   []string{"**"},
		Exclude:   []string{"service.yaml"},
	})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if diff := cmp.Diff([]string{"main.py"}, manifest.Files); diff != "" {
		t.Fatalf("unexpected files (-want +got):\n%s", diff)
	}
}

func TestPackIsReproducible(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.py":     "def handler(): pass",
		"lib/util.py": "VALUE = 1",
	})
	req := Request{SourceDir: dir, Include: []string{"**/*.py"}}

	first, err := New(nil).Pack(context.Background(), req)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	later := time.Now().Add(48 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "main.py"), later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	second, err := New(nil).Pack(context.Background(), req)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(first.Archive, second.Archive) {
		t.Fatalf("archives differ across runs")
	}
}

func TestPackLiteralShadowsDiskMain(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.py":  "from disk",
		"util.py":  "helper",
		"build.sh": "#!/bin/sh",
	})

	manifest, err := New(nil).Pack(context.Background(), Request{
		SourceDir: dir,
		Include:   []string{"*.py"},
		Literal:   "inline",
	})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	contents := readArchive(t, manifest.Archive)
	if contents["main.py"] != "inline" {
		t.Fatalf("literal must shadow disk main.py: %q", contents["main.py"])
	}
	if diff := cmp.Diff([]string{"main.py", "util.py"}, manifest.Files); diff != "" {
		t.Fatalf("unexpected files (-want +got):\n%s", diff)
	}
}

func TestPackRejectsEscapingPatterns(t *testing.T) {
	dir := writeTree(t, map[string]string{"main.py": "a"})
	for _, pattern := range []string{"../*.py", "/etc/*", "lib/../../x", ""} {
		_, err := New(nil).Pack(context.Background(), Request{SourceDir: dir, Include: []string{pattern}})
		var cfgErr *service.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("%q: expected ConfigurationError, got %v", pattern, err)
		}
	}
}

func TestPackHonorsCancellation(t *testing.T) {
	dir := writeTree(t, map[string]string{"main.py": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Pack(ctx, Request{SourceDir: dir, Include: []string{"*.py"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildCommandFile(t *testing.T) {
	tests := map[string]string{
		"":                      "",
		"build.sh":              "build.sh",
		"./build.sh":            "build.sh",
		"./scripts/build.sh -v": "scripts/build.sh",
		"  ./build.sh  ":        "build.sh",
	}
	for input, want := range tests {
		if got := BuildCommandFile(input); got != want {
			t.Fatalf("BuildCommandFile(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestLiteralArchiverIsDeterministic(t *testing.T) {
	a, err := LiteralArchiver{}.ArchiveLiteral("print('hi')")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	b, err := LiteralArchiver{}.ArchiveLiteral("print('hi')")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("literal archives differ")
	}
	if got := readArchive(t, a)["main.py"]; got != "print('hi')" {
		t.Fatalf("unexpected main.py: %q", got)
	}
}

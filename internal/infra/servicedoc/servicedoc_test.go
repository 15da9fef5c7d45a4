// Where: internal/infra/servicedoc/servicedoc_test.go
// What: Tests for document lookup, decoding and write-back.
// Why: Write-back must only touch package.source and keep the rest intact.
package servicedoc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kubed-io/fx/internal/domain/service"
)

const commentedDoc = `# Service for the hello app
apiVersion: serverless.krm.kubed.io/v1alpha1
kind: Service
metadata:
  name: hello # short name
spec:
  package:
    include:
      - "*.py"
    buildcmd: ./build.sh
  environment:
    name: python
  # defaults for every function
  functionTemplate:
    triggers:
      - http: {}
  functions:
    - name: greet
      functionName: main.greet
`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service.yaml")
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

var sum = service.Checksum{Type: "sha256", Sum: "2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae"}

func TestLocate(t *testing.T) {
	path := writeDoc(t, commentedDoc)
	dir := filepath.Dir(path)

	got, err := Locate(dir)
	if err != nil || got != path {
		t.Fatalf("Locate(dir) = %q, %v", got, err)
	}
	got, err = Locate(path)
	if err != nil || got != path {
		t.Fatalf("Locate(file) = %q, %v", got, err)
	}

	alt := t.TempDir()
	if err := os.WriteFile(filepath.Join(alt, "service.yml"), []byte(commentedDoc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, err := Locate(alt); err != nil || filepath.Base(got) != "service.yml" {
		t.Fatalf("Locate(alt) = %q, %v", got, err)
	}

	if _, err := Locate(t.TempDir()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	svc, err := Decode([]byte(commentedDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if svc.Metadata.Name != "hello" || svc.Spec.Package.BuildCmd != "./build.sh" {
		t.Fatalf("unexpected service: %+v", svc.Metadata)
	}
	if !svc.Spec.FunctionTemplate.Triggers.IsSet() {
		t.Fatalf("template triggers lost")
	}
}

func TestDecodeAcceptsJSON(t *testing.T) {
	doc := `{"apiVersion":"serverless.krm.kubed.io/v1alpha1","kind":"Service","metadata":{"name":"j"},` +
		`"spec":{"environment":{"name":"python"},"functions":[{"functionName":"main.f","idletimeout":5}]}}`
	svc, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if svc.Spec.Functions[0].IdleTimeout == nil || *svc.Spec.Functions[0].IdleTimeout != 5 {
		t.Fatalf("legacy idletimeout not decoded")
	}
}

func TestDecodeRejectsSchemaViolations(t *testing.T) {
	tests := map[string]string{
		"wrong kind":        strings.Replace(commentedDoc, "kind: Service", "kind: Function", 1),
		"unknown spec key":  commentedDoc + "  extra: true\n",
		"two trigger kinds": strings.Replace(commentedDoc, "- http: {}", "- http: {}\n        kafka: {}", 1),
		"bad source type":   strings.Replace(commentedDoc, "buildcmd: ./build.sh", "source:\n      type: git", 1),
		"string timeout":    strings.Replace(commentedDoc, "functionName: main.greet", "functionName: main.greet\n      functionTimeout: soon", 1),
		"null secrets":      strings.Replace(commentedDoc, "functionName: main.greet", "functionName: main.greet\n      secrets:", 1),
		"null configmaps":   strings.Replace(commentedDoc, "triggers:\n      - http: {}", "configmaps: null\n    triggers:\n      - http: {}", 1),
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(doc))
			var cfgErr *service.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestWriteBackPreservesCommentsAndOrder(t *testing.T) {
	path := writeDoc(t, commentedDoc)

	changed, err := WriteBack(path, "https://fx.s3.us-east-1.amazonaws.com/hello-1.zip", sum, WriteBackOptions{})
	if err != nil {
		t.Fatalf("write back: %v", err)
	}
	if !changed {
		t.Fatalf("expected document to change")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"# Service for the hello app",
		"name: hello # short name",
		"# defaults for every function",
		"buildcmd: ./build.sh",
		"type: url",
		"url: https://fx.s3.us-east-1.amazonaws.com/hello-1.zip",
		"sum: " + sum.Sum,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}
	if strings.Index(text, "buildcmd") > strings.Index(text, "source:") {
		t.Fatalf("existing keys must keep their order:\n%s", text)
	}

	svc, err := Decode(data)
	if err != nil {
		t.Fatalf("decode updated document: %v", err)
	}
	if got := svc.Spec.Package.Source.Digest(); !got.Equal(sum) {
		t.Fatalf("unexpected checksum: %+v", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("file mode not preserved: %v", info.Mode().Perm())
	}
}

func TestWriteBackLocksNextToDocument(t *testing.T) {
	path := writeDoc(t, commentedDoc)
	if _, err := WriteBack(path, "https://fx.example.test/hello.zip", sum, WriteBackOptions{}); err != nil {
		t.Fatalf("write back: %v", err)
	}
	lock := LockPath(path)
	if lock != filepath.Join(filepath.Dir(path), ".service.yaml.lock") {
		t.Fatalf("unexpected lock path: %s", lock)
	}
	if _, err := os.Stat(lock); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
}

func TestWriteBackIsIdempotent(t *testing.T) {
	path := writeDoc(t, commentedDoc)
	url := "https://fx.s3.us-east-1.amazonaws.com/hello-1.zip"

	if _, err := WriteBack(path, url, sum, WriteBackOptions{}); err != nil {
		t.Fatalf("first write back: %v", err)
	}
	first, _ := os.ReadFile(path)

	changed, err := WriteBack(path, url, sum, WriteBackOptions{})
	if err != nil {
		t.Fatalf("second write back: %v", err)
	}
	second, _ := os.ReadFile(path)
	if changed || string(first) != string(second) {
		t.Fatalf("repeated write back must not change the document")
	}
}

func TestWriteBackReplacesExistingSource(t *testing.T) {
	doc := strings.Replace(commentedDoc, "buildcmd: ./build.sh", `buildcmd: ./build.sh
    source:
      url: https://old.example.com/hello-0.zip # previous
      checksum:
        type: sha256
        sum: "0000"`, 1)
	path := writeDoc(t, doc)

	if _, err := WriteBack(path, "https://new.example.com/hello-1.zip", sum, WriteBackOptions{}); err != nil {
		t.Fatalf("write back: %v", err)
	}
	data, _ := os.ReadFile(path)
	text := string(data)
	if strings.Contains(text, "old.example.com") || strings.Contains(text, `"0000"`) {
		t.Fatalf("old source kept:\n%s", text)
	}
	if !strings.Contains(text, "# previous") {
		t.Fatalf("line comment lost:\n%s", text)
	}
	if strings.Count(text, "checksum:") != 1 {
		t.Fatalf("checksum duplicated:\n%s", text)
	}
}

func TestWriteBackFailureLeavesDocumentUntouched(t *testing.T) {
	doc := strings.Replace(commentedDoc, "buildcmd: ./build.sh", "buildcmd: ./build.sh\n    source:\n      literal: print('hi')", 1)
	path := writeDoc(t, doc)

	_, err := WriteBack(path, "https://fx/hello.zip", sum, WriteBackOptions{})
	var wbErr *WriteBackError
	if !errors.As(err, &wbErr) || wbErr.Path != path {
		t.Fatalf("expected WriteBackError, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != doc {
		t.Fatalf("document modified after failed write back")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestWriteBackRejectsMissingValues(t *testing.T) {
	path := writeDoc(t, commentedDoc)
	if _, err := WriteBack(path, "", sum, WriteBackOptions{}); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

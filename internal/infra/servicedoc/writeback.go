// Where: internal/infra/servicedoc/writeback.go
// What: In-place update of package.source after a confirmed upload.
// Why: Only url and checksum may change; comments and key order survive.
package servicedoc

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kubed-io/fx/internal/domain/service"
	"github.com/kubed-io/fx/internal/meta"
	"gopkg.in/yaml.v3"
)

const DefaultLockTimeout = 30 * time.Second

// WriteBackError means the document was left unmodified.
type WriteBackError struct {
	Path string
	Err  error
}

func (e *WriteBackError) Error() string {
	return fmt.Sprintf("write back %s: %v", e.Path, e.Err)
}

func (e *WriteBackError) Unwrap() error {
	return e.Err
}

// WriteBackOptions tunes locking; zero values take the defaults.
type WriteBackOptions struct {
	LockTimeout time.Duration
	Logger      *slog.Logger
}

// WriteBack records url and checksum as the package source of the
// document at path. It returns false when the document already held
// exactly these values.
func WriteBack(path, url string, checksum service.Checksum, opts WriteBackOptions) (bool, error) {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fail := func(err error) (bool, error) {
		return false, &WriteBackError{Path: path, Err: err}
	}
	if url == "" || checksum.Sum == "" {
		return fail(fmt.Errorf("url and checksum are required"))
	}

	lockPath := LockPath(path)
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fail(fmt.Errorf("failed to create lock file: %w", err))
	}
	defer func() {
		_ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
		_ = lockFile.Close()
	}()
	if err := acquireLock(lockFile, opts.LockTimeout); err != nil {
		return fail(fmt.Errorf("failed to acquire document lock: %w", err))
	}

	info, err := os.Stat(path)
	if err != nil {
		return fail(err)
	}
	original, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}

	updated, err := rewriteSource(original, url, checksum)
	if err != nil {
		return fail(err)
	}
	if bytes.Equal(original, updated) {
		logger.Debug("service document already up to date", "file", path)
		return false, nil
	}
	if err := atomicWrite(path, updated, info.Mode().Perm()); err != nil {
		return fail(err)
	}
	logger.Debug("service document updated", "file", path, "checksum", checksum.Sum)
	return true, nil
}

// LockPath returns the lock file guarding the document at path.
func LockPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".lock")
}

func rewriteSource(data []byte, url string, checksum service.Checksum) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("document is not a mapping")
	}
	root := doc.Content[0]
	if kind := scalarValue(lookup(root, "kind")); kind != meta.ServiceKind {
		return nil, fmt.Errorf("document kind is %q, not %s", kind, meta.ServiceKind)
	}

	spec, err := ensureMapping(root, "spec")
	if err != nil {
		return nil, err
	}
	pkg, err := ensureMapping(spec, "package")
	if err != nil {
		return nil, err
	}
	source, err := ensureMapping(pkg, "source")
	if err != nil {
		return nil, err
	}
	if literal := lookup(source, "literal"); literal != nil {
		return nil, errors.New("package source is literal; remove it before publishing to a url")
	}
	if recorded(source, url, checksum) {
		return data, nil
	}

	setScalar(source, "type", string(service.SourceURL))
	setScalar(source, "url", url)
	sum, err := ensureMapping(source, "checksum")
	if err != nil {
		return nil, err
	}
	setScalar(sum, "type", checksum.Algorithm())
	setScalar(sum, "sum", checksum.Sum)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

func recorded(source *yaml.Node, url string, checksum service.Checksum) bool {
	sum := lookup(source, "checksum")
	return scalarValue(lookup(source, "type")) == string(service.SourceURL) &&
		scalarValue(lookup(source, "url")) == url &&
		scalarValue(lookup(sum, "type")) == checksum.Algorithm() &&
		scalarValue(lookup(sum, "sum")) == checksum.Sum
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func scalarValue(node *yaml.Node) string {
	if node == nil || node.Kind != yaml.ScalarNode {
		return ""
	}
	return node.Value
}

// ensureMapping returns the mapping under key, creating it (or replacing
// an empty value) when needed.
func ensureMapping(parent *yaml.Node, key string) (*yaml.Node, error) {
	if node := lookup(parent, key); node != nil {
		switch {
		case node.Kind == yaml.MappingNode:
			return node, nil
		case node.Kind == yaml.ScalarNode && (node.Tag == "!!null" || node.Value == ""):
			node.Kind = yaml.MappingNode
			node.Tag = "!!map"
			node.Value = ""
			node.Style = 0
			return node, nil
		default:
			return nil, fmt.Errorf("%s is not a mapping", key)
		}
	}
	value := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	parent.Content = append(parent.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
	return value, nil
}

func setScalar(mapping *yaml.Node, key, value string) {
	if node := lookup(mapping, key); node != nil {
		if node.Kind == yaml.ScalarNode && node.Value == value {
			return
		}
		*node = yaml.Node{
			Kind:        yaml.ScalarNode,
			Tag:         "!!str",
			Value:       value,
			LineComment: node.LineComment,
			HeadComment: node.HeadComment,
			FootComment: node.FootComment,
		}
		return
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

func acquireLock(lockFile *os.File, timeout time.Duration) error {
	if lockFile == nil {
		return fmt.Errorf("lock file is nil")
	}
	deadline := time.Now().Add(timeout)
	for {
		err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return nil
		}
		if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
			if time.Now().After(deadline) {
				return fmt.Errorf("timeout after %s", timeout)
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		return err
	}
}

// atomicWrite replaces path via a synced temp file and rename.
func atomicWrite(path string, content []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if _, err := tmp.Write(content); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Where: internal/infra/blobstore/key.go
// What: Object key templates for published archives.
package blobstore

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/kubed-io/fx/internal/meta"
)

const DefaultKeyTemplate = "{{ .Package }}-{{ .Timestamp }}.zip"

// KeyData is the template input. Timestamp is formatted YYYYmmddHHMMSS.
type KeyData struct {
	Service   string
	Namespace string
	Package   string
	Timestamp string
	Checksum  string
}

// NewKeyData formats now in UTC.
func NewKeyData(service, namespace, pkg, checksum string, now time.Time) KeyData {
	return KeyData{
		Service:   service,
		Namespace: namespace,
		Package:   pkg,
		Timestamp: now.UTC().Format(meta.ArchiveTimeLayout),
		Checksum:  checksum,
	}
}

var keyTemplates sync.Map

// RenderKey renders tpl (or the default) and joins it under prefix.
func RenderKey(prefix, tpl string, data KeyData) (string, error) {
	if strings.TrimSpace(tpl) == "" {
		tpl = DefaultKeyTemplate
	}
	tmpl, err := loadKeyTemplate(tpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render key template: %w", err)
	}
	key := strings.TrimSpace(buf.String())
	if key == "" {
		return "", fmt.Errorf("key template rendered an empty key")
	}

	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	for _, candidate := range []string{prefix, key} {
		if candidate == "" {
			continue
		}
		for _, part := range strings.Split(strings.TrimLeft(candidate, "/"), "/") {
			if part == ".." || part == "." || part == "" {
				return "", fmt.Errorf("invalid object key %q", candidate)
			}
		}
	}
	return path.Join(prefix, strings.TrimLeft(key, "/")), nil
}

func loadKeyTemplate(tpl string) (*template.Template, error) {
	if value, ok := keyTemplates.Load(tpl); ok {
		return value.(*template.Template), nil
	}
	tmpl, err := template.New("key").Option("missingkey=error").Funcs(sprig.TxtFuncMap()).Parse(tpl)
	if err != nil {
		return nil, fmt.Errorf("parse key template: %w", err)
	}
	keyTemplates.Store(tpl, tmpl)
	return tmpl, nil
}

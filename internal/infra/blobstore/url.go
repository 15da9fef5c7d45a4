// Where: internal/infra/blobstore/url.go
// What: Builds the public URL recorded for an uploaded object.
package blobstore

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// URLBuilder renders object URLs. PublicURL, when set, is a template
// over .Bucket, .Key, .Region and .Endpoint.
type URLBuilder struct {
	Endpoint  string
	Region    string
	PathStyle bool
	PublicURL string
}

type urlData struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string
}

func (b URLBuilder) ObjectURL(bucket, key string) (string, error) {
	escaped := escapeKey(key)
	endpoint := strings.TrimRight(strings.TrimSpace(b.Endpoint), "/")

	if tpl := strings.TrimSpace(b.PublicURL); tpl != "" {
		tmpl, err := ParsePublicURL(tpl)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		data := urlData{Bucket: bucket, Key: escaped, Region: b.Region, Endpoint: endpoint}
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("render public_url template: %w", err)
		}
		return buf.String(), nil
	}

	if endpoint != "" {
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return "", fmt.Errorf("invalid endpoint %q", b.Endpoint)
		}
		if b.PathStyle || isGCS(parsed.Host) {
			return fmt.Sprintf("%s/%s/%s", endpoint, bucket, escaped), nil
		}
		return fmt.Sprintf("%s://%s.%s%s/%s", parsed.Scheme, bucket, parsed.Host, strings.TrimRight(parsed.Path, "/"), escaped), nil
	}

	region := strings.TrimSpace(b.Region)
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, escaped), nil
}

func isGCS(host string) bool {
	return host == "storage.googleapis.com"
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// ParsePublicURL parses a public_url template.
func ParsePublicURL(tpl string) (*template.Template, error) {
	tmpl, err := template.New("public_url").Option("missingkey=error").Funcs(sprig.TxtFuncMap()).Parse(tpl)
	if err != nil {
		return nil, fmt.Errorf("parse public_url template: %w", err)
	}
	return tmpl, nil
}

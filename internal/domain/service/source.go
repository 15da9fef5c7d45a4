// Where: internal/domain/service/source.go
// What: Package source descriptor (literal | url).
// Why: Exactly one variant may be populated; the type key is optional.
package service

import "strings"

type SourceType string

const (
	SourceLiteral SourceType = "literal"
	SourceURL     SourceType = "url"
)

// ChecksumSHA256 is the only checksum algorithm produced by the publisher.
const ChecksumSHA256 = "sha256"

// Source is package.source. When Type is omitted it is inferred from the
// populated variant.
type Source struct {
	Type     SourceType `json:"type,omitempty"`
	Literal  string     `json:"literal,omitempty"`
	URL      string     `json:"url,omitempty"`
	Checksum *Checksum  `json:"checksum,omitempty"`
}

// Checksum is the digest of a remote archive. Sum is hex encoded.
type Checksum struct {
	Type string `json:"type,omitempty"`
	Sum  string `json:"sum,omitempty"`
}

// Algorithm returns the checksum type, defaulting to sha256.
func (c Checksum) Algorithm() string {
	if t := strings.TrimSpace(c.Type); t != "" {
		return t
	}
	return ChecksumSHA256
}

// Equal compares checksums after defaulting the algorithm.
func (c Checksum) Equal(other Checksum) bool {
	return c.Algorithm() == other.Algorithm() && strings.EqualFold(c.Sum, other.Sum)
}

// Kind returns the populated variant. An empty descriptor (authoring
// phase) returns "" without error.
func (s Source) Kind() (SourceType, error) {
	hasLiteral := s.Literal != ""
	hasURL := s.URL != "" || s.Checksum != nil

	if hasLiteral && hasURL {
		return "", ConfigErrorf("", "package.source", "literal and url are mutually exclusive")
	}

	switch s.Type {
	case SourceLiteral:
		if !hasLiteral {
			return "", ConfigErrorf("", "package.source", "type literal requires a literal value")
		}
		return SourceLiteral, nil
	case SourceURL:
		if hasLiteral {
			return "", ConfigErrorf("", "package.source", "type url cannot carry a literal value")
		}
		return SourceURL, nil
	case "":
	default:
		return "", ConfigErrorf("", "package.source.type", "unsupported source type %q", s.Type)
	}

	switch {
	case hasLiteral:
		return SourceLiteral, nil
	case hasURL:
		return SourceURL, nil
	default:
		return "", nil
	}
}

// Digest returns the recorded checksum, or a zero Checksum.
func (s Source) Digest() Checksum {
	if s.Checksum == nil {
		return Checksum{}
	}
	return *s.Checksum
}

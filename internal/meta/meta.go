// Where: internal/meta/meta.go
// What: CLI-local metadata constants.
// Why: Keep document identity, resource identity and file names in one place.
package meta

const (
	// Project Identity
	AppName   = "fx"
	EnvPrefix = "FX"

	// Service document identity
	ServiceAPIGroup   = "serverless.krm.kubed.io"
	ServiceAPIVersion = "serverless.krm.kubed.io/v1alpha1"
	ServiceKind       = "Service"
	ServiceFileName   = "service.yaml"
	ServiceFileAlt    = "service.yml"

	// Fission resources
	FissionAPIVersion     = "fission.io/v1"
	DescriptionAnnotation = "kubernetes.io/description"

	// Defaults
	DefaultNamespace = "default"
	DefaultBucket    = "fx-functions"
	DefaultRegion    = "us-east-1"

	// Packaging
	LiteralFileName   = "main.py"
	IgnoreFileName    = ".fxignore"
	ArchiveTimeLayout = "20060102150405"
)

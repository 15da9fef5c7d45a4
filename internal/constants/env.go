// Where: internal/constants/env.go
// What: Environment variable naming constants.
// Why: Centralize environment variable names to avoid typos and inconsistencies.
package constants

const (
	// CLI configuration
	EnvFXConfig = "FX_CONFIG"
	EnvFXBucket = "FX_BUCKET"
	EnvFXRegion = "FX_REGION"

	// AWS SDK fallbacks
	EnvAWSRegion = "AWS_REGION"
)

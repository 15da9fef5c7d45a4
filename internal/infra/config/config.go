// Where: internal/infra/config/config.go
// What: Layered configuration for packaging and publishing.
// Why: Defaults, an optional file and FX_* environment variables resolve
// to one value that is threaded through the workflows.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kubed-io/fx/internal/constants"
	"github.com/kubed-io/fx/internal/infra/blobstore"
	"github.com/kubed-io/fx/internal/meta"
	"github.com/spf13/viper"
)

const (
	DedupeNever    = "never"
	DedupeChecksum = "checksum"
)

type Config struct {
	Bucket          string        `mapstructure:"bucket"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	PathStyle       bool          `mapstructure:"path_style"`
	PublicURL       string        `mapstructure:"public_url"`
	PublicRead      bool          `mapstructure:"public_read"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	KeyTemplate     string        `mapstructure:"key_template"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	Dedupe          string        `mapstructure:"dedupe"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout"`
	Upload          UploadConfig  `mapstructure:"upload"`
	Pack            PackConfig    `mapstructure:"pack"`
	Ledger          LedgerConfig  `mapstructure:"ledger"`
	Log             LogConfig     `mapstructure:"log"`
}

type UploadConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type PackConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LedgerConfig enables the publish ledger when Table is set.
type LedgerConfig struct {
	Table    string `mapstructure:"table"`
	Endpoint string `mapstructure:"endpoint"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Options selects the optional config file and dotenv files.
type Options struct {
	ConfigFile string
	EnvFiles   []string
}

// Load resolves configuration: defaults, then the config file, then the
// environment. Dotenv files never override variables already set.
func Load(opts Options) (*Config, error) {
	for _, file := range opts.EnvFiles {
		if strings.TrimSpace(file) == "" {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", file, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	configFile := strings.TrimSpace(opts.ConfigFile)
	if configFile == "" {
		configFile = strings.TrimSpace(os.Getenv(constants.EnvFXConfig))
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix(meta.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("region", constants.EnvFXRegion, constants.EnvAWSRegion); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bucket", meta.DefaultBucket)
	v.SetDefault("region", meta.DefaultRegion)
	v.SetDefault("endpoint", "")
	v.SetDefault("path_style", false)
	v.SetDefault("public_url", "")
	v.SetDefault("public_read", false)
	v.SetDefault("access_key_id", "")
	v.SetDefault("secret_access_key", "")
	v.SetDefault("key_template", "{{ .Package }}-{{ .Timestamp }}.zip")
	v.SetDefault("key_prefix", "")
	v.SetDefault("dedupe", DedupeNever)
	v.SetDefault("lock_timeout", "30s")
	v.SetDefault("upload.max_attempts", 5)
	v.SetDefault("upload.initial_interval", "500ms")
	v.SetDefault("upload.max_interval", "10s")
	v.SetDefault("upload.timeout", "5m")
	v.SetDefault("pack.timeout", "2m")
	v.SetDefault("ledger.table", "")
	v.SetDefault("ledger.endpoint", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

// Validate rejects values the workflows cannot act on.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Bucket) == "" {
		errs = append(errs, errors.New("bucket must not be empty"))
	}
	switch c.Dedupe {
	case DedupeNever, DedupeChecksum:
	default:
		errs = append(errs, fmt.Errorf("dedupe must be %q or %q, got %q", DedupeNever, DedupeChecksum, c.Dedupe))
	}
	if c.Upload.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("upload.max_attempts must be at least 1, got %d", c.Upload.MaxAttempts))
	}
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"upload.initial_interval", c.Upload.InitialInterval},
		{"upload.max_interval", c.Upload.MaxInterval},
		{"upload.timeout", c.Upload.Timeout},
		{"pack.timeout", c.Pack.Timeout},
		{"lock_timeout", c.LockTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.name, d.value))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not supported", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not supported", c.Log.Format))
	}
	if tpl := strings.TrimSpace(c.PublicURL); tpl != "" {
		if _, err := blobstore.ParsePublicURL(tpl); err != nil {
			errs = append(errs, err)
		}
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		errs = append(errs, errors.New("access_key_id and secret_access_key must be set together"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

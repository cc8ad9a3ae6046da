package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/japaniel/kokkai/pkg/storage"
)

// Prefix is prepended to every environment variable, e.g. KOKKAI_ADDR.
const Prefix = "KOKKAI"

// Config holds application configuration
type Config struct {
	// BaseURL is the meeting record API root.
	BaseURL   string        `envconfig:"BASE_URL" default:"https://kokkai.ndl.go.jp/api" validate:"required,url"`
	UserAgent string        `envconfig:"USER_AGENT"`
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"60s" validate:"gt=0"`

	// DataPath is the speech CSV the dashboard reads.
	DataPath string `envconfig:"DATA" default:"data/speeches_sample.csv" validate:"required"`
	// OutDir receives fetched CSV files when no bucket is configured.
	OutDir string `envconfig:"OUT_DIR" default:"data"`

	Addr    string `envconfig:"ADDR" default:":8080" validate:"required"`
	Workers int    `envconfig:"WORKERS" default:"4" validate:"min=1,max=64"`
	Verbose bool   `envconfig:"VERBOSE"`

	Storage StorageConfig `envconfig:"S3"`
}

// StorageConfig holds the optional bucket settings. An empty Endpoint means
// files stay on local disk.
type StorageConfig struct {
	Endpoint        string `envconfig:"ENDPOINT"`
	AccessKeyID     string `envconfig:"ACCESS_KEY"`
	SecretAccessKey string `envconfig:"SECRET_KEY"`
	Bucket          string `envconfig:"BUCKET" validate:"required_with=Endpoint"`
	Prefix          string `envconfig:"PREFIX"`
	Region          string `envconfig:"REGION"`
	UseSSL          bool   `envconfig:"USE_SSL" default:"true"`
}

// Enabled reports whether uploads go to a bucket.
func (s StorageConfig) Enabled() bool { return s.Endpoint != "" }

// Minio converts s for storage.NewMinioSink.
func (s StorageConfig) Minio() storage.MinioConfig {
	return storage.MinioConfig{
		Endpoint:        s.Endpoint,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		Bucket:          s.Bucket,
		Prefix:          s.Prefix,
		Region:          s.Region,
		UseSSL:          s.UseSSL,
	}
}

// Load reads envFile (or .env when empty and present) and then the
// environment. Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

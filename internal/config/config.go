// Package config loads the process-wide Config value from an optional YAML
// file plus environment-variable overrides, validates it, and returns it to
// the caller. Every component that previously would have reached for a
// global "get_config()" function instead receives this value once at
// process entry and threads it down through explicit constructor arguments.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/dandi/s3logextraction/pkg/apperr"
)

// ExtractionConfig holds defaults for the `extract` command.
type ExtractionConfig struct {
	DefaultWorkers  int    `yaml:"default_workers"`
	DefaultMode     string `yaml:"default_mode"`
	SkipIPsRegex    string `yaml:"skip_ips_regex"`
	LockRetries     int    `yaml:"lock_retries"`
	LockRetryDelay  time.Duration `yaml:"lock_retry_delay"`
}

// RemoteConfig holds defaults for the remote fetch orchestrator.
type RemoteConfig struct {
	Bucket        string `yaml:"bucket"`
	ManifestPath  string `yaml:"manifest_path"`
	DateLimit     int    `yaml:"date_limit"`
	FetchWorkers  int    `yaml:"fetch_workers"`
}

// IndexingConfig holds defaults for the IP indexer.
type IndexingConfig struct {
	BatchSize         int `yaml:"batch_size"`
	CollisionRetries  int `yaml:"collision_retries"`
}

// Config is the full, validated process configuration.
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction"`
	Remote     RemoteConfig     `yaml:"remote"`
	Indexing   IndexingConfig   `yaml:"indexing"`
}

// Load reads configFile (if non-empty and present), layers in defaults, then
// environment-variable overrides, and validates the result.
func Load(configFile string) (*Config, error) {
	cfg := &Config{}

	if configFile != "" {
		if err := loadFile(configFile, cfg); err != nil {
			return nil, apperr.ConfigError("load", "failed to read config file").
				WithMetadata("path", configFile).Wrap(err)
		}
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Extraction.DefaultWorkers == 0 {
		cfg.Extraction.DefaultWorkers = 1
	}
	if cfg.Extraction.DefaultMode == "" {
		cfg.Extraction.DefaultMode = "generic"
	}
	if cfg.Extraction.LockRetries == 0 {
		cfg.Extraction.LockRetries = 240
	}
	if cfg.Extraction.LockRetryDelay == 0 {
		cfg.Extraction.LockRetryDelay = time.Second
	}
	if cfg.Remote.DateLimit == 0 {
		cfg.Remote.DateLimit = -1
	}
	if cfg.Remote.FetchWorkers == 0 {
		cfg.Remote.FetchWorkers = 8
	}
	if cfg.Indexing.BatchSize == 0 {
		cfg.Indexing.BatchSize = 100_000
	}
	if cfg.Indexing.CollisionRetries == 0 {
		cfg.Indexing.CollisionRetries = 1000
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("S3LOGEXTRACTION_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Extraction.DefaultWorkers = n
		}
	}
	if v := os.Getenv("S3LOGEXTRACTION_MODE"); v != "" {
		cfg.Extraction.DefaultMode = v
	}
	if v := os.Getenv("S3LOGEXTRACTION_SKIP_IPS_REGEX"); v != "" {
		cfg.Extraction.SkipIPsRegex = v
	}
	if v := os.Getenv("S3LOGEXTRACTION_BUCKET"); v != "" {
		cfg.Remote.Bucket = v
	}
	if v := os.Getenv("S3LOGEXTRACTION_DATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Remote.DateLimit = n
		}
	}
}

// Validate fails closed: an invalid mode or non-positive batch size is a
// ConfigError, not a silently-corrected default.
func Validate(cfg *Config) error {
	switch cfg.Extraction.DefaultMode {
	case "generic", "dandi":
	default:
		return apperr.ConfigError("validate", fmt.Sprintf("unknown extraction mode %q", cfg.Extraction.DefaultMode))
	}
	if cfg.Indexing.BatchSize <= 0 {
		return apperr.ConfigError("validate", "indexing.batch_size must be positive")
	}
	if cfg.Indexing.CollisionRetries <= 0 {
		return apperr.ConfigError("validate", "indexing.collision_retries must be positive")
	}
	if cfg.Extraction.LockRetries <= 0 {
		return apperr.ConfigError("validate", "extraction.lock_retries must be positive")
	}
	return nil
}

// Package config provides configuration management for lazystore stores
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the configuration of a store and its tooling
type Config struct {
	// History Configuration
	MaxHistory int `json:"max_history" yaml:"max_history"` // Maximum undoable ops (0 = unbounded)

	// Snapshot Configuration
	SnapshotCompression string `json:"snapshot_compression" yaml:"snapshot_compression"` // Parquet codec: none, snappy, gzip, zstd
	SnapshotBatchSize   int    `json:"snapshot_batch_size" yaml:"snapshot_batch_size"`   // Rows per record batch when reading snapshots

	// Debugging Configuration
	VerboseLogging    bool   `json:"verbose_logging" yaml:"verbose_logging"`       // Enable debug logging
	LogEncoding       string `json:"log_encoding" yaml:"log_encoding"`             // json or console
	MetricsCollection bool   `json:"metrics_collection" yaml:"metrics_collection"` // Enable metrics collection
	MetricsAddr       string `json:"metrics_addr" yaml:"metrics_addr"`             // Listen address of the metrics endpoint
}

// Default configuration values
const (
	DefaultMaxHistory          = 1000
	DefaultSnapshotCompression = "snappy"
	DefaultSnapshotBatchSize   = 4096
	DefaultLogEncoding         = "json"
	DefaultMetricsAddr         = ":9464"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv
const EnvPrefix = "LAZYSTORE_"

var (
	compressions = []string{"none", "snappy", "gzip", "zstd"}
	encodings    = []string{"json", "console"}
)

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		MaxHistory:          DefaultMaxHistory,
		SnapshotCompression: DefaultSnapshotCompression,
		SnapshotBatchSize:   DefaultSnapshotBatchSize,
		VerboseLogging:      false,
		LogEncoding:         DefaultLogEncoding,
		MetricsCollection:   false,
		MetricsAddr:         DefaultMetricsAddr,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.MaxHistory < 0 {
		return fmt.Errorf("MaxHistory must be non-negative, got %d", c.MaxHistory)
	}

	if !slices.Contains(compressions, c.SnapshotCompression) {
		return fmt.Errorf("SnapshotCompression must be one of %v, got %q", compressions, c.SnapshotCompression)
	}

	if c.SnapshotBatchSize <= 0 {
		return fmt.Errorf("SnapshotBatchSize must be positive, got %d", c.SnapshotBatchSize)
	}

	if !slices.Contains(encodings, c.LogEncoding) {
		return fmt.Errorf("LogEncoding must be one of %v, got %q", encodings, c.LogEncoding)
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.SnapshotCompression == "" {
		c.SnapshotCompression = defaults.SnapshotCompression
	}
	if c.SnapshotBatchSize == 0 {
		c.SnapshotBatchSize = defaults.SnapshotBatchSize
	}
	if c.LogEncoding == "" {
		c.LogEncoding = defaults.LogEncoding
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = defaults.MetricsAddr
	}

	// MaxHistory keeps 0 (unbounded) and booleans keep false: both are
	// meaningful explicit values.
	return c
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromYAML loads configuration from YAML data
func LoadFromYAML(data []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing YAML configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a JSON or YAML file
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		config, err = LoadFromJSON(data)
	case ".yaml", ".yml":
		config, err = LoadFromYAML(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", filename, err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", filename, err)
	}
	return config, nil
}

// LoadFromEnv overrides base with LAZYSTORE_* environment variables.
// Unparseable values are ignored.
func LoadFromEnv(base Config) Config {
	config := base

	if val := os.Getenv(EnvPrefix + "MAX_HISTORY"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.MaxHistory = parsed
		}
	}

	if val := os.Getenv(EnvPrefix + "SNAPSHOT_COMPRESSION"); val != "" {
		config.SnapshotCompression = strings.ToLower(val)
	}

	if val := os.Getenv(EnvPrefix + "SNAPSHOT_BATCH_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.SnapshotBatchSize = parsed
		}
	}

	if val := os.Getenv(EnvPrefix + "VERBOSE_LOGGING"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.VerboseLogging = parsed
		}
	}

	if val := os.Getenv(EnvPrefix + "LOG_ENCODING"); val != "" {
		config.LogEncoding = strings.ToLower(val)
	}

	if val := os.Getenv(EnvPrefix + "METRICS_COLLECTION"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.MetricsCollection = parsed
		}
	}

	if val := os.Getenv(EnvPrefix + "METRICS_ADDR"); val != "" {
		config.MetricsAddr = val
	}

	return config
}

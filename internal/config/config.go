// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir is the default configuration directory
	DefaultConfigDir = ".cortex/configs"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.json"
)

// Load reads configuration from ~/.cortex/configs/config.json
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, DefaultConfigDir)

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(configPath)

	// Set defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults
			return loadFromDefaults(v)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromPath loads configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.type", "sqlite")
	homeDir, _ := os.UserHomeDir()
	v.SetDefault("database.sqlite_path", filepath.Join(homeDir, ".cortex/db/cortex.db"))

	// Embedding sidecar defaults
	v.SetDefault("embeddings.enabled", true)
	v.SetDefault("embeddings.base_url", "http://localhost:8384")
	v.SetDefault("embeddings.dimensions", 384)
	v.SetDefault("embeddings.probe_timeout_seconds", 2)
	v.SetDefault("embeddings.batch_timeout_seconds", 15)

	// Dedup thresholds
	v.SetDefault("dedup.note_threshold", 0.80)
	v.SetDefault("dedup.instruction_threshold", 0.80)
	v.SetDefault("dedup.error_threshold", 0.60)

	// Logging defaults
	v.SetDefault("logging.level", "info")
}

// loadFromDefaults creates a config from default values
func loadFromDefaults(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	return &cfg, nil
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	// Validate database type
	if cfg.Database.Type != "sqlite" && cfg.Database.Type != "postgres" {
		return fmt.Errorf("database.type must be 'sqlite' or 'postgres', got '%s'", cfg.Database.Type)
	}

	// Validate database connection info
	if cfg.Database.Type == "sqlite" && cfg.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required when type is 'sqlite'")
	}
	if cfg.Database.Type == "postgres" && cfg.Database.PostgresDSN == "" {
		return fmt.Errorf("database.postgres_dsn is required when type is 'postgres'")
	}

	// Validate embedding settings only when the feature is on
	if cfg.Embeddings.Enabled {
		if cfg.Embeddings.BaseURL == "" {
			return fmt.Errorf("embeddings.base_url is required when embeddings are enabled")
		}
		if cfg.Embeddings.Dimensions < 1 {
			return fmt.Errorf("embeddings.dimensions must be at least 1, got %d", cfg.Embeddings.Dimensions)
		}
		if cfg.Embeddings.ProbeTimeoutSeconds < 1 {
			return fmt.Errorf("embeddings.probe_timeout_seconds must be at least 1, got %d", cfg.Embeddings.ProbeTimeoutSeconds)
		}
		if cfg.Embeddings.BatchTimeoutSeconds < 1 {
			return fmt.Errorf("embeddings.batch_timeout_seconds must be at least 1, got %d", cfg.Embeddings.BatchTimeoutSeconds)
		}
	}

	// Validate dedup thresholds
	thresholds := []struct {
		name  string
		value float64
	}{
		{"dedup.note_threshold", cfg.Dedup.NoteThreshold},
		{"dedup.instruction_threshold", cfg.Dedup.InstructionThreshold},
		{"dedup.error_threshold", cfg.Dedup.ErrorThreshold},
	}
	for _, t := range thresholds {
		if t.value <= 0 || t.value > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", t.name, t.value)
		}
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, DefaultConfigDir)
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Database: DatabaseConfig{
			Type:       "sqlite",
			SQLitePath: filepath.Join(homeDir, ".cortex/db/cortex.db"),
		},
		Embeddings: EmbeddingConfig{
			Enabled:             true,
			BaseURL:             "http://localhost:8384",
			Dimensions:          384,
			ProbeTimeoutSeconds: 2,
			BatchTimeoutSeconds: 15,
		},
		Dedup: DedupConfig{
			NoteThreshold:        0.80,
			InstructionThreshold: 0.80,
			ErrorThreshold:       0.60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

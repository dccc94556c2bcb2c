// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

// Config represents the complete application configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Embeddings EmbeddingConfig  `mapstructure:"embeddings"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Type        string `mapstructure:"type"` // "sqlite" or "postgres"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// EmbeddingConfig holds settings for the embedding sidecar service
type EmbeddingConfig struct {
	Enabled             bool   `mapstructure:"enabled"`               // Feature flag for semantic search
	BaseURL             string `mapstructure:"base_url"`              // Sidecar base URL
	Dimensions          int    `mapstructure:"dimensions"`            // Vector dimensions (deployment constant)
	ProbeTimeoutSeconds int    `mapstructure:"probe_timeout_seconds"` // Liveness probe bound
	BatchTimeoutSeconds int    `mapstructure:"batch_timeout_seconds"` // Batch embed call bound
}

// DedupConfig holds the kind-specific similarity thresholds for the write
// path. Notes and instructions need high confidence before merging; error
// messages vary more between occurrences of the same error, so their
// threshold is looser.
type DedupConfig struct {
	NoteThreshold        float64 `mapstructure:"note_threshold"`
	InstructionThreshold float64 `mapstructure:"instruction_threshold"`
	ErrorThreshold       float64 `mapstructure:"error_threshold"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"` // zerolog level name
}

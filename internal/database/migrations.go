// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AllModels returns all database models for migration
func AllModels() []interface{} {
	return []interface{}{
		&Note{},
		&Instruction{},
		&ErrorPattern{},
		&Todo{},
		&Snapshot{},
		&ProjectBrief{},
		&EmbeddingRecord{},
	}
}

// Migrate runs database migrations for all models
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if IsPostgres(db) {
		enablePostgresExtensions(db)
	}
	return nil
}

// enablePostgresExtensions tries to enable pg_trgm. The extension is
// optional: the similarity resolver falls back to in-process trigram scoring
// when it is missing, so a failure here only costs performance, never
// correctness.
func enablePostgresExtensions(db *gorm.DB) {
	_ = db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error
}

// DropAllTables drops all tables (use with caution!)
func DropAllTables(db *gorm.DB) error {
	models := []interface{}{
		&EmbeddingRecord{},
		&ProjectBrief{},
		&Snapshot{},
		&Todo{},
		&ErrorPattern{},
		&Instruction{},
		&Note{},
	}

	for _, model := range models {
		if err := db.Migrator().DropTable(model); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}

	return nil
}

// CreateIndexes creates additional indexes for better query performance
func CreateIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		{"embedding_records", "idx_embedding_records_scope_type", "project_id, content_type"},
		{"notes", "idx_notes_updated", "project_id, updated_at"},
		{"error_patterns", "idx_errors_last_seen", "project_id, last_seen_at"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}
		sql := "CREATE INDEX IF NOT EXISTS " + idx.name + " ON " + idx.table + " (" + idx.columns + ")"
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

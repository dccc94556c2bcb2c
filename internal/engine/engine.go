// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package engine implements the write path of the memory store: deciding
// whether an incoming item duplicates an existing one, merging when it does,
// and keeping the derived semantic index in step with the structured records.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cortexmemory/cortex-mcp/internal/database"
	"github.com/cortexmemory/cortex-mcp/internal/embeddings"
	"github.com/cortexmemory/cortex-mcp/internal/similarity"
)

// Thresholds are the kind-specific similarity cutoffs for dedup. Notes and
// instructions demand high confidence; error text varies more across
// occurrences of the same error, so it gets a looser cutoff.
type Thresholds struct {
	Note        float64
	Instruction float64
	Error       float64
}

// IsZero reports whether no cutoff has been set. A wholly unset value asks
// for defaults; a partially set one is taken as-is.
func (t Thresholds) IsZero() bool {
	return t == Thresholds{}
}

// DefaultThresholds returns the standard dedup cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Note:        0.80,
		Instruction: 0.80,
		Error:       0.60,
	}
}

// WriteResult reports the outcome of a write-path operation.
type WriteResult struct {
	ID           string `json:"id"`
	Deduplicated bool   `json:"deduplicated"`
}

// Config holds engine construction options
type Config struct {
	DB         *gorm.DB
	Resolver   *similarity.Resolver
	Gateway    *embeddings.Gateway
	Thresholds Thresholds
	Logger     zerolog.Logger
}

// Engine orchestrates merge policy and embedding upkeep for all memory
// kinds. All operations are request-scoped; durable state lives in the store.
type Engine struct {
	db         *gorm.DB
	resolver   *similarity.Resolver
	gateway    *embeddings.Gateway
	thresholds Thresholds
	logger     zerolog.Logger
}

// New creates a new engine
func New(cfg Config) (*Engine, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	if cfg.Resolver == nil {
		cfg.Resolver = similarity.NewResolver(cfg.Logger)
	}
	if cfg.Thresholds.IsZero() {
		cfg.Thresholds = DefaultThresholds()
	}
	return &Engine{
		db:         cfg.DB,
		resolver:   cfg.Resolver,
		gateway:    cfg.Gateway,
		thresholds: cfg.Thresholds,
		logger:     cfg.Logger,
	}, nil
}

// upsertEmbedding writes the derived index record for a memory item. It runs
// after the structured write has succeeded and is deliberately non-fatal: the
// row itself is always written so keyword search covers the item, and the
// vector column is set only when the gateway produced one. Writing the vector
// and the text in the same statement keeps them in step; if the gateway was
// down the vector is cleared rather than left stale against new text.
func (e *Engine) upsertEmbedding(ctx context.Context, projectID, sourceKind, sourceID, contentType, text string, tags database.StringList) {
	var vector []byte
	if vec, ok := e.gateway.EmbedOne(ctx, text); ok {
		vector = embeddings.Float32SliceToBlob(vec)
	}

	now := time.Now()
	record := database.EmbeddingRecord{
		ProjectID:   projectID,
		SourceKind:  sourceKind,
		SourceID:    sourceID,
		ContentType: contentType,
		Text:        text,
		Vector:      vector,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_kind"}, {Name: "source_id"}, {Name: "content_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"project_id", "text", "vector", "tags", "updated_at",
		}),
	}).Create(&record).Error
	if err != nil {
		e.logger.Warn().Err(err).
			Str("kind", sourceKind).Str("source_id", sourceID).
			Msg("Failed to write embedding record")
		return
	}

	e.logger.Debug().
		Str("kind", sourceKind).Str("source_id", sourceID).
		Bool("has_vector", vector != nil).
		Msg("Embedding record written")
}

// deleteEmbeddings removes all derived records for a memory item.
func (e *Engine) deleteEmbeddings(ctx context.Context, sourceKind, sourceID string) error {
	return e.db.WithContext(ctx).
		Where("source_kind = ? AND source_id = ?", sourceKind, sourceID).
		Delete(&database.EmbeddingRecord{}).Error
}

// Status summarizes stored counts and gateway availability for operators.
type Status struct {
	Notes         int64  `json:"notes"`
	Instructions  int64  `json:"instructions"`
	ErrorPatterns int64  `json:"error_patterns"`
	Todos         int64  `json:"todos"`
	Snapshots     int64  `json:"snapshots"`
	Embeddings    int64  `json:"embeddings"`
	EmbeddingSvc  string `json:"embedding_service"`
}

// GetStatus returns record counts for a scope plus the embedding service
// availability state.
func (e *Engine) GetStatus(ctx context.Context, projectID string) (Status, error) {
	s := Status{EmbeddingSvc: embeddings.StateUnknown.String()}
	if e.gateway != nil {
		s.EmbeddingSvc = e.gateway.State().String()
	}

	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&database.Note{}, &s.Notes},
		{&database.Instruction{}, &s.Instructions},
		{&database.ErrorPattern{}, &s.ErrorPatterns},
		{&database.Todo{}, &s.Todos},
		{&database.Snapshot{}, &s.Snapshots},
		{&database.EmbeddingRecord{}, &s.Embeddings},
	}
	for _, c := range counts {
		if err := e.db.WithContext(ctx).Model(c.model).Where("project_id = ?", projectID).Count(c.dst).Error; err != nil {
			return s, fmt.Errorf("failed to count records: %w", err)
		}
	}
	return s, nil
}

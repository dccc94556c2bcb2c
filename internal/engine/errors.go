// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cortexmemory/cortex-mcp/internal/database"
	"github.com/cortexmemory/cortex-mcp/internal/similarity"
)

// ErrorInput is one observed error occurrence.
type ErrorInput struct {
	ErrorMessage   string
	ErrorType      string
	RootCause      string
	Resolution     string
	AttemptedFixes []string
	FilePaths      []string
	Tags           []string
}

// LogError records an error occurrence. A message similar to an existing
// pattern in scope (error text varies across occurrences, so the threshold
// is looser than for notes)
// merges into it: the occurrence count grows, attempted fixes and tags
// accumulate as a set union, and root cause / resolution / file paths follow coalesce
// semantics, so a value once learned is never clobbered by a later empty
// field. When this call supplied a resolution, the embedding text is
// re-derived from message, cause and resolution and overwritten in place,
// keeping exactly one embedding per pattern however often it recurs.
func (e *Engine) LogError(ctx context.Context, projectID string, in ErrorInput) (WriteResult, error) {
	if in.ErrorMessage == "" {
		return WriteResult{}, fmt.Errorf("error message is required")
	}

	match, found := e.resolver.FindMatch(ctx, e.db, similarity.MatchQuery{
		ProjectID:    projectID,
		Kind:         database.KindError,
		Discriminant: in.ErrorType,
		Text:         in.ErrorMessage,
		Threshold:    e.thresholds.Error,
	})

	if found {
		return e.mergeError(ctx, projectID, match.ID, in)
	}

	pattern := database.ErrorPattern{
		ID:              uuid.NewString(),
		ProjectID:       projectID,
		ErrorMessage:    in.ErrorMessage,
		ErrorType:       in.ErrorType,
		RootCause:       in.RootCause,
		Resolution:      in.Resolution,
		AttemptedFixes:  in.AttemptedFixes,
		FilePaths:       in.FilePaths,
		OccurrenceCount: 1,
		Tags:            in.Tags,
		LastSeenAt:      time.Now(),
	}
	if err := e.db.WithContext(ctx).Create(&pattern).Error; err != nil {
		return WriteResult{}, fmt.Errorf("failed to create error pattern: %w", err)
	}

	e.upsertEmbedding(ctx, projectID, database.KindError, pattern.ID, database.ContentTypeError,
		errorEmbeddingText(pattern.ErrorMessage, pattern.RootCause, pattern.Resolution), in.Tags)
	return WriteResult{ID: pattern.ID}, nil
}

// mergeError folds a new occurrence into an existing pattern.
func (e *Engine) mergeError(ctx context.Context, projectID, id string, in ErrorInput) (WriteResult, error) {
	var existing database.ErrorPattern
	if err := e.db.WithContext(ctx).First(&existing, "id = ?", id).Error; err != nil {
		return WriteResult{}, fmt.Errorf("failed to load matched error pattern: %w", err)
	}

	mergedTags := existing.Tags.Union(in.Tags)
	updates := map[string]interface{}{
		"occurrence_count": gorm.Expr("occurrence_count + 1"),
		"attempted_fixes":  existing.AttemptedFixes.Union(in.AttemptedFixes),
		"last_seen_at":     time.Now(),
	}
	if len(in.Tags) > 0 {
		updates["tags"] = mergedTags
	}
	if in.RootCause != "" {
		updates["root_cause"] = in.RootCause
	}
	if in.Resolution != "" {
		updates["resolution"] = in.Resolution
	}
	if len(in.FilePaths) > 0 {
		updates["file_paths"] = existing.FilePaths.Union(in.FilePaths)
	}

	err := e.db.WithContext(ctx).Model(&database.ErrorPattern{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to merge error pattern: %w", err)
	}

	e.logger.Debug().Str("error_id", id).Int("occurrences", existing.OccurrenceCount+1).
		Msg("Error occurrence merged into existing pattern")

	// A resolution arriving on this call changes what the pattern means, so
	// the embedding text is rebuilt. Otherwise the existing embedding still
	// describes the pattern and stays as is.
	if in.Resolution != "" {
		rootCause := existing.RootCause
		if in.RootCause != "" {
			rootCause = in.RootCause
		}
		e.upsertEmbedding(ctx, projectID, database.KindError, id, database.ContentTypeError,
			errorEmbeddingText(existing.ErrorMessage, rootCause, in.Resolution), mergedTags)
	}

	return WriteResult{ID: id, Deduplicated: true}, nil
}

// errorEmbeddingText derives the semantic-index text of an error pattern.
func errorEmbeddingText(message, rootCause, resolution string) string {
	parts := []string{message}
	if rootCause != "" {
		parts = append(parts, "Cause: "+rootCause)
	}
	if resolution != "" {
		parts = append(parts, "Resolution: "+resolution)
	}
	return strings.Join(parts, "\n")
}

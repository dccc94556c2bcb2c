// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cortexmemory/cortex-mcp/internal/database"
	"github.com/cortexmemory/cortex-mcp/internal/similarity"
)

// SaveNote inserts a note or merges it into an existing one. A note that
// restates an existing note in the same scope and category (above the note
// threshold) overwrites the matched record's content and tags and refreshes
// its timestamp; the merged note is then re-embedded since its text changed.
func (e *Engine) SaveNote(ctx context.Context, projectID, content, category string, tags []string) (WriteResult, error) {
	if content == "" {
		return WriteResult{}, fmt.Errorf("note content is required")
	}
	if category == "" {
		category = "general"
	}

	match, found := e.resolver.FindMatch(ctx, e.db, similarity.MatchQuery{
		ProjectID:    projectID,
		Kind:         database.KindNote,
		Discriminant: category,
		Text:         content,
		Threshold:    e.thresholds.Note,
	})

	if found {
		updates := map[string]interface{}{
			"content":    content,
			"tags":       database.StringList(tags),
			"updated_at": time.Now(),
		}
		err := e.db.WithContext(ctx).Model(&database.Note{}).
			Where("id = ?", match.ID).
			Updates(updates).Error
		if err != nil {
			return WriteResult{}, fmt.Errorf("failed to merge note: %w", err)
		}

		e.logger.Debug().Str("note_id", match.ID).Float64("score", match.Score).
			Msg("Note deduplicated into existing record")

		e.upsertEmbedding(ctx, projectID, database.KindNote, match.ID, category, content, tags)
		return WriteResult{ID: match.ID, Deduplicated: true}, nil
	}

	note := database.Note{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Content:   content,
		Category:  category,
		Tags:      tags,
	}
	if err := e.db.WithContext(ctx).Create(&note).Error; err != nil {
		return WriteResult{}, fmt.Errorf("failed to create note: %w", err)
	}

	e.upsertEmbedding(ctx, projectID, database.KindNote, note.ID, category, content, tags)
	return WriteResult{ID: note.ID}, nil
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cortexmemory/cortex-mcp/internal/database"
)

// SnapshotInput is one point-in-time session record.
type SnapshotInput struct {
	Summary       string
	ActiveTask    string
	NextSteps     string
	OpenQuestions string
	Tags          []string
}

// SaveSnapshot inserts a session snapshot. Snapshots are never merged: each
// one is a distinct point in time. Every non-empty structured field gets its
// own embedding record (distinct session_* content types), and those are not
// deduplicated against each other.
func (e *Engine) SaveSnapshot(ctx context.Context, projectID string, in SnapshotInput) (WriteResult, error) {
	if in.Summary == "" {
		return WriteResult{}, fmt.Errorf("snapshot summary is required")
	}

	snapshot := database.Snapshot{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		Summary:       in.Summary,
		ActiveTask:    in.ActiveTask,
		NextSteps:     in.NextSteps,
		OpenQuestions: in.OpenQuestions,
		Tags:          in.Tags,
	}
	if err := e.db.WithContext(ctx).Create(&snapshot).Error; err != nil {
		return WriteResult{}, fmt.Errorf("failed to create snapshot: %w", err)
	}

	fields := []struct {
		suffix string
		text   string
	}{
		{"summary", in.Summary},
		{"active_task", in.ActiveTask},
		{"next_steps", in.NextSteps},
		{"open_questions", in.OpenQuestions},
	}
	for _, f := range fields {
		if f.text == "" {
			continue
		}
		e.upsertEmbedding(ctx, projectID, database.KindSnapshot, snapshot.ID,
			database.ContentTypeSessionPrefix+f.suffix, f.text, in.Tags)
	}

	return WriteResult{ID: snapshot.ID}, nil
}

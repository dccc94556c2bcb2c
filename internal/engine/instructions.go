// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cortexmemory/cortex-mcp/internal/database"
	"github.com/cortexmemory/cortex-mcp/internal/similarity"
)

// AddInstruction inserts a standing directive, unless an equivalent one
// already exists in scope. An instruction is a standing rule rather than
// evolving text, so on a match the existing record wins completely: no
// content update, no tag or priority refresh, no re-embedding. The caller
// just learns the duplicate's id.
func (e *Engine) AddInstruction(ctx context.Context, projectID, content string, priority int, tags []string) (WriteResult, error) {
	if content == "" {
		return WriteResult{}, fmt.Errorf("instruction content is required")
	}

	match, found := e.resolver.FindMatch(ctx, e.db, similarity.MatchQuery{
		ProjectID: projectID,
		Kind:      database.KindInstruction,
		Text:      content,
		Threshold: e.thresholds.Instruction,
	})

	if found {
		e.logger.Debug().Str("instruction_id", match.ID).Float64("score", match.Score).
			Msg("Instruction already exists, keeping original")
		return WriteResult{ID: match.ID, Deduplicated: true}, nil
	}

	instruction := database.Instruction{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Content:   content,
		Priority:  priority,
		Tags:      tags,
	}
	if err := e.db.WithContext(ctx).Create(&instruction).Error; err != nil {
		return WriteResult{}, fmt.Errorf("failed to create instruction: %w", err)
	}

	e.upsertEmbedding(ctx, projectID, database.KindInstruction, instruction.ID, database.ContentTypeInstruction, content, tags)
	return WriteResult{ID: instruction.ID}, nil
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package engine

import (
	"context"
	"fmt"

	"github.com/cortexmemory/cortex-mcp/internal/database"
)

// modelForKind maps a kind to its structured model.
func modelForKind(kind string) (interface{}, error) {
	switch kind {
	case database.KindNote:
		return &database.Note{}, nil
	case database.KindInstruction:
		return &database.Instruction{}, nil
	case database.KindError:
		return &database.ErrorPattern{}, nil
	case database.KindTodo:
		return &database.Todo{}, nil
	case database.KindSnapshot:
		return &database.Snapshot{}, nil
	default:
		return nil, fmt.Errorf("unknown memory kind: %s", kind)
	}
}

// Delete removes a memory item and its embedding records in the same logical
// operation, leaving no orphans. Returns ok=false when the id does not exist
// in scope; that is an explicit not-found result, not an error.
func (e *Engine) Delete(ctx context.Context, projectID, kind, id string) (bool, error) {
	model, err := modelForKind(kind)
	if err != nil {
		return false, err
	}

	tx := e.db.WithContext(ctx).Where("id = ? AND project_id = ?", id, projectID).Delete(model)
	if tx.Error != nil {
		return false, fmt.Errorf("failed to delete %s: %w", kind, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return false, nil
	}

	if err := e.deleteEmbeddings(ctx, kind, id); err != nil {
		return false, fmt.Errorf("failed to delete embedding records: %w", err)
	}
	return true, nil
}

// DeleteScope removes every memory item and embedding record in a project
// scope, including the brief.
func (e *Engine) DeleteScope(ctx context.Context, projectID string) error {
	models := []interface{}{
		&database.Note{},
		&database.Instruction{},
		&database.ErrorPattern{},
		&database.Todo{},
		&database.Snapshot{},
		&database.EmbeddingRecord{},
	}
	for _, model := range models {
		if err := e.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(model).Error; err != nil {
			return fmt.Errorf("failed to cascade delete scope: %w", err)
		}
	}
	if err := e.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&database.ProjectBrief{}).Error; err != nil {
		return fmt.Errorf("failed to delete project brief: %w", err)
	}
	return nil
}

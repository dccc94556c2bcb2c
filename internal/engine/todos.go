// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cortexmemory/cortex-mcp/internal/database"
)

// AddTodo records a task item. Todos are not deduplicated; the same task can
// legitimately be re-added after completion.
func (e *Engine) AddTodo(ctx context.Context, projectID, content string, priority int, tags []string) (WriteResult, error) {
	if content == "" {
		return WriteResult{}, fmt.Errorf("todo content is required")
	}

	todo := database.Todo{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Content:   content,
		Status:    database.TodoPending,
		Priority:  priority,
		Tags:      tags,
	}
	if err := e.db.WithContext(ctx).Create(&todo).Error; err != nil {
		return WriteResult{}, fmt.Errorf("failed to create todo: %w", err)
	}

	e.upsertEmbedding(ctx, projectID, database.KindTodo, todo.ID, database.ContentTypeTask, content, tags)
	return WriteResult{ID: todo.ID}, nil
}

// UpdateTodo changes a todo's status and optionally its content. Returns
// ok=false when the id does not exist in scope (not an error). A content
// change re-derives the embedding in the same logical operation.
func (e *Engine) UpdateTodo(ctx context.Context, projectID, id, status, content string) (bool, error) {
	var todo database.Todo
	err := e.db.WithContext(ctx).First(&todo, "id = ? AND project_id = ?", id, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load todo: %w", err)
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if status != "" {
		switch status {
		case database.TodoPending, database.TodoInProgress, database.TodoDone:
			updates["status"] = status
		default:
			return false, fmt.Errorf("unknown todo status: %s", status)
		}
	}
	contentChanged := content != "" && content != todo.Content
	if contentChanged {
		updates["content"] = content
	}

	if err := e.db.WithContext(ctx).Model(&database.Todo{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return false, fmt.Errorf("failed to update todo: %w", err)
	}

	if contentChanged {
		e.upsertEmbedding(ctx, projectID, database.KindTodo, id, database.ContentTypeTask, content, todo.Tags)
	}
	return true, nil
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cortexmemory/cortex-mcp/internal/database"
)

// BriefInput carries the structured fields of a project brief.
type BriefInput struct {
	ProjectName         string
	TechStack           string
	ModuleMap           string
	Conventions         string
	CriticalConstraints string
	EntryPoints         string
}

// UpsertBrief writes the singleton per-project brief as one atomic
// insert-or-update keyed on project_id, so concurrent writers cannot race a
// read-then-write pair. Each field keeps its existing value when the
// incoming one is empty (COALESCE over NULLIF in the conflict assignments).
// The merged brief text is then re-embedded.
func (e *Engine) UpsertBrief(ctx context.Context, projectID string, in BriefInput) (WriteResult, error) {
	if projectID == "" {
		return WriteResult{}, fmt.Errorf("project id is required")
	}

	now := time.Now()
	brief := database.ProjectBrief{
		ProjectID:           projectID,
		ProjectName:         in.ProjectName,
		TechStack:           in.TechStack,
		ModuleMap:           in.ModuleMap,
		Conventions:         in.Conventions,
		CriticalConstraints: in.CriticalConstraints,
		EntryPoints:         in.EntryPoints,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	coalesce := func(column string) clause.Assignment {
		return clause.Assignment{
			Column: clause.Column{Name: column},
			Value:  gorm.Expr("COALESCE(NULLIF(excluded." + column + ", ''), project_briefs." + column + ")"),
		}
	}
	assignments := clause.Set{
		coalesce("project_name"),
		coalesce("tech_stack"),
		coalesce("module_map"),
		coalesce("conventions"),
		coalesce("critical_constraints"),
		coalesce("entry_points"),
		{Column: clause.Column{Name: "updated_at"}, Value: now},
	}

	err := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}},
		DoUpdates: assignments,
	}).Create(&brief).Error
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to upsert project brief: %w", err)
	}

	// Re-read for the merged text; the upsert itself stays the single atomic
	// write, this read only feeds the derived embedding.
	var merged database.ProjectBrief
	if err := e.db.WithContext(ctx).First(&merged, "project_id = ?", projectID).Error; err != nil {
		return WriteResult{}, fmt.Errorf("failed to load merged brief: %w", err)
	}

	e.upsertEmbedding(ctx, projectID, database.KindBrief, projectID, database.ContentTypeBrief,
		merged.ContentText(), nil)
	return WriteResult{ID: projectID}, nil
}

// GetBrief returns the brief for a scope, or nil when none has been set.
func (e *Engine) GetBrief(ctx context.Context, projectID string) (*database.ProjectBrief, error) {
	var brief database.ProjectBrief
	err := e.db.WithContext(ctx).First(&brief, "project_id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project brief: %w", err)
	}
	return &brief, nil
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Memory kinds. Every structured record belongs to exactly one kind, which
// determines its merge policy on the write path.
const (
	KindNote        = "note"
	KindInstruction = "instruction"
	KindError       = "error_pattern"
	KindTodo        = "todo"
	KindSnapshot    = "snapshot"
	KindBrief       = "brief"
)

// Content types for derived embedding records. Notes use their category as
// content type; snapshots emit one record per structured field.
const (
	ContentTypeInstruction   = "instruction"
	ContentTypeError         = "error"
	ContentTypeTask          = "task"
	ContentTypeBrief         = "brief"
	ContentTypeSessionPrefix = "session_"
)

// StringList is a JSON-encoded list of strings stored in a single TEXT
// column. Portable across sqlite and postgres, unlike array columns.
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to encode string list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported string list source type %T", value)
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// Contains reports whether the list holds the given element.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// Union returns the set union of two lists, preserving the order of first
// appearance. Used by the error-pattern merge policy for attempted fixes.
func (l StringList) Union(other StringList) StringList {
	seen := make(map[string]bool, len(l)+len(other))
	result := make(StringList, 0, len(l)+len(other))
	for _, list := range []StringList{l, other} {
		for _, v := range list {
			if !seen[v] {
				seen[v] = true
				result = append(result, v)
			}
		}
	}
	return result
}

// Note is a freeform memory item grouped by category within a project.
// Duplicate notes (by text similarity within scope+category) are merged on
// write: the newer content overwrites the matched record.
type Note struct {
	ID        string     `gorm:"primaryKey" json:"id"`
	ProjectID string     `gorm:"index:idx_notes_scope;not null" json:"project_id"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	Category  string     `gorm:"index:idx_notes_scope;not null;default:general" json:"category"`
	Tags      StringList `gorm:"type:text" json:"tags"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Note
func (Note) TableName() string {
	return "notes"
}

// Instruction is a standing directive for the assistant. On a duplicate
// write the existing instruction wins unchanged.
type Instruction struct {
	ID        string     `gorm:"primaryKey" json:"id"`
	ProjectID string     `gorm:"index;not null" json:"project_id"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	Priority  int        `gorm:"default:0" json:"priority"`
	Tags      StringList `gorm:"type:text" json:"tags"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Instruction
func (Instruction) TableName() string {
	return "instructions"
}

// ErrorPattern is a recurring error diagnosis. Repeat occurrences merge into
// the existing record: the occurrence count grows, attempted fixes accumulate
// as a set, and root cause / resolution follow coalesce semantics (a non-empty
// incoming value wins, an empty one never clobbers).
type ErrorPattern struct {
	ID              string     `gorm:"primaryKey" json:"id"`
	ProjectID       string     `gorm:"index:idx_errors_scope;not null" json:"project_id"`
	ErrorMessage    string     `gorm:"type:text;not null" json:"error_message"`
	ErrorType       string     `gorm:"index:idx_errors_scope" json:"error_type"`
	RootCause       string     `gorm:"type:text" json:"root_cause"`
	Resolution      string     `gorm:"type:text" json:"resolution"`
	AttemptedFixes  StringList `gorm:"type:text" json:"attempted_fixes"`
	FilePaths       StringList `gorm:"type:text" json:"file_paths"`
	OccurrenceCount int        `gorm:"default:1" json:"occurrence_count"`
	Tags            StringList `gorm:"type:text" json:"tags"`
	CreatedAt       time.Time  `json:"created_at"`
	LastSeenAt      time.Time  `json:"last_seen_at"`
}

// TableName specifies the table name for ErrorPattern
func (ErrorPattern) TableName() string {
	return "error_patterns"
}

// Todo statuses
const (
	TodoPending    = "pending"
	TodoInProgress = "in_progress"
	TodoDone       = "done"
)

// Todo is a task item whose content feeds the semantic index.
type Todo struct {
	ID        string     `gorm:"primaryKey" json:"id"`
	ProjectID string     `gorm:"index;not null" json:"project_id"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	Status    string     `gorm:"not null;default:pending" json:"status"`
	Priority  int        `gorm:"default:0" json:"priority"`
	Tags      StringList `gorm:"type:text" json:"tags"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Todo
func (Todo) TableName() string {
	return "todos"
}

// Snapshot is a point-in-time record of a working session. Snapshots are
// never merged; each insert stands alone and each non-empty structured field
// gets its own embedding record.
type Snapshot struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	ProjectID     string     `gorm:"index;not null" json:"project_id"`
	Summary       string     `gorm:"type:text;not null" json:"summary"`
	ActiveTask    string     `gorm:"type:text" json:"active_task"`
	NextSteps     string     `gorm:"type:text" json:"next_steps"`
	OpenQuestions string     `gorm:"type:text" json:"open_questions"`
	Tags          StringList `gorm:"type:text" json:"tags"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TableName specifies the table name for Snapshot
func (Snapshot) TableName() string {
	return "snapshots"
}

// ProjectBrief is the singleton per-project summary (one row per scope,
// keyed by project id). Writes go through an atomic upsert, never a
// read-then-write pair.
type ProjectBrief struct {
	ProjectID           string    `gorm:"primaryKey" json:"project_id"`
	ProjectName         string    `json:"project_name"`
	TechStack           string    `gorm:"type:text" json:"tech_stack"`
	ModuleMap           string    `gorm:"type:text" json:"module_map"`
	Conventions         string    `gorm:"type:text" json:"conventions"`
	CriticalConstraints string    `gorm:"type:text" json:"critical_constraints"`
	EntryPoints         string    `gorm:"type:text" json:"entry_points"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName specifies the table name for ProjectBrief
func (ProjectBrief) TableName() string {
	return "project_briefs"
}

// ContentText returns the flattened text of the brief used for embedding and
// keyword search.
func (b *ProjectBrief) ContentText() string {
	parts := []struct{ label, value string }{
		{"Project", b.ProjectName},
		{"Tech stack", b.TechStack},
		{"Modules", b.ModuleMap},
		{"Conventions", b.Conventions},
		{"Constraints", b.CriticalConstraints},
		{"Entry points", b.EntryPoints},
	}
	text := ""
	for _, p := range parts {
		if p.value == "" {
			continue
		}
		if text != "" {
			text += "\n"
		}
		text += p.label + ": " + p.value
	}
	return text
}

// EmbeddingRecord is the derived semantic-index row for a memory item. The
// row is written even when the embedding service was unreachable, so keyword
// retrieval keeps working; Vector stays nil until a later write succeeds.
//
// At most one record exists per (source_kind, source_id, content_type).
// Snapshots emit several records (one per structured field, each with a
// distinct session_* content type); every other kind is a singleton.
type EmbeddingRecord struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ProjectID   string     `gorm:"index;not null" json:"project_id"`
	SourceKind  string     `gorm:"uniqueIndex:idx_embeddings_source;not null" json:"source_kind"`
	SourceID    string     `gorm:"uniqueIndex:idx_embeddings_source;not null" json:"source_id"`
	ContentType string     `gorm:"uniqueIndex:idx_embeddings_source;index;not null" json:"content_type"`
	Text        string     `gorm:"type:text;not null" json:"text"`
	Vector      []byte     `json:"-"`
	Tags        StringList `gorm:"type:text" json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for EmbeddingRecord
func (EmbeddingRecord) TableName() string {
	return "embedding_records"
}

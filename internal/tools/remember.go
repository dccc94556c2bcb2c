// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cortexmemory/cortex-mcp/internal/engine"
)

// NewSaveNoteTool creates the cortex_save_note tool definition
func NewSaveNoteTool() mcp.Tool {
	return mcp.NewTool("cortex_save_note",
		mcp.WithDescription("Save a note (decision, learning, reference) to project memory. A note restating an existing note in the same category is merged into it instead of creating a duplicate."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The note text"),
		),
		mcp.WithString("category",
			mcp.Description("Grouping key: decision, reference, debug, general (default: general)"),
		),
		mcp.WithArray("tags",
			mcp.Description("Labels for filtering"),
		),
		mcp.WithString("project_id",
			mcp.Description("Project scope (default: 'default')"),
		),
	)
}

// SaveNoteHandler handles the cortex_save_note tool
func SaveNoteHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		category := request.GetString("category", "general")
		tags := request.GetStringSlice("tags", nil)

		result, err := ctx.Engine.SaveNote(c, projectID(request), content, category, tags)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to save note: %v", err)), nil
		}
		return jsonResult(result), nil
	}
}

// NewAddInstructionTool creates the cortex_add_instruction tool definition
func NewAddInstructionTool() mcp.Tool {
	return mcp.NewTool("cortex_add_instruction",
		mcp.WithDescription("Add a standing instruction (directive) to project memory. If an equivalent instruction already exists, the existing one is kept unchanged and its id returned."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The instruction text"),
		),
		mcp.WithNumber("priority",
			mcp.Description("Higher numbers surface first (default: 0)"),
		),
		mcp.WithArray("tags",
			mcp.Description("Labels for filtering"),
		),
		mcp.WithString("project_id",
			mcp.Description("Project scope (default: 'default')"),
		),
	)
}

// AddInstructionHandler handles the cortex_add_instruction tool
func AddInstructionHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		priority := int(request.GetFloat("priority", 0))
		tags := request.GetStringSlice("tags", nil)

		result, err := ctx.Engine.AddInstruction(c, projectID(request), content, priority, tags)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to add instruction: %v", err)), nil
		}
		return jsonResult(result), nil
	}
}

// NewLogErrorTool creates the cortex_log_error tool definition
func NewLogErrorTool() mcp.Tool {
	return mcp.NewTool("cortex_log_error",
		mcp.WithDescription("Log an error occurrence. Recurrences of a similar error merge into one pattern: occurrence count grows, attempted fixes accumulate, and root cause / resolution are kept once learned."),
		mcp.WithString("error_message",
			mcp.Required(),
			mcp.Description("The error message observed"),
		),
		mcp.WithString("error_type",
			mcp.Description("Classification, e.g. 'build', 'runtime', 'test'"),
		),
		mcp.WithString("root_cause",
			mcp.Description("Diagnosed root cause, if known"),
		),
		mcp.WithString("resolution",
			mcp.Description("What fixed it, if resolved"),
		),
		mcp.WithArray("attempted_fixes",
			mcp.Description("Fixes tried this occurrence"),
		),
		mcp.WithArray("file_paths",
			mcp.Description("Files involved"),
		),
		mcp.WithArray("tags",
			mcp.Description("Labels for filtering"),
		),
		mcp.WithString("project_id",
			mcp.Description("Project scope (default: 'default')"),
		),
	)
}

// LogErrorHandler handles the cortex_log_error tool
func LogErrorHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := request.RequireString("error_message")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		input := engine.ErrorInput{
			ErrorMessage:   message,
			ErrorType:      request.GetString("error_type", ""),
			RootCause:      request.GetString("root_cause", ""),
			Resolution:     request.GetString("resolution", ""),
			AttemptedFixes: request.GetStringSlice("attempted_fixes", nil),
			FilePaths:      request.GetStringSlice("file_paths", nil),
			Tags:           request.GetStringSlice("tags", nil),
		}

		result, err := ctx.Engine.LogError(c, projectID(request), input)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to log error: %v", err)), nil
		}
		return jsonResult(result), nil
	}
}

// NewAddTodoTool creates the cortex_add_todo tool definition
func NewAddTodoTool() mcp.Tool {
	return mcp.NewTool("cortex_add_todo",
		mcp.WithDescription("Add a task item to project memory."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The task description"),
		),
		mcp.WithNumber("priority",
			mcp.Description("Higher numbers surface first (default: 0)"),
		),
		mcp.WithArray("tags",
			mcp.Description("Labels for filtering"),
		),
		mcp.WithString("project_id",
			mcp.Description("Project scope (default: 'default')"),
		),
	)
}

// AddTodoHandler handles the cortex_add_todo tool
func AddTodoHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		priority := int(request.GetFloat("priority", 0))
		tags := request.GetStringSlice("tags", nil)

		result, err := ctx.Engine.AddTodo(c, projectID(request), content, priority, tags)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to add todo: %v", err)), nil
		}
		return jsonResult(result), nil
	}
}

// NewUpdateTodoTool creates the cortex_update_todo tool definition
func NewUpdateTodoTool() mcp.Tool {
	return mcp.NewTool("cortex_update_todo",
		mcp.WithDescription("Update a task's status or content."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The todo id"),
		),
		mcp.WithString("status",
			mcp.Description("New status: pending, in_progress or done"),
		),
		mcp.WithString("content",
			mcp.Description("Replacement task text"),
		),
		mcp.WithString("project_id",
			mcp.Description("Project scope (default: 'default')"),
		),
	)
}

// UpdateTodoHandler handles the cortex_update_todo tool
func UpdateTodoHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		ok, err := ctx.Engine.UpdateTodo(c, projectID(request), id,
			request.GetString("status", ""), request.GetString("content", ""))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to update todo: %v", err)), nil
		}
		if !ok {
			return mcp.NewToolResultText(fmt.Sprintf("No todo found with id %s", id)), nil
		}
		return jsonResult(map[string]string{"id": id, "status": "updated"}), nil
	}
}

// NewSaveSnapshotTool creates the cortex_save_snapshot tool definition
func NewSaveSnapshotTool() mcp.Tool {
	return mcp.NewTool("cortex_save_snapshot",
		mcp.WithDescription("Save a point-in-time session snapshot. Snapshots are never merged; each call records a new one."),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("What happened this session"),
		),
		mcp.WithString("active_task",
			mcp.Description("What was being worked on"),
		),
		mcp.WithString("next_steps",
			mcp.Description("What to do next"),
		),
		mcp.WithString("open_questions",
			mcp.Description("Unresolved questions"),
		),
		mcp.WithArray("tags",
			mcp.Description("Labels for filtering"),
		),
		mcp.WithString("project_id",
			mcp.Description("Project scope (default: 'default')"),
		),
	)
}

// SaveSnapshotHandler handles the cortex_save_snapshot tool
func SaveSnapshotHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summary, err := request.RequireString("summary")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		input := engine.SnapshotInput{
			Summary:       summary,
			ActiveTask:    request.GetString("active_task", ""),
			NextSteps:     request.GetString("next_steps", ""),
			OpenQuestions: request.GetString("open_questions", ""),
			Tags:          request.GetStringSlice("tags", nil),
		}

		result, err := ctx.Engine.SaveSnapshot(c, projectID(request), input)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to save snapshot: %v", err)), nil
		}
		return jsonResult(result), nil
	}
}

// NewSetBriefTool creates the cortex_set_brief tool definition
func NewSetBriefTool() mcp.Tool {
	return mcp.NewTool("cortex_set_brief",
		mcp.WithDescription("Set or update the project brief. One brief exists per project; fields omitted here keep their previous values."),
		mcp.WithString("project_name",
			mcp.Description("Human-readable project name"),
		),
		mcp.WithString("tech_stack",
			mcp.Description("Languages, frameworks, key dependencies"),
		),
		mcp.WithString("module_map",
			mcp.Description("Where things live in the codebase"),
		),
		mcp.WithString("conventions",
			mcp.Description("Coding conventions and patterns"),
		),
		mcp.WithString("critical_constraints",
			mcp.Description("Things that must not be broken"),
		),
		mcp.WithString("entry_points",
			mcp.Description("Build, run and test commands"),
		),
		mcp.WithString("project_id",
			mcp.Description("Project scope (default: 'default')"),
		),
	)
}

// SetBriefHandler handles the cortex_set_brief tool
func SetBriefHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input := engine.BriefInput{
			ProjectName:         request.GetString("project_name", ""),
			TechStack:           request.GetString("tech_stack", ""),
			ModuleMap:           request.GetString("module_map", ""),
			Conventions:         request.GetString("conventions", ""),
			CriticalConstraints: request.GetString("critical_constraints", ""),
			EntryPoints:         request.GetString("entry_points", ""),
		}

		result, err := ctx.Engine.UpsertBrief(c, projectID(request), input)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to set brief: %v", err)), nil
		}
		return jsonResult(result), nil
	}
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewForgetTool creates the cortex_forget tool definition
func NewForgetTool() mcp.Tool {
	return mcp.NewTool("cortex_forget",
		mcp.WithDescription("Delete a stored memory and its derived embeddings. With all_project=true, wipe every memory in the project scope."),
		mcp.WithString("kind",
			mcp.Description("Kind of record: note, instruction, error_pattern, todo or snapshot"),
		),
		mcp.WithString("id",
			mcp.Description("ID of the record to delete"),
		),
		mcp.WithBoolean("all_project",
			mcp.Description("Delete everything in the project scope instead of a single record"),
		),
		mcp.WithString("project_id",
			mcp.Description("Project scope (default: 'default')"),
		),
	)
}

// ForgetHandler handles the cortex_forget tool
func ForgetHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		scope := projectID(request)

		if request.GetBool("all_project", false) {
			if err := ctx.Engine.DeleteScope(c, scope); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to clear project: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Deleted all memories for project '%s'", scope)), nil
		}

		kind := request.GetString("kind", "")
		id := request.GetString("id", "")
		if kind == "" || id == "" {
			return mcp.NewToolResultError("kind and id are required unless all_project is true"), nil
		}

		deleted, err := ctx.Engine.Delete(c, scope, kind, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to delete: %v", err)), nil
		}
		if !deleted {
			return mcp.NewToolResultText(fmt.Sprintf("No %s with ID %s in project '%s'", kind, id, scope)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted %s %s", kind, id)), nil
	}
}

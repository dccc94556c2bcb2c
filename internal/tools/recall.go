// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cortexmemory/cortex-mcp/internal/search"
)

// NewSearchTool creates the cortex_search tool definition
func NewSearchTool() mcp.Tool {
	return mcp.NewTool("cortex_search",
		mcp.WithDescription("Search project memory. Hybrid mode (default) combines meaning-based and keyword matching; falls back to keyword-only automatically when the embedding service is unreachable."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What to look for"),
		),
		mcp.WithString("mode",
			mcp.Description("semantic, keyword or hybrid (default: hybrid)"),
		),
		mcp.WithString("content_type",
			mcp.Description("Restrict to one content type, e.g. 'decision', 'error', 'task', 'brief'"),
		),
		mcp.WithArray("tags",
			mcp.Description("Only return items carrying all of these tags"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
		mcp.WithString("project_id",
			mcp.Description("Project scope (default: 'default')"),
		),
	)
}

// SearchHandler handles the cortex_search tool
func SearchHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		results, err := ctx.Searcher.Search(c, search.Query{
			ProjectID:   projectID(request),
			Text:        query,
			Mode:        request.GetString("mode", search.ModeHybrid),
			ContentType: request.GetString("content_type", ""),
			Tags:        request.GetStringSlice("tags", nil),
			Limit:       int(request.GetFloat("limit", 10)),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		if len(results) == 0 {
			return mcp.NewToolResultText("No memories found."), nil
		}
		return jsonResult(results), nil
	}
}

// NewStatusTool creates the cortex_status tool definition
func NewStatusTool() mcp.Tool {
	return mcp.NewTool("cortex_status",
		mcp.WithDescription("Show stored memory counts for a project and whether the embedding service is reachable."),
		mcp.WithString("project_id",
			mcp.Description("Project scope (default: 'default')"),
		),
	)
}

// StatusHandler handles the cortex_status tool
func StatusHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, err := ctx.Engine.GetStatus(c, projectID(request))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get status: %v", err)), nil
		}
		return jsonResult(status), nil
	}
}

// NewGetBriefTool creates the cortex_get_brief tool definition
func NewGetBriefTool() mcp.Tool {
	return mcp.NewTool("cortex_get_brief",
		mcp.WithDescription("Fetch the project brief."),
		mcp.WithString("project_id",
			mcp.Description("Project scope (default: 'default')"),
		),
	)
}

// GetBriefHandler handles the cortex_get_brief tool
func GetBriefHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		brief, err := ctx.Engine.GetBrief(c, projectID(request))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get brief: %v", err)), nil
		}
		if brief == nil {
			return mcp.NewToolResultText("No brief set for this project."), nil
		}
		return jsonResult(brief), nil
	}
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package tools defines the MCP tool surface. Each tool is a thin wrapper:
// parameter parsing here, all policy in the engine and searcher.
package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cortexmemory/cortex-mcp/internal/engine"
	"github.com/cortexmemory/cortex-mcp/internal/search"
)

// DefaultProjectID is used when a tool call does not name a project scope.
const DefaultProjectID = "default"

// ToolContext holds shared dependencies for all tools
type ToolContext struct {
	Engine   *engine.Engine
	Searcher *search.Searcher
}

// NewToolContext creates a new tool context
func NewToolContext(eng *engine.Engine, searcher *search.Searcher) *ToolContext {
	return &ToolContext{Engine: eng, Searcher: searcher}
}

// projectID extracts the project scope from a request, defaulting to
// DefaultProjectID.
func projectID(request mcp.CallToolRequest) string {
	id := request.GetString("project_id", DefaultProjectID)
	if id == "" {
		return DefaultProjectID
	}
	return id
}

// jsonResult marshals a value as an indented JSON tool result.
func jsonResult(v interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to encode result: " + err.Error())
	}
	return mcp.NewToolResultText(string(data))
}

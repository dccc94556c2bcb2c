// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/cortexmemory/cortex-mcp/internal/config"
	"github.com/cortexmemory/cortex-mcp/internal/engine"
	"github.com/cortexmemory/cortex-mcp/internal/search"
	"github.com/cortexmemory/cortex-mcp/internal/tools"
)

// MCPServer wraps the mcp-go server with our configuration
type MCPServer struct {
	mcpServer *server.MCPServer
	config    *config.Config
}

// NewMCPServer creates a new MCP server instance and registers all tools
func NewMCPServer(cfg *config.Config, eng *engine.Engine, searcher *search.Searcher) (*MCPServer, error) {
	mcpServer := server.NewMCPServer(
		"Cortex",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &MCPServer{
		mcpServer: mcpServer,
		config:    cfg,
	}

	toolCtx := tools.NewToolContext(eng, searcher)

	// Write path
	mcpServer.AddTool(tools.NewSaveNoteTool(), tools.SaveNoteHandler(toolCtx))
	mcpServer.AddTool(tools.NewAddInstructionTool(), tools.AddInstructionHandler(toolCtx))
	mcpServer.AddTool(tools.NewLogErrorTool(), tools.LogErrorHandler(toolCtx))
	mcpServer.AddTool(tools.NewAddTodoTool(), tools.AddTodoHandler(toolCtx))
	mcpServer.AddTool(tools.NewUpdateTodoTool(), tools.UpdateTodoHandler(toolCtx))
	mcpServer.AddTool(tools.NewSaveSnapshotTool(), tools.SaveSnapshotHandler(toolCtx))
	mcpServer.AddTool(tools.NewSetBriefTool(), tools.SetBriefHandler(toolCtx))

	// Read path
	mcpServer.AddTool(tools.NewSearchTool(), tools.SearchHandler(toolCtx))
	mcpServer.AddTool(tools.NewGetBriefTool(), tools.GetBriefHandler(toolCtx))
	mcpServer.AddTool(tools.NewStatusTool(), tools.StatusHandler(toolCtx))

	// Lifecycle
	mcpServer.AddTool(tools.NewForgetTool(), tools.ForgetHandler(toolCtx))

	return srv, nil
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

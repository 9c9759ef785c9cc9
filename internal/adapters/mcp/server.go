// Package mcpadapter exposes knowledge-base search as an MCP tool so agent
// hosts can call the same routed retrieval the HTTP API serves.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
	"github.com/kirillkom/kb-orchestrator/internal/core/ports"
)

const searchToolName = "kb.search"

type Server struct {
	search ports.SearchService
	inner  *server.MCPServer
}

func NewServer(search ports.SearchService, version string) *Server {
	s := &Server{search: search}

	inner := server.NewMCPServer("kb-orchestrator", version, server.WithToolCapabilities(false))
	inner.AddTool(searchTool(), s.handleSearch)
	s.inner = inner
	return s
}

// ServeStdio blocks serving the MCP protocol over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.inner)
}

func searchTool() mcp.Tool {
	return mcp.NewTool(searchToolName,
		mcp.WithDescription("Search the indexed knowledge bases. Routes the query to a partition, retrieves passages and applies score and language filters."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question or search text."),
		),
		mcp.WithString("partitionId",
			mcp.Description("Force a partition (general or support) instead of signal-based routing."),
		),
		mcp.WithString("language",
			mcp.Description("Force a language code instead of detection (en, fr, de, zh-Hant)."),
		),
		mcp.WithNumber("topK",
			mcp.Description("Maximum number of passages to return."),
		),
		mcp.WithNumber("scoreFloor",
			mcp.Description("Minimum relevance score; passages without a score always pass."),
		),
	)
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var scoreFloor *float64
	if floor := req.GetFloat("scoreFloor", -1); floor >= 0 {
		scoreFloor = &floor
	}

	result, err := s.search.Search(ctx, domain.Query{
		Text:        query,
		PartitionID: domain.PartitionID(req.GetString("partitionId", "")),
		Language:    req.GetString("language", ""),
		TopK:        int(req.GetFloat("topK", 0)),
		ScoreFloor:  scoreFloor,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("kb.search: %v", err)), nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal search result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

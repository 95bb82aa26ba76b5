package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/Boardroom/internal/domain/pattern"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.corporateMemoryTool(),
		s.pitchTreeTool(),
	)
}

func (s *Server) corporateMemoryTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("corporate_memory",
		mcplib.WithDescription("Learned patterns from past campaigns, highest confidence first"),
		mcplib.WithNumber("limit",
			mcplib.Description(fmt.Sprintf("Maximum number of patterns (default %d)", pattern.DefaultLimit)),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleCorporateMemory,
	}
}

func (s *Server) pitchTreeTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_pitch_tree",
		mcplib.WithDescription("A root pitch and all of its revisions in revision order"),
		mcplib.WithString("post_id",
			mcplib.Required(),
			mcplib.Description("The root pitch ID"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handlePitchTree,
	}
}

func (s *Server) handleCorporateMemory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Memory == nil {
		return mcplib.NewToolResultError("memory reader not configured"), nil
	}
	limit := pattern.DefaultLimit
	if v, ok := req.GetArguments()["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	patterns, err := s.deps.Memory.Patterns(ctx, limit)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to read corporate memory", err), nil
	}
	data, err := json.Marshal(patterns)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal patterns", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handlePitchTree(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Trees == nil {
		return mcplib.NewToolResultError("tree reader not configured"), nil
	}
	postID, ok := req.GetArguments()["post_id"].(string)
	if !ok || postID == "" {
		return mcplib.NewToolResultError("post_id is required"), nil
	}
	tree, err := s.deps.Trees.Tree(ctx, postID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to get pitch tree %s", postID), err,
		), nil
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal pitch tree", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func toolResultJSON(text string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(text)
}

package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/Boardroom/internal/domain/pattern"
)

const memoryURI = "boardroom://memory"

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			memoryURI,
			"Corporate Memory",
			mcplib.WithResourceDescription("Top learned patterns from past campaigns"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleMemoryResource,
	)
}

func (s *Server) handleMemoryResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	text := `{"error":"memory reader not configured"}`
	if s.deps.Memory != nil {
		patterns, err := s.deps.Memory.Patterns(ctx, pattern.DefaultLimit)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(patterns)
		if err != nil {
			return nil, err
		}
		text = string(data)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     text,
		},
	}, nil
}

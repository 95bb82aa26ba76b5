// Package mcp exposes corporate memory and pitch trees to external agents
// over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/domain/pattern"
)

// MemoryReader reads the top learned patterns.
type MemoryReader interface {
	Patterns(ctx context.Context, limit int) ([]pattern.LearnedPattern, error)
}

// TreeReader reads a root pitch and all of its revisions.
type TreeReader interface {
	Tree(ctx context.Context, rootID string) ([]content.ContentRecord, error)
}

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  func() string // nil or empty disables auth
}

// ServerDeps are the read ports the tools call. Nil deps yield tool errors.
type ServerDeps struct {
	Memory MemoryReader
	Trees  TreeReader
}

// Server serves the MCP tools over streamable HTTP.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	httpSrv   *http.Server
}

// NewServer creates the MCP server and registers its tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithResourceCapabilities(false, true),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	handler := mcpserver.NewStreamableHTTPServer(s.mcpServer)
	s.httpSrv = &http.Server{
		Handler:           AuthMiddleware(s.apiKey, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server error", "error", err)
		}
	}()
	slog.Info("mcp server started", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the HTTP listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	slog.Info("mcp server stopping")
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) apiKey() string {
	if s.cfg.APIKey == nil {
		return ""
	}
	return s.cfg.APIKey()
}

// Package mcp implements the Model Context Protocol server for IdeaForge.
//
// The MCP server exposes the dashboard's research operations as MCP tools
// and resources, so MCP-compatible AI agents can start a run, follow its
// progress and read the resulting ideas over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/ideaforge/internal/history"
	"github.com/ashita-ai/ideaforge/internal/model"
	"github.com/ashita-ai/ideaforge/internal/ratelimit"
	"github.com/ashita-ai/ideaforge/internal/store"
)

// Actions is the slice of the dashboard the MCP surface drives.
type Actions interface {
	Store() *store.Store
	Connected() bool
	StartResearch(ctx context.Context, query string, sources []string, provider string) (*model.Run, error)
	CancelResearch(ctx context.Context) error
	LoadIdeas(ctx context.Context, skip, limit int) (*model.IdeaList, error)
}

// History is the optional local run log.
type History interface {
	RecentRuns(ctx context.Context, limit int) ([]history.RunRecord, error)
	IdeasForRun(ctx context.Context, runID string) ([]model.Idea, error)
}

// Server wraps the mcp-go server around the dashboard.
type Server struct {
	mcpServer      *mcpserver.MCPServer
	actions        Actions
	history        History
	defaultSources []string
	startLimiter   ratelimit.Limiter
	logger         *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHistory exposes the local run log through tools and resources.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// WithDefaultSources sets the sources used when a start call names none.
func WithDefaultSources(sources []string) Option {
	return func(s *Server) { s.defaultSources = append([]string(nil), sources...) }
}

// WithStartLimiter throttles ideaforge_start_research.
func WithStartLimiter(l ratelimit.Limiter) Option {
	return func(s *Server) { s.startLimiter = l }
}

// New creates and configures a new MCP server with all resources, tools and prompts.
func New(actions Actions, logger *slog.Logger, version string, opts ...Option) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		actions:      actions,
		startLimiter: ratelimit.NoopLimiter{},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"ideaforge",
		version,
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP over the given streams until ctx is cancelled or
// stdin is closed.
func (s *Server) ServeStdio(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	s.logger.Info("mcp: serving on stdio")
	return mcpserver.NewStdioServer(s.mcpServer).Listen(ctx, stdin, stdout)
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

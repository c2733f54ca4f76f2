package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const (
	currentRunURI  = "ideaforge://run/current"
	recentRunsURI  = "ideaforge://runs/recent"
	runURIPrefix   = "ideaforge://run/"
	runIdeasSuffix = "/ideas"
)

func (s *Server) registerResources() {
	// ideaforge://run/current: full snapshot of the run state.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			currentRunURI,
			"Current Run",
			mcplib.WithResourceDescription("Snapshot of the current research run: agents, token usage and delivered ideas"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleCurrentRun,
	)

	if s.history == nil {
		return
	}

	// ideaforge://runs/recent: the local run log.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			recentRunsURI,
			"Recent Runs",
			mcplib.WithResourceDescription("Research runs started from this machine, newest first"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRecentRunsResource,
	)

	// ideaforge://run/{id}/ideas: ideas recorded for a past run.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			"ideaforge://run/{id}/ideas",
			"Run Ideas",
			mcplib.WithTemplateDescription("Ideas recorded for a specific research run"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleRunIdeas,
	)
}

func (s *Server) handleCurrentRun(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	st := s.actions.Store().Snapshot()

	data, err := json.MarshalIndent(map[string]any{
		"connected":      s.actions.Connected(),
		"current_run":    st.CurrentRun,
		"agent_statuses": st.AgentStatuses,
		"ideas":          st.Ideas,
		"total_ideas":    st.TotalIdeas,
		"loading":        st.Loading,
		"error":          st.Error,
		"token_usage":    st.TokenUsage,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal current run: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      currentRunURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleRecentRunsResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	runs, err := s.history.RecentRuns(ctx, 20)
	if err != nil {
		return nil, fmt.Errorf("mcp: recent runs: %w", err)
	}

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal runs: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      recentRunsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleRunIdeas(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	runID, err := parseRunIdeasURI(uri)
	if err != nil {
		return nil, err
	}

	ideas, err := s.history.IdeasForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("mcp: run ideas: %w", err)
	}

	data, err := json.MarshalIndent(map[string]any{
		"run_id": runID,
		"ideas":  ideas,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal run ideas: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// parseRunIdeasURI extracts the run ID from ideaforge://run/{id}/ideas.
func parseRunIdeasURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, runURIPrefix) || !strings.HasSuffix(uri, runIdeasSuffix) ||
		len(uri) < len(runURIPrefix)+len(runIdeasSuffix) {
		return "", fmt.Errorf("mcp: invalid run ideas URI: %s", uri)
	}
	runID := uri[len(runURIPrefix) : len(uri)-len(runIdeasSuffix)]
	if runID == "" {
		return "", fmt.Errorf("mcp: invalid run ideas URI: empty run_id in %s", uri)
	}
	if strings.Contains(runID, "/") {
		return "", fmt.Errorf("mcp: invalid run ideas URI: %s", uri)
	}
	return runID, nil
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/ideaforge/internal/dashboard"
)

const (
	maxIdeasLimit = 100
	startLimitKey = "start_research"
)

func (s *Server) registerTools() {
	// ideaforge_start_research: kick off a multi-agent research run.
	s.mcpServer.AddTool(
		mcplib.NewTool("ideaforge_start_research",
			mcplib.WithDescription(`Start a research run that mines trend sources for business ideas.

WHEN TO USE: When you need fresh, scored business ideas for a topic. Starting
a run supersedes any run already in progress.

WHAT YOU GET BACK: the new run_id and the sources it will query. Progress is
pushed to IdeaForge in the background; call ideaforge_run_status to follow it
and ideaforge_list_ideas once it has finished.

EXAMPLE: query="AI tools for small business", sources="hackernews,reddit"`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("query",
				mcplib.Description("What to research, in plain language"),
				mcplib.Required(),
			),
			mcplib.WithString("sources",
				mcplib.Description("Comma-separated source agents, e.g. google_trends,hackernews,reddit. Defaults to the configured sources."),
			),
			mcplib.WithString("llm_provider",
				mcplib.Description("LLM provider for synthesis (groq, gemini, openai, ...). Defaults to the selected provider."),
			),
		),
		s.handleStartResearch,
	)

	// ideaforge_cancel_research: stop the active run.
	s.mcpServer.AddTool(
		mcplib.NewTool("ideaforge_cancel_research",
			mcplib.WithDescription("Cancel the research run currently in progress. Fails if no run has been started."),
			mcplib.WithDestructiveHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleCancelResearch,
	)

	// ideaforge_list_ideas: page through the stored ideas.
	s.mcpServer.AddTool(
		mcplib.NewTool("ideaforge_list_ideas",
			mcplib.WithDescription(`List business ideas, best first.

Without run_id this reads the ideas the backend currently holds. With run_id
it reads the ideas recorded locally for that past run.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("run_id",
				mcplib.Description("Optional: read a past run from the local history instead of the backend"),
			),
			mcplib.WithNumber("skip",
				mcplib.Description("Number of ideas to skip"),
				mcplib.Min(0),
				mcplib.DefaultNumber(0),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum number of ideas to return"),
				mcplib.Min(1),
				mcplib.Max(maxIdeasLimit),
				mcplib.DefaultNumber(20),
			),
		),
		s.handleListIdeas,
	)

	// ideaforge_run_status: progress of the current run.
	s.mcpServer.AddTool(
		mcplib.NewTool("ideaforge_run_status",
			mcplib.WithDescription(`Report the progress of the current research run: per-agent state,
token usage against the provider's rate limit, elapsed time and how many
ideas have arrived.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleRunStatus,
	)

	if s.history == nil {
		return
	}

	// ideaforge_recent_runs: the local run log.
	s.mcpServer.AddTool(
		mcplib.NewTool("ideaforge_recent_runs",
			mcplib.WithDescription("List research runs started from this machine, newest first."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum number of runs to return"),
				mcplib.Min(1),
				mcplib.Max(100),
				mcplib.DefaultNumber(10),
			),
		),
		s.handleRecentRuns,
	)
}

func (s *Server) handleStartResearch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query := strings.TrimSpace(request.GetString("query", ""))
	if query == "" {
		return errorResult("query is required"), nil
	}
	sources := splitList(request.GetString("sources", ""))
	if len(sources) == 0 {
		sources = s.defaultSources
	}
	provider := request.GetString("llm_provider", "")

	ok, retryAfter, err := s.startLimiter.Allow(ctx, startLimitKey)
	if err != nil {
		s.logger.Warn("mcp: start limiter failed, allowing", "error", err)
	} else if !ok {
		return errorResult(fmt.Sprintf("too many research runs started; retry in %s", retryAfter.Round(time.Second))), nil
	}

	var superseded string
	if prev := s.actions.Store().Snapshot(); prev.Loading && prev.CurrentRun != nil {
		superseded = prev.CurrentRun.RunID
	}

	run, err := s.actions.StartResearch(ctx, query, sources, provider)
	switch {
	case errors.Is(err, dashboard.ErrEmptyQuery):
		return errorResult("query is required"), nil
	case errors.Is(err, dashboard.ErrNoSources):
		return errorResult("at least one source is required"), nil
	case err != nil:
		return errorResult(fmt.Sprintf("failed to start research: %v", err)), nil
	}

	s.logger.Info("mcp: research started", "run_id", run.RunID, "sources", run.Sources)
	resp := map[string]any{
		"run_id":       run.RunID,
		"status":       run.Status,
		"query":        run.Query,
		"sources":      run.Sources,
		"llm_provider": run.LLMProvider,
	}
	if superseded != "" && superseded != run.RunID {
		resp["superseded_run_id"] = superseded
	}
	return jsonResult(resp)
}

func (s *Server) handleCancelResearch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	runID := s.actions.Store().CurrentRunID()
	if err := s.actions.CancelResearch(ctx); err != nil {
		if errors.Is(err, dashboard.ErrNoRun) {
			return errorResult("no research run to cancel"), nil
		}
		return errorResult(fmt.Sprintf("failed to cancel research: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"run_id":    runID,
		"cancelled": true,
	})
}

func (s *Server) handleListIdeas(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	skip := max(request.GetInt("skip", 0), 0)
	limit := request.GetInt("limit", 20)
	if limit < 1 || limit > maxIdeasLimit {
		return errorResult(fmt.Sprintf("limit must be between 1 and %d", maxIdeasLimit)), nil
	}

	if runID := request.GetString("run_id", ""); runID != "" {
		if s.history == nil {
			return errorResult("run history is not enabled"), nil
		}
		ideas, err := s.history.IdeasForRun(ctx, runID)
		if err != nil {
			return errorResult(fmt.Sprintf("failed to read run %s: %v", runID, err)), nil
		}
		total := len(ideas)
		ideas = ideas[min(skip, total):min(skip+limit, total)]
		return jsonResult(map[string]any{
			"run_id": runID,
			"ideas":  compactIdeas(ideas),
			"total":  total,
		})
	}

	list, err := s.actions.LoadIdeas(ctx, skip, limit)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list ideas: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"ideas": compactIdeas(list.Items),
		"total": list.Total,
	})
}

func (s *Server) handleRunStatus(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	st := s.actions.Store().Snapshot()
	return jsonResult(compactRunStatus(st, s.actions.Connected(), time.Now()))
}

func (s *Server) handleRecentRuns(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	limit := request.GetInt("limit", 10)
	runs, err := s.history.RecentRuns(ctx, limit)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to read run history: %v", err)), nil
	}
	out := make([]map[string]any, len(runs))
	for i, r := range runs {
		out[i] = compactRun(r)
	}
	return jsonResult(map[string]any{
		"runs":  out,
		"total": len(out),
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

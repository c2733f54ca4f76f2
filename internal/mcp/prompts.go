package mcp

import (
	"context"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	// research-brief: walks the agent through a full run for one topic.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("research-brief",
			mcplib.WithPromptDescription("Research a topic end to end and summarise the best business ideas"),
			mcplib.WithArgument("topic",
				mcplib.ArgumentDescription("What to research, e.g. \"AI tools for small business\""),
				mcplib.RequiredArgument(),
			),
			mcplib.WithArgument("sources",
				mcplib.ArgumentDescription("Optional comma-separated source agents"),
			),
		),
		s.handleResearchBriefPrompt,
	)

	// agent-setup: system prompt snippet describing the tools.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("agent-setup",
			mcplib.WithPromptDescription("System prompt snippet explaining the IdeaForge research workflow"),
		),
		s.handleAgentSetupPrompt,
	)
}

func (s *Server) handleResearchBriefPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	topic := strings.TrimSpace(request.Params.Arguments["topic"])
	if topic == "" {
		return nil, fmt.Errorf("topic argument is required")
	}
	sourcesArg := ""
	if sources := request.Params.Arguments["sources"]; sources != "" {
		sourcesArg = fmt.Sprintf(` and sources="%s"`, sources)
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Research brief for %q", topic),
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Produce a research brief on: %s

1. CALL ideaforge_start_research with query="%s"%s.

2. POLL ideaforge_run_status every few seconds until loading is false.
   - Report agents that failed; the run still completes without them.
   - If rate_status is "exceeded", mention that results may be thinner.

3. CALL ideaforge_list_ideas to read the ideas, best first.

4. SUMMARISE the top ideas: title, source, composite score, and one
   sentence on why it looks promising.`, topic, topic, sourcesArg),
				},
			},
		},
	}, nil
}

func (s *Server) handleAgentSetupPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	return &mcplib.GetPromptResult{
		Description: "IdeaForge research workflow for AI agents",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: `You have access to IdeaForge, which sends source agents (Google Trends,
Hacker News, Reddit, ...) to mine a topic and then scores the business ideas
an LLM synthesises from their findings.

## The Pattern: Start, Follow, Read

### Start
Call ideaforge_start_research with a plain-language query. Starting a new run
supersedes the previous one.

### Follow
Call ideaforge_run_status to see each agent's state, token usage and elapsed
time. The run is finished when loading is false.

### Read
Call ideaforge_list_ideas. Ideas are ordered best first; scores are in [0, 1]
and omitted when the backend has not scored a dimension.

## Available Tools

- ideaforge_start_research: Start a run (supersedes any active run)
- ideaforge_cancel_research: Stop the active run
- ideaforge_run_status: Progress of the current run
- ideaforge_list_ideas: Read ideas, or a past run's ideas with run_id
- ideaforge_recent_runs: Runs started from this machine (when history is on)`,
				},
			},
		},
	}, nil
}

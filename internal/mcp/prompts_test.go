package mcp

import (
	"context"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptText(t *testing.T, result *mcplib.GetPromptResult) string {
	t.Helper()
	require.Len(t, result.Messages, 1)
	assert.Equal(t, mcplib.RoleUser, result.Messages[0].Role)
	tc, ok := result.Messages[0].Content.(mcplib.TextContent)
	require.True(t, ok, "expected TextContent")
	return tc.Text
}

func TestResearchBriefPrompt(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleResearchBriefPrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{
			Name:      "research-brief",
			Arguments: map[string]string{"topic": "AI tools for small business", "sources": "reddit"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, result.Description, "AI tools for small business")

	text := promptText(t, result)
	assert.Contains(t, text, `query="AI tools for small business" and sources="reddit"`)
	assert.Contains(t, text, "ideaforge_run_status")
	assert.Contains(t, text, "ideaforge_list_ideas")
}

func TestResearchBriefPrompt_WithoutSources(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleResearchBriefPrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{
			Name:      "research-brief",
			Arguments: map[string]string{"topic": "pet care"},
		},
	})
	require.NoError(t, err)
	assert.NotContains(t, promptText(t, result), "sources=")
}

func TestResearchBriefPrompt_MissingTopic(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleResearchBriefPrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{
			Name:      "research-brief",
			Arguments: map[string]string{"topic": "  "},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic argument is required")
}

func TestAgentSetupPrompt(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleAgentSetupPrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{Name: "agent-setup"},
	})
	require.NoError(t, err)

	text := promptText(t, result)
	for _, tool := range []string{"ideaforge_start_research", "ideaforge_cancel_research", "ideaforge_run_status", "ideaforge_list_ideas"} {
		assert.Contains(t, text, tool)
	}
}

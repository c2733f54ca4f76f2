package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/ideaforge/internal/dashboard"
	"github.com/ashita-ai/ideaforge/internal/history"
	"github.com/ashita-ai/ideaforge/internal/model"
	"github.com/ashita-ai/ideaforge/internal/store"
	"github.com/ashita-ai/ideaforge/internal/testutil"
)

// fakeActions records calls and serves canned results over a real store.
type fakeActions struct {
	store     *store.Store
	connected bool

	startErr   error
	startCalls []startCall
	cancelErr  error
	cancels    int
	ideas      *model.IdeaList
	ideasErr   error
	ideasCalls [][2]int
}

type startCall struct {
	query    string
	sources  []string
	provider string
}

func (f *fakeActions) Store() *store.Store { return f.store }
func (f *fakeActions) Connected() bool     { return f.connected }

func (f *fakeActions) StartResearch(ctx context.Context, query string, sources []string, provider string) (*model.Run, error) {
	f.startCalls = append(f.startCalls, startCall{query, sources, provider})
	if f.startErr != nil {
		return nil, f.startErr
	}
	run := &model.Run{RunID: "run-2", Status: model.RunStatusStarted, Query: query, Sources: sources, LLMProvider: "groq"}
	f.store.SetCurrentRun(run)
	return run, nil
}

func (f *fakeActions) CancelResearch(ctx context.Context) error {
	f.cancels++
	return f.cancelErr
}

func (f *fakeActions) LoadIdeas(ctx context.Context, skip, limit int) (*model.IdeaList, error) {
	f.ideasCalls = append(f.ideasCalls, [2]int{skip, limit})
	if f.ideasErr != nil {
		return nil, f.ideasErr
	}
	return f.ideas, nil
}

type fakeHistory struct {
	runs  []history.RunRecord
	ideas map[string][]model.Idea
	err   error
}

func (f *fakeHistory) RecentRuns(ctx context.Context, limit int) ([]history.RunRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.runs[:min(limit, len(f.runs))], nil
}

func (f *fakeHistory) IdeasForRun(ctx context.Context, runID string) ([]model.Idea, error) {
	if f.err != nil {
		return nil, f.err
	}
	ideas, ok := f.ideas[runID]
	if !ok {
		return nil, history.ErrNotFound
	}
	return ideas, nil
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *fakeActions) {
	t.Helper()
	fa := &fakeActions{store: store.New(), connected: true}
	opts = append([]Option{WithDefaultSources([]string{"google_trends", "hackernews", "reddit"})}, opts...)
	return New(fa, testutil.TestLogger(), "test", opts...), fa
}

func callTool(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// parseToolText extracts the first TextContent text from a CallToolResult.
func parseToolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no TextContent found in tool result")
	return ""
}

func parseToolJSON(t *testing.T, result *mcplib.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, result.IsError, "unexpected tool error: %s", parseToolText(t, result))
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &m))
	return m
}

func ptr[T any](v T) *T { return &v }

func TestHandleStartResearch(t *testing.T) {
	s, fa := newTestServer(t)

	result, err := s.handleStartResearch(context.Background(), callTool("ideaforge_start_research", map[string]any{
		"query":        "  AI tools for small business ",
		"sources":      "hackernews, reddit,,",
		"llm_provider": "gemini",
	}))
	require.NoError(t, err)
	m := parseToolJSON(t, result)

	require.Len(t, fa.startCalls, 1)
	assert.Equal(t, "AI tools for small business", fa.startCalls[0].query)
	assert.Equal(t, []string{"hackernews", "reddit"}, fa.startCalls[0].sources)
	assert.Equal(t, "gemini", fa.startCalls[0].provider)
	assert.Equal(t, "run-2", m["run_id"])
	assert.Equal(t, "started", m["status"])
	_, superseded := m["superseded_run_id"]
	assert.False(t, superseded)
}

func TestHandleStartResearch_DefaultSources(t *testing.T) {
	s, fa := newTestServer(t)

	result, err := s.handleStartResearch(context.Background(), callTool("ideaforge_start_research", map[string]any{
		"query": "pet care",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, fa.startCalls, 1)
	assert.Equal(t, []string{"google_trends", "hackernews", "reddit"}, fa.startCalls[0].sources)
	assert.Empty(t, fa.startCalls[0].provider)
}

func TestHandleStartResearch_ReportsSupersededRun(t *testing.T) {
	s, fa := newTestServer(t)
	fa.store.SetCurrentRun(&model.Run{RunID: "run-1", Status: model.RunStatusStarted})
	fa.store.SetLoading(true)

	result, err := s.handleStartResearch(context.Background(), callTool("ideaforge_start_research", map[string]any{
		"query": "pet care",
	}))
	require.NoError(t, err)
	m := parseToolJSON(t, result)
	assert.Equal(t, "run-1", m["superseded_run_id"])
}

// fakeLimiter returns a fixed verdict.
type fakeLimiter struct {
	ok    bool
	retry time.Duration
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	f.keys = append(f.keys, key)
	return f.ok, f.retry, f.err
}

func TestHandleStartResearch_Throttled(t *testing.T) {
	lim := &fakeLimiter{ok: false, retry: 12400 * time.Millisecond}
	s, fa := newTestServer(t, WithStartLimiter(lim))

	result, err := s.handleStartResearch(context.Background(), callTool("ideaforge_start_research", map[string]any{
		"query": "pet care",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "too many research runs started; retry in 12s", parseToolText(t, result))
	assert.Empty(t, fa.startCalls)
	assert.Equal(t, []string{startLimitKey}, lim.keys)
}

func TestHandleStartResearch_LimiterErrorFailsOpen(t *testing.T) {
	lim := &fakeLimiter{err: errors.New("limiter down")}
	s, fa := newTestServer(t, WithStartLimiter(lim))

	result, err := s.handleStartResearch(context.Background(), callTool("ideaforge_start_research", map[string]any{
		"query": "pet care",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Len(t, fa.startCalls, 1)
}

func TestHandleStartResearch_MissingQueryNotThrottled(t *testing.T) {
	lim := &fakeLimiter{ok: false, retry: time.Minute}
	s, _ := newTestServer(t, WithStartLimiter(lim))

	result, err := s.handleStartResearch(context.Background(), callTool("ideaforge_start_research", map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "query is required", parseToolText(t, result))
	assert.Empty(t, lim.keys)
}

func TestHandleStartResearch_MissingQuery(t *testing.T) {
	s, fa := newTestServer(t)

	result, err := s.handleStartResearch(context.Background(), callTool("ideaforge_start_research", map[string]any{
		"query": "   ",
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "query is required")
	assert.Empty(t, fa.startCalls, "nothing should reach the dashboard")
}

func TestHandleStartResearch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"no sources", dashboard.ErrNoSources, "at least one source is required"},
		{"backend failure", errors.New("API error: 503 Service Unavailable"), "failed to start research: API error: 503"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fa := newTestServer(t)
			fa.startErr = tt.err

			result, err := s.handleStartResearch(context.Background(), callTool("ideaforge_start_research", map[string]any{
				"query": "pet care",
			}))
			require.NoError(t, err, "tool failures are reported in the result, not as protocol errors")
			require.True(t, result.IsError)
			assert.Contains(t, parseToolText(t, result), tt.wantMsg)
		})
	}
}

func TestHandleCancelResearch(t *testing.T) {
	s, fa := newTestServer(t)
	fa.store.SetCurrentRun(&model.Run{RunID: "run-1"})

	result, err := s.handleCancelResearch(context.Background(), callTool("ideaforge_cancel_research", nil))
	require.NoError(t, err)
	m := parseToolJSON(t, result)
	assert.Equal(t, "run-1", m["run_id"])
	assert.Equal(t, true, m["cancelled"])
	assert.Equal(t, 1, fa.cancels)
}

func TestHandleCancelResearch_NoRun(t *testing.T) {
	s, fa := newTestServer(t)
	fa.cancelErr = dashboard.ErrNoRun

	result, err := s.handleCancelResearch(context.Background(), callTool("ideaforge_cancel_research", nil))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Equal(t, "no research run to cancel", parseToolText(t, result))
}

func TestHandleListIdeas(t *testing.T) {
	s, fa := newTestServer(t)
	fa.ideas = &model.IdeaList{
		Items: []model.Idea{
			{ID: 7, Title: "Bookkeeping copilot", Source: "hackernews", CompositeScore: ptr(0.81234)},
			{ID: 8, Title: "Pet sitter marketplace", Source: "reddit"},
		},
		Total: 12,
	}

	result, err := s.handleListIdeas(context.Background(), callTool("ideaforge_list_ideas", map[string]any{
		"skip":  float64(10),
		"limit": float64(2),
	}))
	require.NoError(t, err)
	m := parseToolJSON(t, result)

	assert.Equal(t, [][2]int{{10, 2}}, fa.ideasCalls)
	assert.Equal(t, float64(12), m["total"])
	ideas := m["ideas"].([]any)
	require.Len(t, ideas, 2)
	first := ideas[0].(map[string]any)
	assert.Equal(t, "Bookkeeping copilot", first["title"])
	assert.Equal(t, 0.812, first["scores"].(map[string]any)["composite"])
	_, hasScores := ideas[1].(map[string]any)["scores"]
	assert.False(t, hasScores, "unscored ideas carry no scores object")
}

func TestHandleListIdeas_Defaults(t *testing.T) {
	s, fa := newTestServer(t)
	fa.ideas = &model.IdeaList{Items: []model.Idea{}}

	result, err := s.handleListIdeas(context.Background(), callTool("ideaforge_list_ideas", map[string]any{}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, [][2]int{{0, 20}}, fa.ideasCalls)
}

func TestHandleListIdeas_LimitOutOfRange(t *testing.T) {
	s, fa := newTestServer(t)

	result, err := s.handleListIdeas(context.Background(), callTool("ideaforge_list_ideas", map[string]any{
		"limit": float64(500),
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "limit must be between 1 and 100")
	assert.Empty(t, fa.ideasCalls)
}

func TestHandleListIdeas_BackendError(t *testing.T) {
	s, fa := newTestServer(t)
	fa.ideasErr = errors.New("connection refused")

	result, err := s.handleListIdeas(context.Background(), callTool("ideaforge_list_ideas", nil))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "failed to list ideas: connection refused")
}

func TestHandleListIdeas_FromHistory(t *testing.T) {
	h := &fakeHistory{ideas: map[string][]model.Idea{
		"run-1": {{ID: 1, Title: "a"}, {ID: 2, Title: "b"}, {ID: 3, Title: "c"}},
	}}
	s, fa := newTestServer(t, WithHistory(h))

	result, err := s.handleListIdeas(context.Background(), callTool("ideaforge_list_ideas", map[string]any{
		"run_id": "run-1",
		"skip":   float64(1),
		"limit":  float64(5),
	}))
	require.NoError(t, err)
	m := parseToolJSON(t, result)
	assert.Empty(t, fa.ideasCalls, "history reads never hit the backend")
	assert.Equal(t, float64(3), m["total"])
	ideas := m["ideas"].([]any)
	require.Len(t, ideas, 2)
	assert.Equal(t, "b", ideas[0].(map[string]any)["title"])

	// Skip past the end yields an empty page.
	result, err = s.handleListIdeas(context.Background(), callTool("ideaforge_list_ideas", map[string]any{
		"run_id": "run-1",
		"skip":   float64(10),
	}))
	require.NoError(t, err)
	assert.Empty(t, parseToolJSON(t, result)["ideas"])

	result, err = s.handleListIdeas(context.Background(), callTool("ideaforge_list_ideas", map[string]any{
		"run_id": "missing",
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "failed to read run missing")
}

func TestHandleListIdeas_RunIDWithoutHistory(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleListIdeas(context.Background(), callTool("ideaforge_list_ideas", map[string]any{
		"run_id": "run-1",
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Equal(t, "run history is not enabled", parseToolText(t, result))
}

func TestHandleRunStatus(t *testing.T) {
	s, fa := newTestServer(t)

	result, err := s.handleRunStatus(context.Background(), callTool("ideaforge_run_status", nil))
	require.NoError(t, err)
	m := parseToolJSON(t, result)
	assert.Equal(t, "No research run has been started.", m["summary"])
	assert.Equal(t, false, m["loading"])

	fa.store.SetCurrentRun(&model.Run{RunID: "run-1", Query: "pet care", Sources: []string{"reddit", "hackernews"}})
	fa.store.SetLoading(true)
	fa.store.MarkRunStarted(time.Now().Add(-90 * time.Second))
	fa.store.UpsertAgentStatus(model.AgentStatus{AgentName: "reddit", Status: model.AgentCompleted, ResultSummary: ptr("8 threads")})
	fa.store.UpsertAgentStatus(model.AgentStatus{AgentName: "hackernews", Status: model.AgentRunning})
	fa.store.SetTokenUsage(&model.TokenUsage{Provider: "groq", TotalTokens: 800, LLMCalls: 2, TPMLimit: ptr(int64(1000))})

	result, err = s.handleRunStatus(context.Background(), callTool("ideaforge_run_status", nil))
	require.NoError(t, err)
	m = parseToolJSON(t, result)

	assert.Equal(t, "run-1", m["run_id"])
	assert.Equal(t, true, m["connected"])
	assert.Equal(t, true, m["loading"])
	assert.GreaterOrEqual(t, m["elapsed_seconds"].(float64), float64(90))
	assert.Equal(t, "2 agents reporting, 1 completed, 0 failed. Call again to follow progress.", m["summary"])

	agents := m["agents"].([]any)
	require.Len(t, agents, 2)
	assert.Equal(t, "reddit", agents[0].(map[string]any)["agent"])
	assert.Equal(t, "8 threads", agents[0].(map[string]any)["summary"])

	usage := m["token_usage"].(map[string]any)
	assert.Equal(t, "approaching", usage["rate_status"])
	assert.Equal(t, float64(1000), usage["tpm_limit"])
}

func TestHandleRecentRuns(t *testing.T) {
	h := &fakeHistory{runs: []history.RunRecord{
		{Run: model.Run{RunID: "run-2", Status: model.RunStatusCompleted, Query: "b"}, IdeaCount: 4},
		{Run: model.Run{RunID: "run-1", Status: model.RunStatusFailed, Query: "a"}, Error: "all agents failed"},
	}}
	s, _ := newTestServer(t, WithHistory(h))

	result, err := s.handleRecentRuns(context.Background(), callTool("ideaforge_recent_runs", map[string]any{
		"limit": float64(5),
	}))
	require.NoError(t, err)
	m := parseToolJSON(t, result)
	runs := m["runs"].([]any)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].(map[string]any)["run_id"])
	assert.Equal(t, float64(4), runs[0].(map[string]any)["ideas"])
	assert.Equal(t, "all agents failed", runs[1].(map[string]any)["error"])
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , ,"))
	assert.Equal(t, []string{"a", "b"}, splitList("a, b"))
}

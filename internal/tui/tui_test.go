package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/ideaforge/internal/model"
	"github.com/ashita-ai/ideaforge/internal/store"
)

type fakeActions struct {
	st        *store.Store
	connected bool
	cancelErr error
	cancels   int
	reloads   int
}

func (f *fakeActions) Store() *store.Store { return f.st }
func (f *fakeActions) Connected() bool     { return f.connected }

func (f *fakeActions) CancelResearch(context.Context) error {
	f.cancels++
	return f.cancelErr
}

func (f *fakeActions) LoadIdeas(context.Context, int, int) (*model.IdeaList, error) {
	f.reloads++
	return &model.IdeaList{}, nil
}

func ptr[T any](v T) *T { return &v }

func newTestModel(t *testing.T) (Model, *fakeActions) {
	t.Helper()
	fa := &fakeActions{st: store.New(), connected: true}
	m := New(fa)
	t.Cleanup(m.Close)
	return m, fa
}

func TestStateChangeRefreshesSnapshot(t *testing.T) {
	m, fa := newTestModel(t)
	fa.st.UpsertAgentStatus(model.AgentStatus{AgentName: "reddit", Status: model.AgentRunning})

	// The subscription fired; the waiting command turns it into a message.
	msg := waitForChange(m.updates)()
	require.IsType(t, stateChangedMsg{}, msg)

	next, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	got := next.(Model)
	require.Len(t, got.state.AgentStatuses, 1)
	assert.Contains(t, got.View(), "reddit")
}

func TestWaitForChangeEndsOnUnsubscribe(t *testing.T) {
	m, _ := newTestModel(t)
	m.store.Unsubscribe(m.updates)
	assert.Nil(t, waitForChange(m.updates)())
}

func TestQuitKey(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestCancelKeyCallsAction(t *testing.T) {
	m, fa := newTestModel(t)
	fa.cancelErr = errors.New("dashboard: no current run")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	require.NotNil(t, cmd)
	assert.Equal(t, "cancelling...", next.(Model).notice)

	done := cmd()
	assert.Equal(t, 1, fa.cancels)
	next, _ = next.Update(done)
	assert.Equal(t, "cancel failed: dashboard: no current run", next.(Model).notice)
}

func TestReloadKeyCallsAction(t *testing.T) {
	m, fa := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	assert.Equal(t, 1, fa.reloads)
	assert.Equal(t, "reload done", next.(Model).notice)
}

func TestTickRefreshesConnection(t *testing.T) {
	m, fa := newTestModel(t)
	fa.connected = false
	at := time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC)
	next, cmd := m.Update(tickMsg(at))
	require.NotNil(t, cmd)
	got := next.(Model)
	assert.False(t, got.connected)
	assert.True(t, at.Equal(got.now))
	assert.Contains(t, got.View(), "reconnecting")
}

func TestRenderStartingAgentsPlaceholder(t *testing.T) {
	out := render(view{state: store.State{Loading: true}, spin: "*"})
	assert.Contains(t, out, "Starting agents")

	out = render(view{state: store.State{Loading: true, Error: "boom"}})
	assert.NotContains(t, out, "Starting agents")
	assert.Contains(t, out, "Error: boom")
}

func TestRenderAgentRows(t *testing.T) {
	st := store.State{AgentStatuses: []model.AgentStatus{
		{AgentName: "hackernews", Status: model.AgentCompleted, ResultSummary: ptr("12 posts found"), DurationSeconds: ptr(3.0)},
		{AgentName: "reddit", Status: model.AgentFailed, ErrorMessage: ptr("Agent failed")},
		{AgentName: "github", Status: model.AgentRunning},
	}}
	out := renderAgents(st, "~")
	assert.Contains(t, out, "✅ hackernews")
	assert.Contains(t, out, "12 posts found")
	assert.Contains(t, out, "3.0s")
	assert.Contains(t, out, "❌ reddit")
	assert.Contains(t, out, "Agent failed")
	assert.Contains(t, out, "~ github")
	assert.Less(t, strings.Index(out, "hackernews"), strings.Index(out, "reddit"))
}

func TestRenderTokenUsage(t *testing.T) {
	assert.Empty(t, renderTokenUsage(nil, 80))

	out := renderTokenUsage(&model.TokenUsage{Provider: "groq", TotalTokens: 750, LLMCalls: 1, TPMLimit: ptr(int64(1000))}, 80)
	assert.Contains(t, out, "approaching limit")
	assert.Contains(t, out, "750 / 1.0K TPM")
	assert.Contains(t, out, "1 LLM call")
	assert.Contains(t, out, "groq")

	out = renderTokenUsage(&model.TokenUsage{TotalTokens: 1500, LLMCalls: 4}, 80)
	assert.Contains(t, out, "1.5K tokens")
	assert.Contains(t, out, "4 LLM calls")
	assert.Contains(t, out, "ok")
}

func TestRenderElapsedOnlyWhileLoading(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(75 * time.Second)
	assert.Equal(t, "1m 15s", renderElapsed(store.State{StartedAt: start, Loading: true}, now))
	assert.Empty(t, renderElapsed(store.State{StartedAt: start}, now))
	assert.Empty(t, renderElapsed(store.State{Loading: true}, now))
	assert.Equal(t, "9s", formatElapsed(9*time.Second))
}

func TestRenderIdeasKeepsDeliveredOrder(t *testing.T) {
	out := renderIdeas([]model.Idea{
		{Title: "Zeta", CompositeScore: ptr(0.42), Source: "reddit"},
		{Title: "Alpha"},
	}, 7)
	assert.Contains(t, out, "Ideas (2 of 7)")
	assert.Contains(t, out, "[ 42] Zeta")
	assert.Contains(t, out, "[  -] Alpha")
	assert.Less(t, strings.Index(out, "Zeta"), strings.Index(out, "Alpha"))
	assert.Empty(t, renderIdeas(nil, 0))
}

func TestRenderRunHeader(t *testing.T) {
	assert.Empty(t, renderRunHeader(nil))
	out := renderRunHeader(&model.Run{RunID: "r1", Status: model.RunStatusStarted, Query: "pets", Sources: []string{"reddit", "github"}, LLMProvider: "groq"})
	assert.Contains(t, out, "Run r1")
	assert.Contains(t, out, `query: "pets"`)
	assert.Contains(t, out, "reddit, github")
}
